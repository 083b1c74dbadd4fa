package application

import "sync"

type AuthorizationStatus int

const (
	AuthorizationNotDetermined AuthorizationStatus = iota
	AuthorizationDenied
	AuthorizationRestricted
	AuthorizationAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case AuthorizationDenied:
		return "denied"
	case AuthorizationRestricted:
		return "restricted"
	case AuthorizationAuthorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

type RecognitionResult struct {
	Text  string
	Final bool
}

// RecognitionTask is a running recognition. Cancel is best effort: the
// handler may still fire once afterwards. Cancelling after the request has
// ended releases the task without discarding its final result.
type RecognitionTask interface {
	Cancel()
}

// Recognizer is a speech recognition engine bound to one locale.
type Recognizer interface {
	Locale() string
	IsAvailable() bool
	RequestAuthorization(done func(AuthorizationStatus))
	StartTask(req *RecognitionRequest, handler func(RecognitionResult, error)) RecognitionTask
}

type RecognizerFactory func(locale string) Recognizer

const requestQueueSize = 256

// RecognitionRequest streams captured audio to a recognition task. Append is
// safe to call from the capture goroutine; buffers are dropped when the
// engine falls behind.
type RecognitionRequest struct {
	ReportsPartialResults bool

	mu      sync.Mutex
	buffers chan AudioBuffer
	ended   bool
	dropped int
}

func NewRecognitionRequest(partialResults bool) *RecognitionRequest {
	return &RecognitionRequest{
		ReportsPartialResults: partialResults,
		buffers:               make(chan AudioBuffer, requestQueueSize),
	}
}

func (r *RecognitionRequest) Append(buf AudioBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return
	}

	select {
	case r.buffers <- buf:
	default:
		r.dropped++
	}
}

// EndAudio marks that no more audio is coming. Idempotent.
func (r *RecognitionRequest) EndAudio() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return
	}
	r.ended = true
	close(r.buffers)
}

func (r *RecognitionRequest) Buffers() <-chan AudioBuffer {
	return r.buffers
}

func (r *RecognitionRequest) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *RecognitionRequest) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
