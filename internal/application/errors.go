package application

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindNotAuthorized ErrorKind = iota + 1
	KindUnavailable
	KindAudioEngine
	KindRecognition
	KindVoiceUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAuthorized:
		return "not_authorized"
	case KindUnavailable:
		return "unavailable"
	case KindAudioEngine:
		return "audio_engine"
	case KindRecognition:
		return "recognition"
	case KindVoiceUnavailable:
		return "voice_unavailable"
	default:
		return "unknown"
	}
}

// Error is the typed failure stored on a controller and delivered through its
// OnError callback.
type Error struct {
	Kind     ErrorKind
	Language string // set for KindVoiceUnavailable
	Err      error
}

var (
	ErrNotAuthorized = &Error{Kind: KindNotAuthorized}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrAudioEngine   = &Error{Kind: KindAudioEngine}
)

func RecognitionError(err error) *Error {
	return &Error{Kind: KindRecognition, Err: err}
}

func VoiceUnavailableError(language string) *Error {
	return &Error{Kind: KindVoiceUnavailable, Language: language}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotAuthorized:
		return "speech recognition not authorized"
	case KindUnavailable:
		return "speech recognizer unavailable"
	case KindAudioEngine:
		if e.Err != nil {
			return fmt.Sprintf("audio engine failed to start: %v", e.Err)
		}
		return "audio engine failed to start"
	case KindRecognition:
		if e.Err != nil {
			return fmt.Sprintf("recognition failed: %v", e.Err)
		}
		return "recognition failed"
	case KindVoiceUnavailable:
		return fmt.Sprintf("no voice available for language %q", e.Language)
	default:
		return "speech error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Language when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Language == "" || t.Language == e.Language
}

// AsError normalises err into an *Error. Typed errors pass through, anything
// else is treated as a recognition failure.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return RecognitionError(err)
}
