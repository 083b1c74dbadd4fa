package application

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type RecordingState int

const (
	StateIdle RecordingState = iota
	StateAuthorizationPending
	StateListening
)

func (s RecordingState) String() string {
	switch s {
	case StateAuthorizationPending:
		return "authorization_pending"
	case StateListening:
		return "listening"
	default:
		return "idle"
	}
}

// SpeechToTextController owns one recognition session at a time. All methods
// and callbacks run on the context behind its Dispatcher; it holds no locks.
type SpeechToTextController struct {
	OnTranscriptUpdate func(text string)
	OnError            func(err *Error)
	OnStart            func()
	// OnStop receives the transcript, or ok=false when nothing was recognized.
	OnStop func(finalText string, ok bool)
	// OnFinalTranscript fires once the recognizer has finished the audio of a
	// stopped session. It may fire after OnStop.
	OnFinalTranscript func(text string)

	newRecognizer RecognizerFactory
	recognizer    Recognizer
	engine        AudioEngine
	session       AudioSession
	dispatch      Dispatcher
	logger        *slog.Logger

	locale      string
	transcript  string
	listening   bool
	authorizing bool
	err         *Error

	generation uint64
	sessionID  string
	request    *RecognitionRequest
	task       RecognitionTask
	// draining is the request of the last stopped session while its final
	// result is outstanding.
	draining *RecognitionRequest
}

func NewSpeechToTextController(
	locale string,
	newRecognizer RecognizerFactory,
	engine AudioEngine,
	session AudioSession,
	dispatch Dispatcher,
	logger *slog.Logger,
) *SpeechToTextController {
	if session == nil {
		session = &NoopAudioSession{}
	}
	if dispatch == nil {
		dispatch = Inline{}
	}
	c := &SpeechToTextController{
		newRecognizer: newRecognizer,
		engine:        engine,
		session:       session,
		dispatch:      dispatch,
		logger:        logger,
	}
	c.SetLanguage(locale)
	return c
}

func (c *SpeechToTextController) Transcript() string { return c.transcript }
func (c *SpeechToTextController) IsListening() bool  { return c.listening }
func (c *SpeechToTextController) Err() *Error        { return c.err }
func (c *SpeechToTextController) Language() string   { return c.locale }

func (c *SpeechToTextController) State() RecordingState {
	switch {
	case c.listening:
		return StateListening
	case c.authorizing:
		return StateAuthorizationPending
	default:
		return StateIdle
	}
}

func (c *SpeechToTextController) IsAvailable() bool {
	return c.recognizer != nil && c.recognizer.IsAvailable()
}

// SetLanguage rebinds the recognizer. A session already running keeps the
// recognizer it started with.
func (c *SpeechToTextController) SetLanguage(locale string) {
	c.locale = locale
	c.recognizer = nil
	if c.newRecognizer != nil {
		c.recognizer = c.newRecognizer(locale)
	}
}

// Reset clears the transcript and the last error.
func (c *SpeechToTextController) Reset() {
	c.transcript = ""
	c.err = nil
}

// StartRecording requests authorization and, once granted, starts streaming
// microphone audio to the recognizer. Failures are reported through OnError.
func (c *SpeechToTextController) StartRecording() {
	if c.listening {
		return
	}

	c.teardown(false)
	c.Reset()

	c.draining = nil
	c.generation++
	gen := c.generation
	c.sessionID = uuid.NewString()

	if c.recognizer == nil {
		c.fail(ErrUnavailable)
		return
	}
	c.authorizing = true

	c.logger.Debug("requesting speech authorization", "session", c.sessionID, "locale", c.locale)

	c.recognizer.RequestAuthorization(func(status AuthorizationStatus) {
		c.dispatch.Dispatch(func() {
			c.handleAuthorization(gen, status)
		})
	})
}

func (c *SpeechToTextController) handleAuthorization(gen uint64, status AuthorizationStatus) {
	if gen != c.generation || !c.authorizing {
		return
	}
	c.authorizing = false

	if status != AuthorizationAuthorized {
		c.logger.Warn("speech authorization refused", "session", c.sessionID, "status", status)
		c.fail(ErrNotAuthorized)
		return
	}

	if err := c.beginTranscription(gen); err != nil {
		c.fail(AsError(err))
		return
	}

	c.logger.Info("recording started", "session", c.sessionID, "locale", c.locale)
	if c.OnStart != nil {
		c.OnStart()
	}
}

func (c *SpeechToTextController) beginTranscription(gen uint64) error {
	recognizer := c.recognizer
	if recognizer == nil || !recognizer.IsAvailable() {
		return ErrUnavailable
	}

	if err := c.session.SetMode(SessionModeRecord); err != nil {
		return fmt.Errorf("configuring audio session: %w", err)
	}

	c.listening = true

	req := NewRecognitionRequest(true)
	c.request = req
	c.engine.InstallTap(req.Append)

	c.task = recognizer.StartTask(req, func(result RecognitionResult, err error) {
		c.dispatch.Dispatch(func() {
			c.handleResult(gen, req, result, err)
		})
	})

	if err := c.engine.Start(); err != nil {
		c.teardown(false)
		return &Error{Kind: KindAudioEngine, Err: err}
	}

	return nil
}

func (c *SpeechToTextController) handleResult(gen uint64, req *RecognitionRequest, result RecognitionResult, err error) {
	if gen == c.generation && req != nil && req == c.draining {
		c.handleDrained(result, err)
		return
	}
	if gen != c.generation || req != c.request {
		c.logger.Debug("dropping stale recognition callback", "generation", gen)
		return
	}

	if err != nil {
		c.fail(RecognitionError(err))
		c.stop(false)
		return
	}

	c.transcript = result.Text
	if c.OnTranscriptUpdate != nil {
		c.OnTranscriptUpdate(result.Text)
	}
}

// handleDrained accepts only the final result of a stopped session. Partials
// and errors arriving after the stop are dropped.
func (c *SpeechToTextController) handleDrained(result RecognitionResult, err error) {
	if err != nil {
		c.logger.Warn("final transcription failed", "session", c.sessionID, "error", err)
		return
	}
	if !result.Final {
		return
	}
	c.draining = nil

	c.transcript = result.Text
	if c.OnTranscriptUpdate != nil {
		c.OnTranscriptUpdate(result.Text)
	}
	if c.OnFinalTranscript != nil {
		c.OnFinalTranscript(result.Text)
	}
}

// StopRecording ends the current session. Audio captured so far is still
// transcribed and reported through OnFinalTranscript. Safe to call when idle.
func (c *SpeechToTextController) StopRecording() {
	c.stop(true)
}

// stop keeps the last error when invoked as cleanup after a recognition
// failure so the reported error stays readable.
func (c *SpeechToTextController) stop(clearError bool) {
	wasListening := c.listening
	req := c.request
	c.authorizing = false
	c.teardown(clearError)
	if clearError {
		c.draining = req
	}

	if wasListening {
		c.logger.Info("recording stopped", "session", c.sessionID, "chars", len(c.transcript))
	}

	if c.OnStop != nil {
		c.OnStop(c.transcript, c.transcript != "")
	}
	if clearError {
		c.err = nil
	}
}

// teardown removes the tap and the request together and returns the audio
// session to playback. With drain set the request is ended before the task is
// released so the recognizer can finish the captured audio.
func (c *SpeechToTextController) teardown(drain bool) {
	if c.engine.IsRunning() {
		c.engine.Stop()
	}
	c.engine.RemoveTap()

	if c.task != nil && !drain {
		c.task.Cancel()
	}
	if c.request != nil {
		c.request.EndAudio()
		c.request = nil
	}
	if c.task != nil {
		if drain {
			c.task.Cancel()
		}
		c.task = nil
	}

	if err := c.session.SetMode(SessionModePlayback); err != nil {
		c.logger.Warn("restoring audio session", "error", err)
	}

	c.listening = false
}

func (c *SpeechToTextController) fail(err *Error) {
	c.err = err
	c.logger.Error("speech recognition", "session", c.sessionID, "kind", err.Kind, "error", err)
	if c.OnError != nil {
		c.OnError(err)
	}
}
