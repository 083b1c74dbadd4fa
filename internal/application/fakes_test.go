package application_test

import (
	"errors"
	"io"
	"log/slog"

	"voicekit/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTask struct {
	cancelled bool
}

func (t *fakeTask) Cancel() { t.cancelled = true }

type fakeRecognizer struct {
	locale     string
	available  bool
	status     application.AuthorizationStatus
	deferAuth  bool
	pendingFns []func(application.AuthorizationStatus)

	requests []*application.RecognitionRequest
	handlers []func(application.RecognitionResult, error)
	tasks    []*fakeTask
}

func (r *fakeRecognizer) Locale() string    { return r.locale }
func (r *fakeRecognizer) IsAvailable() bool { return r.available }

func (r *fakeRecognizer) RequestAuthorization(done func(application.AuthorizationStatus)) {
	if r.deferAuth {
		r.pendingFns = append(r.pendingFns, done)
		return
	}
	done(r.status)
}

func (r *fakeRecognizer) StartTask(req *application.RecognitionRequest, handler func(application.RecognitionResult, error)) application.RecognitionTask {
	task := &fakeTask{}
	r.requests = append(r.requests, req)
	r.handlers = append(r.handlers, handler)
	r.tasks = append(r.tasks, task)
	return task
}

func (r *fakeRecognizer) deliver(i int, result application.RecognitionResult, err error) {
	r.handlers[i](result, err)
}

type fakeEngine struct {
	running  bool
	tap      func(application.AudioBuffer)
	startErr error
	starts   int
	stops    int
}

func (e *fakeEngine) InputFormat() application.AudioFormat         { return application.DefaultAudioFormat() }
func (e *fakeEngine) InstallTap(tap func(application.AudioBuffer)) { e.tap = tap }
func (e *fakeEngine) RemoveTap()                                   { e.tap = nil }
func (e *fakeEngine) IsRunning() bool                              { return e.running }

func (e *fakeEngine) Start() error {
	e.starts++
	if e.startErr != nil {
		return e.startErr
	}
	e.running = true
	return nil
}

func (e *fakeEngine) Stop() {
	e.stops++
	e.running = false
}

type fakeSession struct {
	modes       []application.SessionMode
	playbackErr error
}

func (s *fakeSession) SetMode(mode application.SessionMode) error {
	s.modes = append(s.modes, mode)
	if mode == application.SessionModePlayback {
		return s.playbackErr
	}
	return nil
}

type fakeSynth struct {
	voices   []application.Voice
	speaking bool
	spoken   []application.Utterance
	pauses   int
	resumes  int
	stops    int
	finish   func(application.Utterance)
}

func (s *fakeSynth) Speak(u application.Utterance) {
	s.spoken = append(s.spoken, u)
	s.speaking = true
}

func (s *fakeSynth) Pause(_ application.Boundary) bool {
	s.pauses++
	was := s.speaking
	s.speaking = false
	return was
}

func (s *fakeSynth) Continue() bool {
	s.resumes++
	s.speaking = len(s.spoken) > 0
	return s.speaking
}

func (s *fakeSynth) Stop(_ application.Boundary) bool {
	s.stops++
	was := s.speaking
	s.speaking = false
	return was
}

func (s *fakeSynth) IsSpeaking() bool                                { return s.speaking }
func (s *fakeSynth) Voices() []application.Voice                     { return s.voices }
func (s *fakeSynth) SetFinishHandler(fn func(application.Utterance)) { s.finish = fn }

var errBoom = errors.New("boom")
