//go:build !portaudio
// +build !portaudio

package audio

import (
	"fmt"
	"log/slog"

	"voicekit/internal/application"
)

// Microphone stub when portaudio is not available
type Microphone struct {
	sampleRate int
	logger     *slog.Logger
}

func NewMicrophone(sampleRate, framesPerBuffer int, logger *slog.Logger) *Microphone {
	return &Microphone{sampleRate: sampleRate, logger: logger}
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) InputFormat() application.AudioFormat {
	return application.AudioFormat{SampleRate: m.sampleRate, Channels: 1, BitDepth: 16}
}

func (m *Microphone) InstallTap(_ func(application.AudioBuffer)) {}
func (m *Microphone) RemoveTap()                                 {}
func (m *Microphone) IsRunning() bool                            { return false }
func (m *Microphone) Stop()                                      {}

func (m *Microphone) Start() error {
	return fmt.Errorf("microphone source not available: rebuild with -tags portaudio")
}
