//go:build !portaudio
// +build !portaudio

package audio

import (
	"fmt"
	"log/slog"
)

// Speaker stub when portaudio is not available
type Speaker struct {
	sampleRate int
}

func NewSpeaker(sampleRate, framesPerBuffer int, logger *slog.Logger) *Speaker {
	return &Speaker{sampleRate: sampleRate}
}

func (s *Speaker) WriteSamples(_ []int16) error {
	return fmt.Errorf("speaker not available: rebuild with -tags portaudio")
}

func (s *Speaker) SampleRate() int {
	return s.sampleRate
}

func (s *Speaker) Close() error {
	return nil
}
