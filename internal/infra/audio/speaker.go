//go:build portaudio
// +build portaudio

package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Speaker plays mono 16-bit audio on the default output device. The stream
// is opened lazily on the first write.
type Speaker struct {
	sampleRate      int
	framesPerBuffer int
	logger          *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int16
}

func NewSpeaker(sampleRate, framesPerBuffer int, logger *slog.Logger) *Speaker {
	return &Speaker{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}
}

func (s *Speaker) open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	s.buffer = make([]int16, s.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.sampleRate), s.framesPerBuffer, s.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting output stream: %w", err)
	}

	s.stream = stream
	s.logger.Debug("speaker opened", "sampleRate", s.sampleRate)
	return nil
}

// WriteSamples blocks until the samples are queued on the device.
func (s *Speaker) WriteSamples(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	for len(samples) > 0 {
		n := copy(s.buffer, samples)
		clear(s.buffer[n:])
		samples = samples[n:]

		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("writing to output stream: %w", err)
		}
	}
	return nil
}

func (s *Speaker) SampleRate() int {
	return s.sampleRate
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}

	stream := s.stream
	s.stream = nil

	if err := stream.Stop(); err != nil {
		s.logger.Warn("stopping output stream", "error", err)
	}
	err := stream.Close()
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("closing output stream: %w", err)
	}
	return nil
}
