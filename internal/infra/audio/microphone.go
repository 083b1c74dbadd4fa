//go:build portaudio
// +build portaudio

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voicekit/internal/application"
)

// Microphone captures mono 16-bit audio from the default input device.
type Microphone struct {
	sampleRate      int
	framesPerBuffer int
	logger          *slog.Logger

	mu      sync.Mutex
	tap     func(application.AudioBuffer)
	stream  *portaudio.Stream
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewMicrophone(sampleRate, framesPerBuffer int, logger *slog.Logger) *Microphone {
	return &Microphone{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) InputFormat() application.AudioFormat {
	return application.AudioFormat{
		SampleRate: m.sampleRate,
		Channels:   1,
		BitDepth:   16,
	}
}

func (m *Microphone) InstallTap(tap func(application.AudioBuffer)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tap = tap
}

func (m *Microphone) RemoveTap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tap = nil
}

func (m *Microphone) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, m.framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.stream = stream
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.capture(stream, buffer, m.stop, m.done)

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *Microphone) capture(stream *portaudio.Stream, buffer []int16, stop, done chan struct{}) {
	defer close(done)

	format := m.InputFormat()
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			select {
			case <-stop:
			default:
				m.logger.Error("reading from stream", "error", err)
			}
			return
		}

		m.mu.Lock()
		tap := m.tap
		m.mu.Unlock()

		if tap != nil {
			tap(application.AudioBuffer{
				Samples: append([]int16(nil), buffer...),
				Format:  format,
			})
		}
	}
}

func (m *Microphone) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stream, stop, done := m.stream, m.stop, m.done
	m.stream = nil
	m.mu.Unlock()

	close(stop)
	if err := stream.Stop(); err != nil {
		m.logger.Warn("stopping stream", "error", err)
	}
	<-done

	if err := stream.Close(); err != nil {
		m.logger.Warn("closing stream", "error", err)
	}
	portaudio.Terminate()
	m.logger.Info("microphone stopped")
}
