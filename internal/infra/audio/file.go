package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"voicekit/internal/application"
)

// FileEngine replays a WAV file through the tap as if it were a microphone.
// It paces buffers in real time unless Realtime is false.
type FileEngine struct {
	path            string
	framesPerBuffer int
	logger          *slog.Logger

	Realtime bool

	mu       sync.Mutex
	tap      func(application.AudioBuffer)
	format   application.AudioFormat
	running  bool
	stop     chan struct{}
	done     chan struct{}
	finished chan struct{}
}

func NewFileEngine(path string, framesPerBuffer int, logger *slog.Logger) *FileEngine {
	return &FileEngine{
		path:            path,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
		Realtime:        true,
		format:          application.DefaultAudioFormat(),
		finished:        make(chan struct{}),
	}
}

func (f *FileEngine) Name() string {
	return "file"
}

func (f *FileEngine) InputFormat() application.AudioFormat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format
}

func (f *FileEngine) InstallTap(tap func(application.AudioBuffer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tap = tap
}

func (f *FileEngine) RemoveTap() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tap = nil
}

func (f *FileEngine) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Finished is closed once the most recent playback reached the end of the file.
func (f *FileEngine) Finished() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

func (f *FileEngine) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}

	samples, format, err := DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", f.path, err)
	}

	f.format = format
	f.running = true
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	f.finished = make(chan struct{})

	go f.replay(samples, format, f.stop, f.done, f.finished)

	f.logger.Info("file capture started", "path", f.path, "sampleRate", format.SampleRate)
	return nil
}

func (f *FileEngine) replay(samples []int16, format application.AudioFormat, stop, done, finished chan struct{}) {
	defer close(done)

	chunk := f.framesPerBuffer * format.Channels
	if chunk <= 0 {
		chunk = 1024
	}

	for offset := 0; offset < len(samples); offset += chunk {
		end := min(offset+chunk, len(samples))
		buf := application.AudioBuffer{
			Samples: append([]int16(nil), samples[offset:end]...),
			Format:  format,
		}

		f.mu.Lock()
		tap := f.tap
		f.mu.Unlock()
		if tap != nil {
			tap(buf)
		}

		if f.Realtime {
			select {
			case <-stop:
				return
			case <-time.After(buf.Duration()):
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}
	}

	close(finished)
}

func (f *FileEngine) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	stop, done := f.stop, f.done
	f.mu.Unlock()

	close(stop)
	<-done
}
