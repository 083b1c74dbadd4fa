package application

import "time"

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// AudioBuffer is one block of interleaved PCM samples delivered by a tap.
type AudioBuffer struct {
	Samples []int16
	Format  AudioFormat
}

func (b AudioBuffer) Duration() time.Duration {
	if b.Format.SampleRate == 0 || b.Format.Channels == 0 {
		return 0
	}
	frames := len(b.Samples) / b.Format.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.Format.SampleRate)
}

// AudioEngine captures from an input device and hands every buffer to the
// installed tap. Taps run on the engine's capture goroutine.
type AudioEngine interface {
	InputFormat() AudioFormat
	InstallTap(tap func(AudioBuffer))
	RemoveTap()
	Start() error
	Stop()
	IsRunning() bool
}

type SessionMode int

const (
	SessionModePlayback SessionMode = iota
	SessionModeRecord
)

func (m SessionMode) String() string {
	if m == SessionModeRecord {
		return "record"
	}
	return "playback"
}

// AudioSession switches the shared audio route between capture and
// playback-safe configurations.
type AudioSession interface {
	SetMode(mode SessionMode) error
}

// NoopAudioSession is used where the platform has no shared session to
// configure (desktop PortAudio, file input).
type NoopAudioSession struct{}

func (n *NoopAudioSession) SetMode(_ SessionMode) error {
	return nil
}
