package openai

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"voicekit/internal/application"
)

// SpeechSampleRate is the rate of the raw PCM returned by the speech endpoint.
const SpeechSampleRate = 24000

// Sink receives mono 16-bit samples at SpeechSampleRate.
type Sink interface {
	WriteSamples(samples []int16) error
}

type SynthesizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voices  []application.Voice
	// ChunkSamples bounds how far playback runs past a pause request.
	ChunkSamples int
}

type playback struct {
	utterance application.Utterance
	cancel    context.CancelFunc
}

// Synthesizer speaks utterances through the OpenAI speech endpoint and plays
// the PCM stream on a Sink. Pausing takes effect at the next chunk.
type Synthesizer struct {
	client *goopenai.Client
	model  string
	voices []application.Voice
	chunk  int
	sink   Sink
	logger *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	current  *playback
	paused   bool
	onFinish func(application.Utterance)
	wg       sync.WaitGroup
}

func NewSynthesizer(cfg SynthesizerConfig, sink Sink, logger *slog.Logger) *Synthesizer {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = string(goopenai.TTSModel1)
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = SpeechSampleRate / 10
	}
	if len(cfg.Voices) == 0 {
		cfg.Voices = []application.Voice{{ID: string(goopenai.VoiceAlloy), Name: "Alloy", Language: "en-US"}}
	}

	s := &Synthesizer{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		voices: cfg.Voices,
		chunk:  cfg.ChunkSamples,
		sink:   sink,
		logger: logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Synthesizer) Voices() []application.Voice {
	return s.voices
}

func (s *Synthesizer) SetFinishHandler(fn func(application.Utterance)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

func (s *Synthesizer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.paused
}

// Speak interrupts whatever is playing and starts u.
func (s *Synthesizer) Speak(u application.Utterance) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &playback{utterance: u, cancel: cancel}

	s.mu.Lock()
	s.stopLocked()
	s.current = p
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.play(ctx, p)
	}()
}

func (s *Synthesizer) Pause(_ application.Boundary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.paused {
		return false
	}
	s.paused = true
	return true
}

func (s *Synthesizer) Continue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || !s.paused {
		return false
	}
	s.paused = false
	s.cond.Broadcast()
	return true
}

func (s *Synthesizer) Stop(_ application.Boundary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Synthesizer) stopLocked() bool {
	if s.current == nil {
		return false
	}
	s.current.cancel()
	s.current = nil
	s.paused = false
	s.cond.Broadcast()
	return true
}

// Wait blocks until every playback goroutine has returned.
func (s *Synthesizer) Wait() {
	s.wg.Wait()
}

func (s *Synthesizer) play(ctx context.Context, p *playback) {
	u := p.utterance
	err := s.stream(ctx, p)

	if ctx.Err() != nil {
		s.logger.Debug("utterance cancelled", "utterance", u.ID)
		return
	}
	if err != nil {
		s.logger.Error("speaking utterance", "utterance", u.ID, "error", err)
	}

	s.mu.Lock()
	if s.current == p {
		s.current = nil
		s.paused = false
	}
	onFinish := s.onFinish
	s.mu.Unlock()

	if onFinish != nil {
		onFinish(u)
	}
}

func (s *Synthesizer) stream(ctx context.Context, p *playback) error {
	u := p.utterance

	resp, err := s.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(s.model),
		Input:          u.Text,
		Voice:          goopenai.SpeechVoice(s.voiceID(u)),
		ResponseFormat: goopenai.SpeechResponseFormatPcm,
		Speed:          speed(u.Rate),
	})
	if err != nil {
		return err
	}
	defer resp.Close()

	// zero mutes; out of range values play at full volume
	gain := u.Volume
	if gain < 0 || gain > 1 {
		gain = 1
	}

	raw := make([]byte, s.chunk*2)
	for {
		if !s.waitWhilePaused(p) {
			return nil
		}

		n, readErr := io.ReadFull(resp, raw)
		if n >= 2 {
			samples := make([]int16, n/2)
			for i := range samples {
				v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
				samples[i] = int16(math.Round(float64(v) * gain))
			}
			if err := s.sink.WriteSamples(samples); err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// waitWhilePaused reports false once p is no longer the current playback.
func (s *Synthesizer) waitWhilePaused(p *playback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.current == p && s.paused {
		s.cond.Wait()
	}
	return s.current == p
}

func (s *Synthesizer) voiceID(u application.Utterance) string {
	if u.Voice != nil && u.Voice.ID != "" {
		return u.Voice.ID
	}
	return s.voices[0].ID
}

// speed maps a rate multiplier onto the 0.25-4.0 range the endpoint accepts.
func speed(rate float64) float64 {
	if rate <= 0 {
		return 1.0
	}
	return math.Min(math.Max(rate, 0.25), 4.0)
}
