package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicekit/config"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Audio.Source != "microphone" || cfg.Audio.SampleRate != 16000 || cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("audio defaults: got %+v", cfg.Audio)
	}
	if cfg.Recognition.Locale != "en-US" || cfg.Recognition.Model != "whisper-1" {
		t.Errorf("recognition defaults: got %+v", cfg.Recognition)
	}
	if cfg.Synthesis.Rate != 1.0 || cfg.Synthesis.Pitch != 1.0 || cfg.Synthesis.Volume != 1.0 {
		t.Errorf("synthesis defaults: got %+v", cfg.Synthesis)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log: got %+v", cfg.Log)
	}

	interval, err := cfg.Recognition.Interval()
	if err != nil || interval != 2*time.Second {
		t.Errorf("interval: got %v, %v", interval, err)
	}

	maxDuration, err := cfg.Recognition.MaxSessionDuration()
	if err != nil || maxDuration != 0 {
		t.Errorf("max duration: got %v, %v", maxDuration, err)
	}
}

func TestParse_MaxDuration(t *testing.T) {
	cfg, err := config.Parse([]byte("recognition:\n  max_duration: 5m\n"))
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}

	d, err := cfg.Recognition.MaxSessionDuration()
	if err != nil || d != 5*time.Minute {
		t.Errorf("max duration: got %v, %v", d, err)
	}
}

func TestParse_ExpandsEnvAndSharesKey(t *testing.T) {
	t.Setenv("VOICEKIT_TEST_KEY", "sk-test")

	cfg, err := config.Parse([]byte(`
recognition:
  locale: es_ES
  api_key: ${VOICEKIT_TEST_KEY}
synthesis:
  language: es-ES
  voices:
    - id: nova
      languages: [es-ES, es-MX]
`))
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}

	if cfg.Recognition.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Recognition.APIKey)
	}
	if cfg.Synthesis.APIKey != "sk-test" {
		t.Errorf("synthesis should inherit the recognition key, got %q", cfg.Synthesis.APIKey)
	}
	if len(cfg.Synthesis.Voices) != 1 || len(cfg.Synthesis.Voices[0].Languages) != 2 {
		t.Errorf("voices: got %+v", cfg.Synthesis.Voices)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown source", yaml: "audio:\n  source: bluetooth\n", want: "audio.source"},
		{name: "file without path", yaml: "audio:\n  source: file\n", want: "audio.file"},
		{name: "bad locale", yaml: "recognition:\n  locale: '!!'\n", want: "recognition.locale"},
		{name: "bad interval", yaml: "recognition:\n  partial_interval: soon\n", want: "partial_interval"},
		{name: "negative max duration", yaml: "recognition:\n  max_duration: -1m\n", want: "max_duration"},
		{name: "rate", yaml: "synthesis:\n  rate: 9\n", want: "synthesis.rate"},
		{name: "volume", yaml: "synthesis:\n  volume: 1.5\n", want: "synthesis.volume"},
		{name: "voice id", yaml: "synthesis:\n  voices:\n    - languages: [en-US]\n", want: "id is required"},
		{name: "malformed yaml", yaml: "audio: [", want: "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}
