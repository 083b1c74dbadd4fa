package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Log         LogConfig         `yaml:"log"`
}

type AudioConfig struct {
	Source          string `yaml:"source"`
	File            string `yaml:"file"`
	SampleRate      int    `yaml:"sample_rate"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
}

type RecognitionConfig struct {
	Locale          string `yaml:"locale"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	PartialInterval string `yaml:"partial_interval"`
	// MaxDuration bounds how much audio one session keeps. Empty uses the
	// recognizer default.
	MaxDuration string `yaml:"max_duration"`
}

type VoiceConfig struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Languages []string `yaml:"languages"`
}

type SynthesisConfig struct {
	Language string        `yaml:"language"`
	Rate     float64       `yaml:"rate"`
	Pitch    float64       `yaml:"pitch"`
	Volume   float64       `yaml:"volume"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Voices   []VoiceConfig `yaml:"voices"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FramesPerBuffer == 0 {
		c.Audio.FramesPerBuffer = 1024
	}
	if c.Recognition.Locale == "" {
		c.Recognition.Locale = "en-US"
	}
	if c.Recognition.Model == "" {
		c.Recognition.Model = "whisper-1"
	}
	if c.Recognition.PartialInterval == "" {
		c.Recognition.PartialInterval = "2s"
	}
	if c.Synthesis.Language == "" {
		c.Synthesis.Language = "en-US"
	}
	if c.Synthesis.Rate == 0 {
		c.Synthesis.Rate = 1.0
	}
	if c.Synthesis.Pitch == 0 {
		c.Synthesis.Pitch = 1.0
	}
	if c.Synthesis.Volume == 0 {
		c.Synthesis.Volume = 1.0
	}
	if c.Synthesis.APIKey == "" {
		c.Synthesis.APIKey = c.Recognition.APIKey
	}
	if c.Synthesis.BaseURL == "" {
		c.Synthesis.BaseURL = c.Recognition.BaseURL
	}
	if c.Synthesis.Model == "" {
		c.Synthesis.Model = "tts-1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Source {
	case "microphone":
	case "file":
		if c.Audio.File == "" {
			errs = append(errs, errors.New("audio.file is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audio.source %q", c.Audio.Source))
	}

	if _, err := c.Recognition.Interval(); err != nil {
		errs = append(errs, fmt.Errorf("recognition.partial_interval: %w", err))
	}
	if _, err := c.Recognition.MaxSessionDuration(); err != nil {
		errs = append(errs, fmt.Errorf("recognition.max_duration: %w", err))
	}

	if err := validLocale(c.Recognition.Locale); err != nil {
		errs = append(errs, fmt.Errorf("recognition.locale: %w", err))
	}
	if err := validLocale(c.Synthesis.Language); err != nil {
		errs = append(errs, fmt.Errorf("synthesis.language: %w", err))
	}

	if c.Synthesis.Rate < 0.25 || c.Synthesis.Rate > 4.0 {
		errs = append(errs, fmt.Errorf("synthesis.rate %v out of range [0.25, 4.0]", c.Synthesis.Rate))
	}
	if c.Synthesis.Volume < 0 || c.Synthesis.Volume > 1 {
		errs = append(errs, fmt.Errorf("synthesis.volume %v out of range [0, 1]", c.Synthesis.Volume))
	}

	for i, v := range c.Synthesis.Voices {
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("synthesis.voices[%d]: id is required", i))
		}
		for _, l := range v.Languages {
			if err := validLocale(l); err != nil {
				errs = append(errs, fmt.Errorf("synthesis.voices[%d]: %w", i, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (r RecognitionConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(r.PartialInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// MaxSessionDuration returns zero when max_duration is unset.
func (r RecognitionConfig) MaxSessionDuration() (time.Duration, error) {
	if r.MaxDuration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.MaxDuration)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func validLocale(code string) error {
	if _, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err != nil {
		return fmt.Errorf("invalid locale %q: %w", code, err)
	}
	return nil
}
