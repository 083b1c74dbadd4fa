package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"voicekit/internal/application"
	"voicekit/internal/infra"
	"voicekit/internal/infra/audio"
)

const defaultBaseURL = "https://api.openai.com/v1"

// DefaultMaxDuration keeps 16kHz mono uploads well under the 25MB limit.
const DefaultMaxDuration = 10 * time.Minute

type RecognizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// PartialInterval is how often captured audio is re-transcribed while
	// the request is still open.
	PartialInterval time.Duration
	// MaxDuration caps the audio kept per request. Every partial re-uploads
	// the whole recording and the endpoint rejects files over 25MB, so audio
	// past the cap is discarded.
	MaxDuration time.Duration
}

// Recognizer turns streamed microphone audio into transcripts with the
// Whisper transcription endpoint. Whisper is not a streaming API, so partial
// results come from re-transcribing everything captured so far.
type Recognizer struct {
	cfg        RecognizerConfig
	locale     string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRecognizer(cfg RecognizerConfig, locale string, logger *slog.Logger) *Recognizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.PartialInterval <= 0 {
		cfg.PartialInterval = 2 * time.Second
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	return &Recognizer{
		cfg:        cfg,
		locale:     locale,
		language:   whisperLanguage(locale),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// NewRecognizerFactory binds a new Recognizer for every locale change.
func NewRecognizerFactory(cfg RecognizerConfig, logger *slog.Logger) application.RecognizerFactory {
	return func(locale string) application.Recognizer {
		return NewRecognizer(cfg, locale, logger)
	}
}

// whisperLanguage reduces a locale to the ISO-639-1 code Whisper expects.
func whisperLanguage(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

func (r *Recognizer) Locale() string {
	return r.locale
}

func (r *Recognizer) IsAvailable() bool {
	return r.cfg.APIKey != "" && r.language != ""
}

// RequestAuthorization reports whether an API key is configured. The result
// is delivered on a separate goroutine.
func (r *Recognizer) RequestAuthorization(done func(application.AuthorizationStatus)) {
	status := application.AuthorizationDenied
	if r.cfg.APIKey != "" {
		status = application.AuthorizationAuthorized
	}
	go done(status)
}

type task struct {
	req    *application.RecognitionRequest
	cancel context.CancelFunc
}

// Cancel aborts the task while audio is still streaming. Once the request has
// ended the task is left to transcribe the tail and deliver the final result.
func (t *task) Cancel() {
	if t.req.Ended() {
		return
	}
	t.cancel()
}

func (r *Recognizer) StartTask(req *application.RecognitionRequest, handler func(application.RecognitionResult, error)) application.RecognitionTask {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		r.run(ctx, req, handler)
	}()
	return &task{req: req, cancel: cancel}
}

func (r *Recognizer) run(ctx context.Context, req *application.RecognitionRequest, handler func(application.RecognitionResult, error)) {
	var (
		samples     []int16
		sampleRate  = application.DefaultAudioFormat().SampleRate
		transcribed int
		last        string
		capped      bool
		tick        <-chan time.Time
	)

	if req.ReportsPartialResults {
		ticker := time.NewTicker(r.cfg.PartialInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	deliver := func(final bool) bool {
		text, err := r.Transcribe(ctx, audio.EncodeWAV(samples, sampleRate))
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			handler(application.RecognitionResult{}, err)
			return false
		}
		transcribed = len(samples)
		if text != last || final {
			last = text
			handler(application.RecognitionResult{Text: text, Final: final}, nil)
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if len(samples) > transcribed && !deliver(false) {
				return
			}
		case buf, ok := <-req.Buffers():
			if !ok {
				if len(samples) > transcribed {
					deliver(true)
				} else if ctx.Err() == nil {
					handler(application.RecognitionResult{Text: last, Final: true}, nil)
				}
				return
			}

			if buf.Format.SampleRate > 0 {
				sampleRate = buf.Format.SampleRate
			}

			limit := int(int64(r.cfg.MaxDuration) * int64(sampleRate) / int64(time.Second))
			mono := downmix(buf)
			if room := limit - len(samples); len(mono) > room {
				mono = mono[:max(room, 0)]
				if !capped {
					capped = true
					r.logger.Warn("recognition audio capped", "locale", r.locale, "max", r.cfg.MaxDuration)
				}
			}
			samples = append(samples, mono...)
		}
	}
}

func downmix(buf application.AudioBuffer) []int16 {
	channels := buf.Format.Channels
	if channels <= 1 {
		return buf.Samples
	}
	out := make([]int16, len(buf.Samples)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(buf.Samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends one WAV file to the transcription endpoint.
func (r *Recognizer) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var result transcriptionResponse

	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "audio.wav")
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}

		if _, err = part.Write(wav); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}

		if err = writer.WriteField("model", r.cfg.Model); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}

		if r.language != "" {
			if err = writer.WriteField("language", r.language); err != nil {
				return fmt.Errorf("writing language field: %w", err)
			}
		}

		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("whisper API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return infra.Permanent(fmt.Errorf("whisper API error %d: %s", resp.StatusCode, string(respBody)))
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	r.logger.Debug("transcribed", "locale", r.locale, "bytes", len(wav), "chars", len(result.Text))
	return result.Text, nil
}
