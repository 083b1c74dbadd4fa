package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicekit/config"
	"voicekit/internal/application"
	"voicekit/internal/infra/audio"
	"voicekit/internal/infra/openai"
)

// finalTranscriptTimeout bounds the wait for the last transcription after a
// recording stops.
const finalTranscriptTimeout = 45 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	say := flag.String("say", "", "speak this text and exit")
	echo := flag.Bool("echo", false, "speak the final transcript back")
	duration := flag.Duration("duration", 0, "stop recording after this long (0 waits for SIGINT)")
	listVoices := flag.Bool("list-voices", false, "print configured voices and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	loop := application.NewLoop(64)
	defer loop.Close()

	speaker := audio.NewSpeaker(openai.SpeechSampleRate, cfg.Audio.FramesPerBuffer, logger)
	defer func() {
		if err := speaker.Close(); err != nil {
			logger.Warn("closing speaker", "error", err)
		}
	}()

	synth := openai.NewSynthesizer(openai.SynthesizerConfig{
		APIKey:  cfg.Synthesis.APIKey,
		BaseURL: cfg.Synthesis.BaseURL,
		Model:   cfg.Synthesis.Model,
		Voices:  voices(cfg.Synthesis.Voices),
	}, speaker, logger)

	tts := application.NewTextToSpeechController(synth, application.SynthesisConfig{
		Rate:     cfg.Synthesis.Rate,
		Pitch:    cfg.Synthesis.Pitch,
		Volume:   cfg.Synthesis.Volume,
		Language: cfg.Synthesis.Language,
	}, loop, logger)
	tts.OnError = func(err *application.Error) {
		logger.Warn("speech synthesis", "error", err)
	}

	if *listVoices {
		for _, v := range synth.Voices() {
			fmt.Printf("%s\t%s\t%s\n", v.ID, v.Language, v.Name)
		}
		return
	}

	if *say != "" {
		speak(tts, synth, loop, *say)
		return
	}

	text, err := record(ctx, cfg, loop, *duration, logger)
	if err != nil {
		logger.Error("recording", "error", err)
		os.Exit(1)
	}

	if text == "" {
		logger.Info("nothing recognized")
		return
	}
	fmt.Println(text)

	if *echo {
		speak(tts, synth, loop, text)
	}
}

func speak(tts *application.TextToSpeechController, synth *openai.Synthesizer, loop *application.Loop, text string) {
	loop.Do(func() { tts.Speak(text) })
	synth.Wait()
}

func record(ctx context.Context, cfg *config.Config, loop *application.Loop, duration time.Duration, logger *slog.Logger) (string, error) {
	interval, _ := cfg.Recognition.Interval()
	maxDuration, _ := cfg.Recognition.MaxSessionDuration()
	engine, finished := createAudioEngine(cfg.Audio, logger)

	stt := application.NewSpeechToTextController(
		cfg.Recognition.Locale,
		openai.NewRecognizerFactory(openai.RecognizerConfig{
			APIKey:          cfg.Recognition.APIKey,
			BaseURL:         cfg.Recognition.BaseURL,
			Model:           cfg.Recognition.Model,
			PartialInterval: interval,
			MaxDuration:     maxDuration,
		}, logger),
		engine,
		&application.NoopAudioSession{},
		loop,
		logger,
	)

	started := make(chan struct{})
	failed := make(chan *application.Error, 1)
	stopped := make(chan string, 1)
	finals := make(chan string, 1)

	stt.OnStart = func() { close(started) }
	stt.OnTranscriptUpdate = func(text string) {
		logger.Info("transcript", "text", text)
	}
	stt.OnFinalTranscript = func(text string) {
		select {
		case finals <- text:
		default:
		}
	}
	stt.OnError = func(err *application.Error) {
		select {
		case failed <- err:
		default:
		}
	}
	stt.OnStop = func(finalText string, ok bool) {
		select {
		case stopped <- finalText:
		default:
		}
	}

	loop.Do(stt.StartRecording)

	select {
	case <-started:
	case err := <-failed:
		return "", err
	case <-ctx.Done():
		loop.Do(stt.StopRecording)
		return "", nil
	}

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	var recognitionErr error
	select {
	case <-ctx.Done():
	case <-timeout:
	case <-finished():
	case err := <-failed:
		recognitionErr = err
	}

	loop.Do(stt.StopRecording)

	var text string
	select {
	case text = <-stopped:
	default:
	}

	// ctx is usually already cancelled here: SIGINT is how a microphone
	// recording ends.
	if recognitionErr == nil {
		select {
		case text = <-finals:
		case <-time.After(finalTranscriptTimeout):
			logger.Warn("no final transcript", "timeout", finalTranscriptTimeout)
		}
	}

	if recognitionErr != nil && !errors.Is(recognitionErr, &application.Error{Kind: application.KindRecognition}) {
		return text, recognitionErr
	}
	if recognitionErr != nil {
		logger.Warn("recognition ended early", "error", recognitionErr)
	}
	return text, nil
}

// createAudioEngine also returns a func yielding a channel closed when the
// source runs dry; the microphone never does.
func createAudioEngine(cfg config.AudioConfig, logger *slog.Logger) (application.AudioEngine, func() <-chan struct{}) {
	switch cfg.Source {
	case "file":
		engine := audio.NewFileEngine(cfg.File, cfg.FramesPerBuffer, logger)
		return engine, engine.Finished
	default:
		never := func() <-chan struct{} { return nil }
		return audio.NewMicrophone(cfg.SampleRate, cfg.FramesPerBuffer, logger), never
	}
}

func voices(cfgs []config.VoiceConfig) []application.Voice {
	var out []application.Voice
	for _, v := range cfgs {
		for _, lang := range v.Languages {
			out = append(out, application.Voice{ID: v.ID, Name: v.Name, Language: lang})
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
