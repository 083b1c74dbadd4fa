package application

import "log/slog"

// SynthesisConfig is read on every Speak call.
type SynthesisConfig struct {
	Rate     float64
	Pitch    float64
	Volume   float64
	Language string
}

func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Rate:     1.0,
		Pitch:    1.0,
		Volume:   1.0,
		Language: "en-US",
	}
}

// TextToSpeechController keeps at most one utterance active on a Synthesizer.
// Like SpeechToTextController it is single-owner and lock-free.
type TextToSpeechController struct {
	Config  SynthesisConfig
	OnError func(err *Error)

	synth    Synthesizer
	dispatch Dispatcher
	logger   *slog.Logger

	speaking bool
	paused   bool
	current  *Utterance
	err      *Error
	nextID   uint64
}

func NewTextToSpeechController(synth Synthesizer, config SynthesisConfig, dispatch Dispatcher, logger *slog.Logger) *TextToSpeechController {
	if dispatch == nil {
		dispatch = Inline{}
	}
	c := &TextToSpeechController{
		Config:   config,
		synth:    synth,
		dispatch: dispatch,
		logger:   logger,
	}
	synth.SetFinishHandler(func(u Utterance) {
		c.dispatch.Dispatch(func() {
			c.handleFinish(u)
		})
	})
	return c
}

func (c *TextToSpeechController) IsSpeaking() bool { return c.speaking }
func (c *TextToSpeechController) Err() *Error      { return c.err }

// CurrentUtterance returns the last submitted text, ok=false before the first.
func (c *TextToSpeechController) CurrentUtterance() (string, bool) {
	if c.current == nil {
		return "", false
	}
	return c.current.Text, true
}

// Speak speaks text in the configured language.
func (c *TextToSpeechController) Speak(text string) {
	c.speak(text, "")
}

// SpeakLanguage speaks text in language instead of the configured one.
func (c *TextToSpeechController) SpeakLanguage(text, language string) {
	c.speak(text, language)
}

func (c *TextToSpeechController) speak(text, languageOverride string) {
	if text == "" {
		return
	}

	// a paused utterance is not speaking but still holds the engine
	if c.paused || c.synth.IsSpeaking() {
		c.synth.Stop(BoundaryImmediate)
	}
	c.paused = false

	lang := c.Config.Language
	if languageOverride != "" {
		lang = languageOverride
	}

	voice, ok := VoiceFor(c.synth.Voices(), lang)
	if !ok {
		// The engine may still fall back to a default voice, so keep going.
		c.err = VoiceUnavailableError(lang)
		c.logger.Warn("no voice for language", "language", lang)
		if c.OnError != nil {
			c.OnError(c.err)
		}
	}

	c.nextID++
	u := &Utterance{
		ID:       c.nextID,
		Text:     text,
		Voice:    voice,
		Language: lang,
		Rate:     c.Config.Rate,
		Pitch:    c.Config.Pitch,
		Volume:   c.Config.Volume,
	}

	c.current = u
	c.speaking = true

	c.logger.Debug("speaking", "utterance", u.ID, "language", lang, "chars", len(text))
	c.synth.Speak(*u)
}

// Pause asks the engine to pause at the next word.
func (c *TextToSpeechController) Pause() {
	c.synth.Pause(BoundaryWord)
	if c.speaking {
		c.paused = true
	}
	c.speaking = false
}

func (c *TextToSpeechController) Resume() {
	c.synth.Continue()
	c.speaking = true
	c.paused = false
}

func (c *TextToSpeechController) Stop() {
	c.synth.Stop(BoundaryImmediate)
	c.speaking = false
	c.paused = false
}

func (c *TextToSpeechController) handleFinish(u Utterance) {
	if c.current == nil || u.ID != c.current.ID {
		return
	}
	c.speaking = false
	c.paused = false
}
