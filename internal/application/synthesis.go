package application

import (
	"strings"

	"golang.org/x/text/language"
)

type Boundary int

const (
	BoundaryImmediate Boundary = iota
	BoundaryWord
)

type Voice struct {
	ID       string
	Name     string
	Language string
}

// Utterance is one unit of text submitted to a Synthesizer.
type Utterance struct {
	ID       uint64
	Text     string
	Voice    *Voice
	Language string
	Rate     float64
	Pitch    float64
	Volume   float64
}

// Synthesizer speaks one utterance at a time. Pause, Continue and Stop report
// whether the engine acted; they are safe to call when nothing is playing.
type Synthesizer interface {
	Speak(u Utterance)
	Pause(at Boundary) bool
	Continue() bool
	Stop(at Boundary) bool
	IsSpeaking() bool
	Voices() []Voice
	SetFinishHandler(fn func(Utterance))
}

// CanonicalLanguage normalises a BCP 47 tag ("en_us" -> "en-US"). Unparsable
// input is returned unchanged.
func CanonicalLanguage(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	return tag.String()
}

// VoiceFor returns the first voice whose language matches code.
func VoiceFor(voices []Voice, code string) (*Voice, bool) {
	want := CanonicalLanguage(code)
	for i := range voices {
		if CanonicalLanguage(voices[i].Language) == want {
			return &voices[i], true
		}
	}
	return nil, false
}
