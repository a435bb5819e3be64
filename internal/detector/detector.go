// Package detector identifies the language of row text. The candidate set is
// limited to languages that appear in source sections or their
// translations, which keeps the model small and detection stable.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the candidates used when none are given.
var DefaultLanguages = []lingua.Language{
	lingua.Arabic,
	lingua.English,
	lingua.Persian,
	lingua.Urdu,
	lingua.French,
	lingua.Turkish,
	lingua.Malay,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New(languages ...lingua.Language) *Detector {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the ISO 639-1 code, lower case.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
