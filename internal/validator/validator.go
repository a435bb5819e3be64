// Package validator checks that a row's English output is actually in the
// target language. A mismatch is reported as a semantic warning on the row,
// never as a failure.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/tarjuman/internal/detector"
)

// WarningLanguageMismatch prefixes the warning added to a row.
const WarningLanguageMismatch = "language_mismatch"

// minValidationLength is the rune count below which detection is too noisy
// to trust.
const minValidationLength = 20

// Validator reuses one detector; building it is expensive.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid reports whether translatedText appears to be in targetLang. Short
// texts and texts with no confident detection pass.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}
	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", strings.ToLower(targetLang), detected)
	}
	return true, nil
}

// Warnings returns the row warnings for translatedText, if any.
func (v *Validator) Warnings(translatedText, targetLang string) []string {
	if ok, err := v.IsValid(translatedText, targetLang); !ok {
		return []string{fmt.Sprintf("%s: %v", WarningLanguageMismatch, err)}
	}
	return nil
}
