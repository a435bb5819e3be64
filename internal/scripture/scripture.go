// Package scripture validates and resolves Qur'an and hadith citations
// through a local cache backed by a remote passage source.
package scripture

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/tarjuman/internal"
)

// Error kinds.
const (
	KindInvalidReference = "invalid_reference"
	KindNotFound         = "not_found"
)

// ErrNotFound is returned by sources and caches for unknown references.
var ErrNotFound = errors.New("scripture passage not found")

// Error is a resolution failure for one citation.
type Error struct {
	Kind      string
	Code      string
	Reference string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Reference != "" {
		msg += ": " + e.Reference
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Passage is a resolved citation.
type Passage struct {
	Type      string            `json:"type"`
	Reference string            `json:"reference"`
	Arabic    string            `json:"arabic"`
	English   string            `json:"english"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

var (
	quranRefRe  = regexp.MustCompile(`^\d+:\d+(-\d+)?$`)
	spaceRe     = regexp.MustCompile(`\s+`)
	digitFolder = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
)

// NormalizeReference folds Arabic-Indic digits, trims, and removes spaces
// around separators.
func NormalizeReference(ref string) string {
	ref = digitFolder.Replace(strings.TrimSpace(ref))
	ref = strings.ReplaceAll(ref, "：", ":")
	ref = spaceRe.ReplaceAllString(ref, " ")
	ref = strings.ReplaceAll(ref, " :", ":")
	ref = strings.ReplaceAll(ref, ": ", ":")
	ref = strings.ReplaceAll(ref, " -", "-")
	ref = strings.ReplaceAll(ref, "- ", "-")
	return ref
}

// Validate checks the format of a citation. Only Qur'an references have a
// fixed chapter:verse[-verse] format; hadith references just need content.
func Validate(ref internal.ScriptureRef) error {
	key := lookupKey(ref)
	switch ref.Type {
	case internal.ScriptureQuran:
		if !quranRefRe.MatchString(key) {
			return &Error{Kind: KindInvalidReference, Code: "invalid_quran_reference", Reference: displayRef(ref)}
		}
	case internal.ScriptureHadith:
		if key == "" {
			return &Error{Kind: KindInvalidReference, Code: "empty_hadith_reference", Reference: displayRef(ref)}
		}
	default:
		return &Error{Kind: KindInvalidReference, Code: "unknown_scripture_type", Reference: fmt.Sprintf("%s:%s", ref.Type, displayRef(ref))}
	}
	return nil
}

// lookupKey is the normalized reference used for cache and remote lookups.
func lookupKey(ref internal.ScriptureRef) string {
	if ref.Normalized != "" {
		return NormalizeReference(ref.Normalized)
	}
	return NormalizeReference(ref.Reference)
}

func displayRef(ref internal.ScriptureRef) string {
	if ref.Reference != "" {
		return ref.Reference
	}
	return ref.Normalized
}

func cacheKey(typ, key string) string {
	return typ + "/" + key
}
