// Package normalize produces the "enhanced" variant of a source row: the
// same text with typographic noise removed so that translation, TM lookup
// and drift checks compare like with like.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"«", `"`, "»", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"′", "'", "´", "'",
	)

	// Only separators are mapped; the Arabic question mark is left alone so
	// question counts survive normalization.
	asciiPunctReplacer = strings.NewReplacer(
		"،", ",", // Arabic comma
		"؛", ";", // Arabic semicolon
		"٫", ".", // Arabic decimal separator
		"۔", ".", // Arabic full stop
	)
)

type Options struct {
	// ASCIIPunctuation maps Arabic separators to their ASCII equivalents.
	ASCIIPunctuation bool
}

// Normalizer turns an original row text into its enhanced form.
type Normalizer interface {
	Normalize(text string) string
}

// Enhancer is the default Normalizer.
type Enhancer struct {
	opts Options
}

func New(opts Options) *Enhancer {
	return &Enhancer{opts: opts}
}

// Normalize strips elongation marks, unifies quotation glyphs, collapses
// whitespace and applies NFC.
func (e *Enhancer) Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.Map(func(r rune) rune {
		if r == tatweel {
			return -1
		}
		return r
	}, text)
	text = quoteReplacer.Replace(text)
	if e.opts.ASCIIPunctuation {
		text = asciiPunctReplacer.Replace(text)
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Func adapts a plain function to Normalizer.
type Func func(string) string

func (f Func) Normalize(text string) string { return f(text) }
