package refiner

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

var defaultIntensifiers = []string{
	"very", "really", "extremely", "truly", "utterly", "absolutely",
	"incredibly", "tremendously", "exceedingly", "most certainly",
}

var defaultArchaic = map[string]string{
	"thee":    "you",
	"thou":    "you",
	"thy":     "your",
	"thine":   "yours",
	"ye":      "you",
	"hath":    "has",
	"doth":    "does",
	"unto":    "to",
	"verily":  "indeed",
	"whereof": "of which",
}

// RuleRefiner is the deterministic half of tone refinement and always runs.
type RuleRefiner struct {
	intensifiers *regexp.Regexp
	archaic      []archaicRule
	spaces       *regexp.Regexp
	spacePunct   *regexp.Regexp
}

type archaicRule struct {
	re   *regexp.Regexp
	repl string
}

func NewRuleRefiner() *RuleRefiner {
	alts := make([]string, len(defaultIntensifiers))
	for i, w := range defaultIntensifiers {
		alts[i] = regexp.QuoteMeta(w)
	}
	r := &RuleRefiner{
		intensifiers: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\s+`),
		spaces:       regexp.MustCompile(`[ \t]{2,}`),
		spacePunct:   regexp.MustCompile(`\s+([,.;:!?])`),
	}
	for from, to := range defaultArchaic {
		r.archaic = append(r.archaic, archaicRule{
			re:   regexp.MustCompile(`(?i)\b` + from + `\b`),
			repl: to,
		})
	}
	return r
}

// Refine never fails; the error return satisfies Refiner.
func (r *RuleRefiner) Refine(_ context.Context, req Request) (string, error) {
	return r.Apply(req.Draft), nil
}

// Apply removes intensifiers and replaces archaic pronouns and verbs.
func (r *RuleRefiner) Apply(text string) string {
	text = r.intensifiers.ReplaceAllStringFunc(text, func(m string) string {
		// Keep sentence-initial capitalisation on the following word.
		if unicode.IsUpper([]rune(m)[0]) {
			return "\x00"
		}
		return ""
	})
	text = capitalizeMarked(text)
	for _, a := range r.archaic {
		text = a.re.ReplaceAllStringFunc(text, func(m string) string {
			if unicode.IsUpper([]rune(m)[0]) {
				return strings.ToUpper(a.repl[:1]) + a.repl[1:]
			}
			return a.repl
		})
	}
	text = r.spaces.ReplaceAllString(text, " ")
	text = r.spacePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

func capitalizeMarked(text string) string {
	if !strings.ContainsRune(text, '\x00') {
		return text
	}
	var sb strings.Builder
	upper := false
	for _, c := range text {
		if c == '\x00' {
			upper = true
			continue
		}
		if upper {
			c = unicode.ToUpper(c)
			upper = false
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
