// Package markup shields non-translatable fragments of a row (inline HTML,
// markdown footnote anchors, template tokens) behind numbered markers while the text
// is sent to a translator, then puts them back.
package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reTemplate = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	reAnchor   = regexp.MustCompile(`\[\^\d+\]`)
	reTag      = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

	reMarker = regexp.MustCompile(`⟦(\d+)⟧`)
)

// Hint is appended to translation prompts when a text carries markers.
const Hint = "Keep every ⟦n⟧ marker exactly where it belongs in the sentence. Do not translate, renumber or drop them."

// Protected is a text with its fragments replaced by markers.
type Protected struct {
	Text      string
	Fragments []string
}

// Empty reports whether nothing was shielded.
func (p Protected) Empty() bool { return len(p.Fragments) == 0 }

func marker(i int) string { return "⟦" + strconv.Itoa(i) + "⟧" }

// Protect replaces template tokens, footnote anchors and HTML tags with
// ⟦0⟧, ⟦1⟧, … in that order of precedence.
func Protect(text string) Protected {
	p := Protected{}
	replace := func(match string) string {
		p.Fragments = append(p.Fragments, match)
		return marker(len(p.Fragments) - 1)
	}
	text = reTemplate.ReplaceAllStringFunc(text, replace)
	text = reAnchor.ReplaceAllStringFunc(text, replace)
	text = reTag.ReplaceAllStringFunc(text, replace)
	p.Text = text
	return p
}

// Restore puts the fragments back into a translation of p.Text. Markers with
// an unknown index are left as they are.
func (p Protected) Restore(translated string) string {
	if p.Empty() {
		return translated
	}
	return reMarker.ReplaceAllStringFunc(translated, func(m string) string {
		idx, err := strconv.Atoi(reMarker.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(p.Fragments) {
			return m
		}
		return p.Fragments[idx]
	})
}

// Missing lists the fragments whose markers the translator dropped.
func (p Protected) Missing(translated string) []string {
	var out []string
	for i, f := range p.Fragments {
		if !strings.Contains(translated, marker(i)) {
			out = append(out, f)
		}
	}
	return out
}

// Warning describes dropped fragments for row metadata, or "" when none were
// lost.
func (p Protected) Warning(translated string) string {
	missing := p.Missing(translated)
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("translator dropped %d protected fragment(s): %s", len(missing), strings.Join(missing, " "))
}
