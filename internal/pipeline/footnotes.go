package pipeline

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/valpere/tarjuman/internal"
)

// buildFootnotes orders resolved passages by reference and numbers them from
// one. The same passage cited twice yields one footnote.
func buildFootnotes(refs []resolvedRef) []internal.Footnote {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(refs))
	notes := make([]internal.Footnote, 0, len(refs))
	for _, r := range refs {
		ref := r.passage.Reference
		if ref == "" {
			ref = r.ref.Reference
		}
		key := r.ref.Type + "/" + ref
		if seen[key] {
			continue
		}
		seen[key] = true
		notes = append(notes, internal.Footnote{
			Reference: ref,
			Arabic:    r.passage.Arabic,
			English:   r.passage.English,
			Metadata:  r.passage.Metadata,
		})
	}
	slices.SortStableFunc(notes, func(a, b internal.Footnote) int {
		return compareRefs(a.Reference, b.Reference)
	})
	for i := range notes {
		notes[i].Number = i + 1
	}
	return notes
}

var digitsRe = regexp.MustCompile(`\d+`)

// compareRefs orders "2:255" before "112:1" by comparing the numeric parts
// in sequence, then falls back to plain string order.
func compareRefs(a, b string) int {
	na, nb := digitsRe.FindAllString(a, -1), digitsRe.FindAllString(b, -1)
	if len(na) > 0 && len(nb) > 0 && prefixOf(a, na[0]) == prefixOf(b, nb[0]) {
		for i := 0; i < len(na) && i < len(nb); i++ {
			x, _ := strconv.Atoi(na[i])
			y, _ := strconv.Atoi(nb[i])
			if c := cmp.Compare(x, y); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(len(na), len(nb)); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// prefixOf returns the non-numeric text before the first number, so hadith
// collections sort by name first.
func prefixOf(s, firstNumber string) string {
	return s[:strings.Index(s, firstNumber)]
}

const terminators = ".!?؟۔…"
const closers = `"'”’»)]`

// insertAnchors places "[1][2]..." before the final sentence terminator of
// text, stepping over closing quotes and brackets. Without a terminator the
// anchors are appended.
func insertAnchors(text string, n int) string {
	if n == 0 {
		return text
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "[%d]", i)
	}
	anchors := b.String()

	text = strings.TrimRight(text, " \t\n")
	end := len(text)
	for end > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:end])
		if !strings.ContainsRune(closers, r) {
			break
		}
		end -= size
	}
	cut := end
	for cut > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:cut])
		if !strings.ContainsRune(terminators, r) {
			break
		}
		cut -= size
	}
	if cut == end {
		return text + anchors
	}
	return text[:cut] + anchors + text[cut:]
}
