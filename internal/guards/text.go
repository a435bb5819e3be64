package guards

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?؟۔;\n]+`)
	// Clause boundaries inside a sentence: commas in either script and
	// standalone coordinating conjunctions.
	clauseSplitRe = regexp.MustCompile(`(?i)[,،؛]|\s(?:and|but|or|nor|so|yet|و|ثم|لكن|أو|بل)\s`)
)

// negationMarkers are counted as whole tokens in either language.
var negationMarkers = map[string]bool{
	"not": true, "no": true, "never": true, "nor": true, "none": true, "cannot": true,
	"لا": true, "لم": true, "لن": true, "ليس": true, "ليست": true, "ما": true, "غير": true, "بلا": true,
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Sentences splits on terminal punctuation, including the Arabic question
// mark and full stop, and drops empty pieces.
func Sentences(s string) []string {
	var out []string
	for _, part := range sentenceSplitRe.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clauses splits each sentence further on commas and coordinating
// conjunctions, discarding fragments of three runes or fewer.
func Clauses(s string) []string {
	var out []string
	for _, sentence := range Sentences(s) {
		padded := " " + sentence + " "
		for _, part := range clauseSplitRe.Split(padded, -1) {
			p := strings.TrimSpace(part)
			if utf8.RuneCountInString(p) > 3 {
				out = append(out, p)
			}
		}
	}
	return out
}

// QuestionCount counts Latin and Arabic question marks.
func QuestionCount(s string) int {
	return strings.Count(s, "?") + strings.Count(s, "؟")
}

// NegationCount counts negation tokens. English contractions ending in
// "n't" count once each.
func NegationCount(s string) int {
	n := 0
	for _, tok := range tokens(s) {
		if negationMarkers[tok] || strings.HasSuffix(tok, "n't") {
			n++
		}
	}
	return n
}

// WordSet returns the lowercased set of word tokens.
func WordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over lowercased word sets. Two empty texts
// are identical.
func Jaccard(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '’')
	})
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "’", "'")
	}
	return fields
}
