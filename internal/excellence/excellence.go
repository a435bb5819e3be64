// Package excellence implements the readability rail applied after tone
// refinement: a deterministic style pass followed by readability and
// audience analysis.
package excellence

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Targets bound the acceptable readability of a final translation.
type Targets struct {
	MaxGrade           float64 `mapstructure:"max_grade" json:"maxGrade"`
	MaxLongSentencePct float64 `mapstructure:"max_long_sentence_pct" json:"maxLongSentencePct"`
	LongSentenceWords  int     `mapstructure:"long_sentence_words" json:"longSentenceWords"`
}

func DefaultTargets() Targets {
	return Targets{
		MaxGrade:           10,
		MaxLongSentencePct: 20,
		LongSentenceWords:  25,
	}
}

// Analysis is the readability profile of an English text.
type Analysis struct {
	Grade           float64 `json:"grade"`
	LongSentencePct float64 `json:"longSentencePct"`
	AudienceScore   float64 `json:"audienceScore"`
	Sentences       int     `json:"sentences"`
	Words           int     `json:"words"`
}

// Rail bundles the style pass and analyzers under one set of targets.
type Rail struct {
	targets       Targets
	substitutions []substitution
}

type substitution struct {
	from string
	to   string
	re   *regexp.Regexp
}

// defaultSubstitutions maps ornate or archaic English to plain equivalents.
var defaultSubstitutions = map[string]string{
	"whilst":          "while",
	"amongst":         "among",
	"upon which":      "on which",
	"thereupon":       "then",
	"wherefore":       "why",
	"hitherto":        "until now",
	"henceforth":      "from now on",
	"in order to":     "to",
	"utilize":         "use",
	"commence":        "begin",
	"endeavour":       "try",
	"forthwith":       "immediately",
	"notwithstanding": "despite",
}

func New(targets Targets) *Rail {
	if targets.MaxGrade == 0 {
		targets.MaxGrade = DefaultTargets().MaxGrade
	}
	if targets.MaxLongSentencePct == 0 {
		targets.MaxLongSentencePct = DefaultTargets().MaxLongSentencePct
	}
	if targets.LongSentenceWords == 0 {
		targets.LongSentenceWords = DefaultTargets().LongSentenceWords
	}

	keys := make([]string, 0, len(defaultSubstitutions))
	for k := range defaultSubstitutions {
		keys = append(keys, k)
	}
	// Longer phrases first so "upon which" wins over any shorter overlap.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	r := &Rail{targets: targets}
	for _, k := range keys {
		r.substitutions = append(r.substitutions, substitution{
			from: k,
			to:   defaultSubstitutions[k],
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`),
		})
	}
	return r
}

func (r *Rail) Targets() Targets { return r.targets }

// StylePass applies the lexical substitutions and returns the rewritten text
// with the list of substitutions that fired, formatted as "from->to".
func (r *Rail) StylePass(text string) (string, []string) {
	var applied []string
	for _, s := range r.substitutions {
		if !s.re.MatchString(text) {
			continue
		}
		text = s.re.ReplaceAllStringFunc(text, func(m string) string {
			return matchCase(m, s.to)
		})
		applied = append(applied, s.from+"->"+s.to)
	}
	return text, applied
}

// Analyze computes the Flesch-Kincaid grade, the share of sentences longer
// than the target word count and an audience score in [0,1].
func (r *Rail) Analyze(text string) Analysis {
	sentences := splitSentences(text)
	var a Analysis
	a.Sentences = len(sentences)
	if a.Sentences == 0 {
		return a
	}

	syllables, long := 0, 0
	for _, s := range sentences {
		words := strings.FieldsFunc(s, func(c rune) bool {
			return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '\''
		})
		a.Words += len(words)
		if len(words) > r.targets.LongSentenceWords {
			long++
		}
		for _, w := range words {
			syllables += countSyllables(w)
		}
	}
	if a.Words == 0 {
		return a
	}

	wps := float64(a.Words) / float64(a.Sentences)
	spw := float64(syllables) / float64(a.Words)
	a.Grade = round1(0.39*wps + 11.8*spw - 15.59)
	if a.Grade < 0 {
		a.Grade = 0
	}
	a.LongSentencePct = round1(float64(long) / float64(a.Sentences) * 100)

	gradeFit := 1.0
	if a.Grade > r.targets.MaxGrade {
		gradeFit = math.Max(0, 1-(a.Grade-r.targets.MaxGrade)/r.targets.MaxGrade)
	}
	a.AudienceScore = round2(gradeFit * (1 - a.LongSentencePct/100))
	return a
}

// WithinTargets reports whether the analysis meets the rail targets.
func (r *Rail) WithinTargets(a Analysis) bool {
	return a.Grade <= r.targets.MaxGrade && a.LongSentencePct <= r.targets.MaxLongSentencePct
}

var sentenceRe = regexp.MustCompile(`[.!?]+`)

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// countSyllables is the usual vowel-group heuristic with a silent trailing e.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	count, prevVowel := 0, false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func matchCase(orig, repl string) string {
	if orig == "" || repl == "" {
		return repl
	}
	first := []rune(orig)[0]
	if unicode.IsUpper(first) {
		rr := []rune(repl)
		rr[0] = unicode.ToUpper(rr[0])
		return string(rr)
	}
	return repl
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }
