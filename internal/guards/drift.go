package guards

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reasons reported by the semantic guard and the drift detector.
const (
	ReasonQuestionChange = "question_pattern_change"
	ReasonNegationChange = "negation_pattern_change"
	ReasonLengthDelta    = "length_delta"
	ReasonLengthRatio    = "length_ratio"
	ReasonSentenceDelta  = "sentence_count_change"
)

type DriftResult struct {
	Similarity float64  `json:"similarity"`
	Flags      []string `json:"flags,omitempty"`
	Pass       bool     `json:"pass"`
	Score      float64  `json:"score"`
}

// Drift measures how far the normalized variant moved from the original.
func (g *Guards) Drift(original, enhanced string) DriftResult {
	c := g.cfg
	res := DriftResult{Similarity: Jaccard(original, enhanced)}

	lo, le := utf8.RuneCountInString(original), utf8.RuneCountInString(enhanced)
	if lo > 0 {
		ratio := float64(le) / float64(lo)
		if ratio < c.DriftLengthLow || ratio > c.DriftLengthHigh {
			res.Flags = append(res.Flags, ReasonLengthRatio)
		}
	}
	if abs(len(Sentences(original))-len(Sentences(enhanced))) > 1 {
		res.Flags = append(res.Flags, ReasonSentenceDelta)
	}
	if QuestionCount(original) != QuestionCount(enhanced) {
		res.Flags = append(res.Flags, ReasonQuestionChange)
	}
	if NegationCount(original) != NegationCount(enhanced) {
		res.Flags = append(res.Flags, ReasonNegationChange)
	}

	res.Pass = res.Similarity >= c.DriftSimilarity && len(res.Flags) <= c.DriftMaxFlags
	res.Score = res.Similarity
	return res
}

type SemanticResult struct {
	Pass     bool     `json:"pass"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Semantic is the hard check run before drift: a change in question or
// negation structure fails the row outright. A large length change only
// warns.
func (g *Guards) Semantic(original, enhanced string) SemanticResult {
	res := SemanticResult{Pass: true}

	var reasons []string
	if qo, qe := QuestionCount(original), QuestionCount(enhanced); qo != qe {
		reasons = append(reasons, fmt.Sprintf("%s: %d -> %d", ReasonQuestionChange, qo, qe))
	}
	if no, ne := NegationCount(original), NegationCount(enhanced); no != ne {
		reasons = append(reasons, fmt.Sprintf("%s: %d -> %d", ReasonNegationChange, no, ne))
	}
	if len(reasons) > 0 {
		res.Pass = false
		res.Reason = strings.Join(reasons, "; ")
	}

	lo, le := utf8.RuneCountInString(original), utf8.RuneCountInString(enhanced)
	if lo > 0 {
		delta := float64(abs(le-lo)) / float64(lo)
		if delta > g.cfg.SemanticLengthDelta {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %.1f%%", ReasonLengthDelta, delta*100))
		}
	}
	return res
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
