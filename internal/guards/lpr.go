package guards

import (
	"fmt"

	"github.com/valpere/tarjuman/internal"
)

type LPRResult struct {
	Ratio          float64 `json:"ratio"`
	SourceWords    int     `json:"sourceWords"`
	TargetWords    int     `json:"targetWords"`
	Pass           bool    `json:"pass"`
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
	Issue          string  `json:"issue,omitempty"`
}

// CalculateLPR returns translated word count divided by original word count.
// It returns 0 when either side is empty.
func CalculateLPR(original, translated string) float64 {
	src, dst := WordCount(original), WordCount(translated)
	if src == 0 || dst == 0 {
		return 0
	}
	return float64(dst) / float64(src)
}

// LPR evaluates the length preservation ratio against the configured band.
func (g *Guards) LPR(original, translated string) LPRResult {
	res := LPRResult{
		SourceWords: WordCount(original),
		TargetWords: WordCount(translated),
	}
	if res.SourceWords == 0 || res.TargetWords == 0 {
		res.Recommendation = internal.RecommendReject
		res.Issue = "empty_input"
		return res
	}

	c := g.cfg
	res.Ratio = float64(res.TargetWords) / float64(res.SourceWords)
	res.Pass = res.Ratio >= c.LPRMin && res.Ratio <= c.LPRCeiling

	switch {
	case res.Ratio < c.LPRMin:
		res.Recommendation = internal.RecommendExpand
		res.Issue = fmt.Sprintf("lpr %.2f below minimum %.2f", res.Ratio, c.LPRMin)
	case res.Ratio < c.LPRIdeal:
		res.Recommendation = internal.RecommendReview
	case res.Ratio <= c.LPRCeiling:
		res.Recommendation = internal.RecommendAccept
	default:
		res.Recommendation = internal.RecommendReview
		res.Issue = fmt.Sprintf("lpr %.2f above ceiling %.2f", res.Ratio, c.LPRCeiling)
	}

	switch {
	case res.Ratio < c.LPRIdeal:
		res.Score = res.Ratio / c.LPRIdeal
	case res.Ratio > c.LPRCeiling:
		res.Score = c.LPRCeiling / res.Ratio
	default:
		res.Score = 1
	}
	return res
}
