package guards

import "github.com/valpere/tarjuman/internal"

type Overall struct {
	Pass   bool     `json:"pass"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

type Assessment struct {
	LPR            LPRResult      `json:"lpr"`
	Coverage       CoverageResult `json:"coverage"`
	Drift          *DriftResult   `json:"drift,omitempty"`
	Overall        Overall        `json:"overall"`
	Recommendation string         `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
}

// NeedsStrictExpansion reports whether the LPR sits below the stricter
// expansion floor, even if the basic guard passed.
func (g *Guards) NeedsStrictExpansion(a Assessment) bool {
	return a.LPR.Ratio < g.cfg.StrictLPR
}

// Assess runs every guard for a row. enhanced is the normalized source; drift
// is only computed when it differs from original.
func (g *Guards) Assess(original, english, enhanced string) Assessment {
	a := Assessment{
		LPR:      g.LPR(original, english),
		Coverage: g.Coverage(original, english),
	}
	if enhanced != "" && enhanced != original {
		d := g.Drift(original, enhanced)
		a.Drift = &d
	}

	scores := []float64{a.LPR.Score, a.Coverage.Score}
	a.Overall.Pass = a.LPR.Pass && a.Coverage.Pass
	if !a.LPR.Pass {
		a.Overall.Issues = append(a.Overall.Issues, "lpr: "+issueOr(a.LPR.Issue, "out of range"))
	}
	if !a.Coverage.Pass {
		a.Overall.Issues = append(a.Overall.Issues, "coverage: below threshold")
	}
	if a.Drift != nil {
		scores = append(scores, a.Drift.Score)
		if !a.Drift.Pass {
			a.Overall.Pass = false
			a.Overall.Issues = append(a.Overall.Issues, "drift: semantic drift detected")
		}
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	a.Confidence = sum / float64(len(scores))
	a.Overall.Score = a.Confidence

	driftFailed := a.Drift != nil && !a.Drift.Pass
	switch {
	case a.LPR.Recommendation == internal.RecommendReject:
		a.Recommendation = internal.RecommendReject
	case a.LPR.Ratio < g.cfg.LPRMin:
		a.Recommendation = internal.RecommendExpand
	case a.Coverage.Ratio < g.cfg.CoverageReject || driftFailed:
		a.Recommendation = internal.RecommendReject
	case !a.Overall.Pass:
		a.Recommendation = internal.RecommendReview
	default:
		a.Recommendation = internal.RecommendAccept
	}
	return a
}

func issueOr(issue, fallback string) string {
	if issue == "" {
		return fallback
	}
	return issue
}
