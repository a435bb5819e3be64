package guards

type CoverageResult struct {
	Ratio          float64  `json:"ratio"`
	SourceClauses  int      `json:"sourceClauses"`
	TargetClauses  int      `json:"targetClauses"`
	Pass           bool     `json:"pass"`
	Score          float64  `json:"score"`
	UnmappedSource []string `json:"unmappedSource,omitempty"`
}

// Coverage compares clause counts. The ratio is always within [0, 1].
func (g *Guards) Coverage(source, target string) CoverageResult {
	src, dst := Clauses(source), Clauses(target)
	res := CoverageResult{
		SourceClauses: len(src),
		TargetClauses: len(dst),
	}

	if len(src) == 0 {
		res.Ratio = 1
	} else {
		res.Ratio = float64(min(len(src), len(dst))) / float64(len(src))
	}
	if len(src) > len(dst) {
		res.UnmappedSource = src[len(dst):]
	}
	res.Pass = res.Ratio >= g.cfg.CoveragePass
	res.Score = res.Ratio
	return res
}
