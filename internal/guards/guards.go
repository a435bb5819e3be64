// Package guards implements the quality checks run on every row: length
// preservation (LPR), clause coverage, semantic drift between the original
// and its normalized variant, and the aggregate recommendation.
//
// All functions are pure. Thresholds come from a GuardConfig value fixed at
// construction; a Guards value is safe for concurrent use.
package guards

// GuardConfig holds every numeric threshold used by the guards.
type GuardConfig struct {
	LPRMin     float64 `mapstructure:"lpr_min" json:"lpr_min"`
	LPRIdeal   float64 `mapstructure:"lpr_ideal" json:"lpr_ideal"`
	LPRCeiling float64 `mapstructure:"lpr_ceiling" json:"lpr_ceiling"`
	// StrictLPR is the second, stricter floor below which a row is flagged
	// for an expansion pass even when the basic LPR guard passes.
	StrictLPR float64 `mapstructure:"strict_lpr" json:"strict_lpr"`

	CoveragePass   float64 `mapstructure:"coverage_pass" json:"coverage_pass"`
	CoverageReject float64 `mapstructure:"coverage_reject" json:"coverage_reject"`

	DriftSimilarity float64 `mapstructure:"drift_similarity" json:"drift_similarity"`
	DriftMaxFlags   int     `mapstructure:"drift_max_flags" json:"drift_max_flags"`
	DriftLengthLow  float64 `mapstructure:"drift_length_low" json:"drift_length_low"`
	DriftLengthHigh float64 `mapstructure:"drift_length_high" json:"drift_length_high"`

	// SemanticLengthDelta is the relative length change that produces a
	// non-fatal warning in the semantic guard.
	SemanticLengthDelta float64 `mapstructure:"semantic_length_delta" json:"semantic_length_delta"`
}

// DefaultConfig returns the built-in deployment gates.
func DefaultConfig() GuardConfig {
	return GuardConfig{
		LPRMin:              0.95,
		LPRIdeal:            1.05,
		LPRCeiling:          1.20,
		StrictLPR:           1.08,
		CoveragePass:        0.95,
		CoverageReject:      0.90,
		DriftSimilarity:     0.85,
		DriftMaxFlags:       1,
		DriftLengthLow:      0.95,
		DriftLengthHigh:     1.05,
		SemanticLengthDelta: 0.05,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c GuardConfig) WithDefaults() GuardConfig {
	d := DefaultConfig()
	if c.LPRMin <= 0 {
		c.LPRMin = d.LPRMin
	}
	if c.LPRIdeal <= 0 {
		c.LPRIdeal = d.LPRIdeal
	}
	if c.LPRCeiling <= 0 {
		c.LPRCeiling = d.LPRCeiling
	}
	if c.StrictLPR <= 0 {
		c.StrictLPR = d.StrictLPR
	}
	if c.CoveragePass <= 0 {
		c.CoveragePass = d.CoveragePass
	}
	if c.CoverageReject <= 0 {
		c.CoverageReject = d.CoverageReject
	}
	if c.DriftSimilarity <= 0 {
		c.DriftSimilarity = d.DriftSimilarity
	}
	if c.DriftMaxFlags <= 0 {
		c.DriftMaxFlags = d.DriftMaxFlags
	}
	if c.DriftLengthLow <= 0 {
		c.DriftLengthLow = d.DriftLengthLow
	}
	if c.DriftLengthHigh <= 0 {
		c.DriftLengthHigh = d.DriftLengthHigh
	}
	if c.SemanticLengthDelta <= 0 {
		c.SemanticLengthDelta = d.SemanticLengthDelta
	}
	return c
}

type Guards struct {
	cfg GuardConfig
}

// New copies cfg; later changes to the caller's value have no effect.
func New(cfg GuardConfig) *Guards {
	return &Guards{cfg: cfg.WithDefaults()}
}

// Config returns the thresholds in use.
func (g *Guards) Config() GuardConfig { return g.cfg }
