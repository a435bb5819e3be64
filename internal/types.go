package internal

import "time"

// Scripture reference types.
const (
	ScriptureQuran  = "quran"
	ScriptureHadith = "hadith"
)

// Recommendation values produced by the quality assessment.
const (
	RecommendAccept = "accept"
	RecommendReview = "review"
	RecommendExpand = "expand"
	RecommendReject = "reject"
)

type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID            string         `json:"id"`
	SectionID     string         `json:"sectionId,omitempty"`
	Original      string         `json:"original"`
	Enhanced      string         `json:"enhanced,omitempty"`
	English       string         `json:"english,omitempty"`
	Complexity    int            `json:"complexity"`
	ScriptureRefs []ScriptureRef `json:"scriptureRefs,omitempty"`
	Footnotes     []Footnote     `json:"footnotes,omitempty"`
	Metadata      RowMetadata    `json:"metadata"`
}

// ScriptureRef is a citation attached to a row. A ref with an empty
// Reference but a Normalized value is context-only.
type ScriptureRef struct {
	Type       string `json:"type"`
	Reference  string `json:"reference"`
	Normalized string `json:"normalized,omitempty"`
}

// ContextOnly reports whether the citation is informational and must never
// fail the owning row.
func (r ScriptureRef) ContextOnly() bool {
	return r.Reference == "" && r.Normalized != ""
}

type Footnote struct {
	Number    int               `json:"number"`
	Reference string            `json:"reference"`
	Arabic    string            `json:"arabic"`
	English   string            `json:"english"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type RowMetadata struct {
	LaneHash         string         `json:"laneHash,omitempty"`
	ProcessedAt      *time.Time     `json:"processedAt,omitempty"`
	LPR              float64        `json:"lpr,omitempty"`
	QualityGates     QualityGates   `json:"qualityGates"`
	Clauses          int            `json:"clauses,omitempty"`
	Confidence       float64        `json:"confidence,omitempty"`
	Recommendation   string         `json:"recommendation,omitempty"`
	TM               TMUsage        `json:"tm"`
	NeedsExpand      bool           `json:"needsExpand"`
	NeedsReadability bool           `json:"needsReadability"`
	Expansion        ExpansionInfo  `json:"expansion"`
	ExcellenceRail   ExcellenceInfo `json:"excellenceRail"`
	SemanticWarnings []string       `json:"semanticWarnings,omitempty"`
}

type QualityGates struct {
	LPR       bool `json:"lpr"`
	Coverage  bool `json:"coverage"`
	Drift     bool `json:"drift"`
	Semantic  bool `json:"semantic"`
	Scripture bool `json:"scripture"`
}

type TMUsage struct {
	Used         bool    `json:"used"`
	SuggestionID string  `json:"suggestionId,omitempty"`
	Similarity   float64 `json:"similarity,omitempty"`
}

type ExpansionInfo struct {
	Applied   bool       `json:"applied"`
	TargetLPR float64    `json:"targetLpr,omitempty"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

type ExcellenceInfo struct {
	Applied          bool     `json:"applied"`
	Grade            float64  `json:"grade,omitempty"`
	LongSentencePct  float64  `json:"longSentencePct,omitempty"`
	AudienceScore    float64  `json:"audienceScore,omitempty"`
	Substitutions    []string `json:"substitutions,omitempty"`
	ReadabilityRetry bool     `json:"readabilityRetry,omitempty"`
}
