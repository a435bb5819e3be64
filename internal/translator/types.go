package translator

import (
	"context"
	"strconv"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// Expansion asks the service for a fuller rendering of a translation that
// came out too short.
type Expansion struct {
	TargetLPR   float64 `json:"target_lpr"`
	SourceWords int     `json:"source_words"`
	Previous    string  `json:"previous,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// TargetWords is the minimum English word count that reaches TargetLPR.
func (e Expansion) TargetWords() int {
	n := int(float64(e.SourceWords)*e.TargetLPR + 0.999)
	if n < 1 {
		n = 1
	}
	return n
}

type TranslateRequest struct {
	RowID      string     `json:"row_id,omitempty"`
	Text       string     `json:"text"`
	SourceLang string     `json:"source_lang"`
	TargetLang string     `json:"target_lang"`
	Complexity int        `json:"complexity,omitempty"`
	Expansion  *Expansion `json:"expansion,omitempty"`
	// Markers is set when Text carries protected ⟦n⟧ markers.
	Markers    bool       `json:"markers,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// Metadata keys reported by LLM-backed services.
const (
	MetaModel        = "model"
	MetaInputTokens  = "prompt_tokens"
	MetaOutputTokens = "completion_tokens"
)

// Usage is a token count reported by a chat backend.
type Usage struct {
	Model  string
	Input  int
	Output int
}

// Usage returns the reported model and token counts, if any.
func (r *ServiceResult) Usage() (model string, input, output int, ok bool) {
	if r == nil || r.Metadata == nil {
		return "", 0, 0, false
	}
	model = r.Metadata[MetaModel]
	in, errIn := strconv.Atoi(r.Metadata[MetaInputTokens])
	out, errOut := strconv.Atoi(r.Metadata[MetaOutputTokens])
	if errIn != nil || errOut != nil {
		return model, 0, 0, false
	}
	return model, in, out, true
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
