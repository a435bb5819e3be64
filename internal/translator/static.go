package translator

import (
	"context"
	"strings"
	"sync/atomic"
)

// Static answers without any network call. By default it echoes the
// source text, which is enough for a dry run of the pipeline; Respond can
// replace that behaviour.
type Static struct {
	Respond func(req TranslateRequest) (string, error)
	calls   atomic.Int64
}

func NewStatic(respond func(req TranslateRequest) (string, error)) *Static {
	return &Static{Respond: respond}
}

func (s *Static) Name() string {
	return "dry-run"
}

func (s *Static) Translate(_ context.Context, _ ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	s.calls.Add(1)
	result := &ServiceResult{ServiceName: s.Name(), Confidence: 1}

	if s.Respond == nil {
		result.TranslatedText = strings.TrimSpace(req.Text)
		if e := req.Expansion; e != nil {
			result.TranslatedText = padTo(result.TranslatedText, e.TargetWords())
		}
		return result, nil
	}
	text, err := s.Respond(req)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.TranslatedText = text
	return result, nil
}

func (s *Static) IsAvailable(context.Context) error { return nil }

// Calls reports how many translations were requested.
func (s *Static) Calls() int64 { return s.calls.Load() }

func padTo(text string, words int) string {
	fields := strings.Fields(text)
	for len(fields) < words {
		fields = append(fields, "indeed")
	}
	return strings.Join(fields, " ")
}
