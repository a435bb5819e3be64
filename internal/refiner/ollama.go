package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/tarjuman/internal/postprocess"
)

// OllamaRefiner uses a local Ollama model as the tone editor.
type OllamaRefiner struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func NewOllamaRefiner(model, baseURL string) *OllamaRefiner {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaRefiner{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Refine returns the draft unchanged when the model answers with nothing.
func (r *OllamaRefiner) Refine(ctx context.Context, req Request) (string, error) {
	system, user := buildTonePrompt(req)
	body, err := json.Marshal(ollamaRequest{
		Model:  r.model,
		Prompt: system + "\n\n" + user,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refinement request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create refinement request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refiner returned status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode refinement response: %w", err)
	}
	record(ctx, Call{Model: r.model, Input: out.PromptEvalCount, Output: out.EvalCount})

	refined := postprocess.Clean(out.Response)
	if refined == "" {
		return req.Draft, nil
	}
	return refined, nil
}
