package translator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/valpere/tarjuman/internal/postprocess"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIService talks to any OpenAI-compatible chat completion endpoint.
// Requests are paced by a token bucket shared across all concurrent rows.
type OpenAIService struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIService builds a client; baseURL may point at a compatible
// gateway. rps <= 0 disables pacing.
func NewOpenAIService(apiKey, baseURL, model string, rps float64) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &OpenAIService{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

// Complete sends one system/user exchange and returns the cleaned reply
// together with the token usage.
func (s *OpenAIService) Complete(ctx context.Context, model, system, user string) (string, Usage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", Usage{}, fmt.Errorf("rate limiter: %w", err)
	}
	if model == "" {
		model = s.model
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	usage := Usage{Model: model, Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens}
	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("openai returned no choices")
	}
	return postprocess.Clean(resp.Choices[0].Message.Content), usage, nil
}

func (s *OpenAIService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := cfg.Model
	if model == "" {
		model = s.model
	}
	text, usage, err := s.Complete(ctx, model, BuildSystemPrompt(req), req.Text)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	if text == "" {
		result.Error = "empty response"
		return result, fmt.Errorf("openai returned an empty translation")
	}

	result.TranslatedText = text
	result.Confidence = 0.8
	result.Metadata = map[string]string{
		MetaModel:        model,
		MetaInputTokens:  strconv.Itoa(usage.Input),
		MetaOutputTokens: strconv.Itoa(usage.Output),
	}
	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai not available: %w", err)
	}
	return nil
}
