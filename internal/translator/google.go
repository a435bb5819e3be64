package translator

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService uses the Cloud Translation v2 API. It cannot honour an
// expansion directive, so expansion requests return the same text and rely
// on the guards to keep the flag open.
type GoogleService struct {
	mu     sync.Mutex
	client *translate.Client
}

func NewGoogleService() *GoogleService {
	return &GoogleService{}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) clientFor(ctx context.Context, cfg ServiceConfig) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	var opts []option.ClientOption
	switch {
	case cfg.Credentials != "":
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target := req.TargetLang
	if target == "" {
		target = "en"
	}
	targetTag, err := language.Parse(target)
	if err != nil {
		result.Error = fmt.Sprintf("invalid target language: %v", err)
		return result, fmt.Errorf("invalid target language: %w", err)
	}

	client, err := s.clientFor(ctx, cfg)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create client: %v", err)
		return result, fmt.Errorf("failed to create client: %w", err)
	}

	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		if src, err := language.Parse(req.SourceLang); err == nil {
			opts.Source = src
		}
	}
	translations, err := client.Translate(ctx, []string{req.Text}, targetTag, opts)
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned")
	}

	result.TranslatedText = html.UnescapeString(translations[0].Text)
	result.Confidence = 1.0
	// Billed per character; tokens here are characters.
	result.Metadata = map[string]string{
		MetaModel:        "google-translate",
		MetaInputTokens:  strconv.Itoa(len([]rune(req.Text))),
		MetaOutputTokens: "0",
	}
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
