package scripture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source fetches passages that are not in the local cache.
type Source interface {
	Fetch(ctx context.Context, baseURL, typ, reference string) (*Passage, error)
}

// HTTPSource reads passages from GET {baseURL}/{type}/{reference}.
type HTTPSource struct {
	client *http.Client
}

func NewHTTPSource(timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context, baseURL, typ, reference string) (*Passage, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: no scripture source configured", ErrNotFound)
	}
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(typ), url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scripture request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		// Status text keeps the retry matchers working on this error.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scripture source returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("scripture source returned status %d", resp.StatusCode)
	}

	var payload struct {
		Arabic   string            `json:"arabic"`
		English  string            `json:"english"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode passage: %w", err)
	}
	if payload.Arabic == "" && payload.English == "" {
		return nil, ErrNotFound
	}
	return &Passage{
		Type:      typ,
		Reference: reference,
		Arabic:    payload.Arabic,
		English:   payload.English,
		Metadata:  payload.Metadata,
	}, nil
}
