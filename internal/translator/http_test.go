package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaTranslator_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":          "Here is the translation: Knowledge is light.",
			"prompt_eval_count": 42,
			"eval_count":        7,
		})
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "العلم نور",
		SourceLang: "ar",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Knowledge is light." {
		t.Errorf("expected cleaned translation, got %q", result.TranslatedText)
	}
	model, in, out, ok := result.Usage()
	if !ok || model != "llama3.2" || in != 42 || out != 7 {
		t.Errorf("unexpected usage: %q %d %d %v", model, in, out, ok)
	}
}

func TestOllamaTranslator_Translate_ExpansionPrompt(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		prompt, _ = req["prompt"].(string)
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "A fuller rendering."})
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, models: []string{"llama3.2"}, client: server.Client()}
	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "العلم نور",
		TargetLang: "en",
		Expansion:  &Expansion{TargetLPR: 1.08, SourceWords: 10, Previous: "Knowledge is light."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "EXPANSION REQUIRED") || !strings.Contains(prompt, "at least 11 words") {
		t.Errorf("expansion directive missing from prompt: %q", prompt)
	}
}

func TestOllamaTranslator_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, models: []string{"llama3.2"}, client: server.Client()}
	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "en"})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("status code should be in the error text for retry classification: %v", err)
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestOllamaTranslator_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, client: server.Client()}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := &OllamaTranslator{baseURL: "http://localhost:19999", client: &http.Client{Timeout: 100 * time.Millisecond}}
	if err := down.IsAvailable(context.Background()); err == nil {
		t.Error("expected error when Ollama not available")
	}
}

func TestOpenRouterService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "\"Knowledge is light.\""}}},
			"usage":   map[string]int{"prompt_tokens": 30, "completion_tokens": 5},
		})
	}))
	defer server.Close()

	svc := NewOpenRouterService("key", server.URL, []string{"test/model"})
	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "العلم نور", TargetLang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Knowledge is light." {
		t.Errorf("got %q", result.TranslatedText)
	}
	if model, in, _, _ := result.Usage(); model != "test/model" || in != 30 {
		t.Errorf("unexpected usage %q %d", model, in)
	}
}

func TestOpenRouterService_NoAPIKey(t *testing.T) {
	svc := NewOpenRouterService("", "", nil)
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x"}); err == nil {
		t.Error("expected error when no API key")
	}
	if err := svc.IsAvailable(context.Background()); err == nil {
		t.Error("expected IsAvailable error when no API key")
	}
}

func TestOpenAIService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": "Knowledge is light."}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 20, "completion_tokens": 4, "total_tokens": 24},
		})
	}))
	defer server.Close()

	svc := NewOpenAIService("test", server.URL+"/v1", "", 100)
	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "العلم نور", TargetLang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Knowledge is light." {
		t.Errorf("got %q", result.TranslatedText)
	}
	if model, in, out, ok := result.Usage(); !ok || model != DefaultOpenAIModel || in != 20 || out != 4 {
		t.Errorf("unexpected usage %q %d %d", model, in, out)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(nil)
	res, err := s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: " a b "})
	if err != nil || res.TranslatedText != "a b" {
		t.Fatalf("echo failed: %v %q", err, res.TranslatedText)
	}
	res, _ = s.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:      "a b",
		Expansion: &Expansion{TargetLPR: 1.5, SourceWords: 4},
	})
	if got := len(strings.Fields(res.TranslatedText)); got != 6 {
		t.Errorf("expected padding to 6 words, got %d", got)
	}
	if s.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", s.Calls())
	}
}

func TestExpansion_TargetWords(t *testing.T) {
	tests := []struct {
		e    Expansion
		want int
	}{
		{Expansion{TargetLPR: 1.08, SourceWords: 10}, 11},
		{Expansion{TargetLPR: 1.0, SourceWords: 10}, 10},
		{Expansion{TargetLPR: 1.08, SourceWords: 0}, 1},
	}
	for _, tt := range tests {
		if got := tt.e.TargetWords(); got != tt.want {
			t.Errorf("TargetWords(%+v) = %d, want %d", tt.e, got, tt.want)
		}
	}
}
