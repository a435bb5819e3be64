/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/valpere/tarjuman/internal/config"
	"github.com/valpere/tarjuman/internal/refiner"
	"github.com/valpere/tarjuman/internal/store"
	"github.com/valpere/tarjuman/internal/translator"
)

var (
	defaultOllamaModels = []string{
		"gemma2:27b", "aya:35b", "qwen3:14b", "gemma3:12b-it-qat", "llama3.1:8b",
	}
	defaultOpenRouterModels = []string{
		"google/gemini-2.0-flash-001",
		"anthropic/claude-3.5-haiku",
		"qwen/qwen2.5-72b-instruct:free",
	}
)

// buildService constructs the translation backend named by cfg.Service and
// the per-call settings it needs.
func buildService(cfg config.Config) (translator.TranslationService, translator.ServiceConfig, error) {
	sc := translator.ServiceConfig{Timeout: cfg.Timeout}

	switch cfg.Service {
	case "ollama":
		models := cfg.Ollama.Models
		if len(models) == 0 {
			models = defaultOllamaModels
		}
		return translator.NewOllamaTranslator(cfg.Ollama.URL, models), sc, nil
	case "openrouter":
		if cfg.OpenRouter.APIKey == "" {
			return nil, sc, fmt.Errorf("openrouter needs an API key (OPENROUTER_API_KEY)")
		}
		models := cfg.OpenRouter.Models
		if len(models) == 0 {
			models = defaultOpenRouterModels
		}
		sc.APIKey = cfg.OpenRouter.APIKey
		return translator.NewOpenRouterService(cfg.OpenRouter.APIKey, "", models), sc, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" && cfg.OpenAI.BaseURL == "" {
			return nil, sc, fmt.Errorf("openai needs an API key (OPENAI_API_KEY) or a base URL")
		}
		sc.APIKey, sc.Model, sc.BaseURL = cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL
		return translator.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.RPS), sc, nil
	case "google":
		sc.Credentials, sc.ProjectID = cfg.Google.Credentials, cfg.Google.ProjectID
		sc.Model = "google-translate"
		return translator.NewGoogleService(), sc, nil
	case "dry-run":
		return translator.NewStatic(nil), sc, nil
	default:
		return nil, sc, fmt.Errorf("unknown service %q (want ollama, openrouter, openai, google or dry-run)", cfg.Service)
	}
}

// buildRefiner returns the tone pass: the configured LLM editor, if any,
// followed by the rule refiner, which always runs last.
func buildRefiner(cfg config.Config, svc translator.TranslationService) refiner.Refiner {
	rules := refiner.NewRuleRefiner()
	switch cfg.Refiner.Service {
	case "ollama":
		return refiner.Chain{refiner.NewOllamaRefiner(cfg.Refiner.Model, cfg.Refiner.URL), rules}
	case "openai":
		if c, ok := svc.(refiner.Completer); ok {
			return refiner.Chain{refiner.NewCompletionRefiner(c, cfg.OpenAI.Model), rules}
		}
		c := translator.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.RPS)
		return refiner.Chain{refiner.NewCompletionRefiner(c, cfg.OpenAI.Model), rules}
	default:
		return rules
	}
}

// openStore opens the SQLite database, creating its directory.
func openStore(path string, opts ...store.Option) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// renderTable formats rows under headers; columns listed in right are
// right-aligned.
func renderTable(headers []string, rows [][]string, right ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(right))
	for _, col := range right {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// snippet shortens s to n runes for table output.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
