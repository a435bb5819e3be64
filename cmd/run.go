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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/config"
	"github.com/valpere/tarjuman/internal/cost"
	"github.com/valpere/tarjuman/internal/excellence"
	"github.com/valpere/tarjuman/internal/flags"
	"github.com/valpere/tarjuman/internal/guards"
	"github.com/valpere/tarjuman/internal/kv"
	"github.com/valpere/tarjuman/internal/merger"
	"github.com/valpere/tarjuman/internal/metrics"
	"github.com/valpere/tarjuman/internal/normalize"
	"github.com/valpere/tarjuman/internal/orchestrator"
	"github.com/valpere/tarjuman/internal/pipeline"
	"github.com/valpere/tarjuman/internal/retry"
	"github.com/valpere/tarjuman/internal/scripture"
	"github.com/valpere/tarjuman/internal/store"
	"github.com/valpere/tarjuman/internal/tm"
	"github.com/valpere/tarjuman/internal/validator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Translate every row of the section files in scope",
	Long: `Loads the section files, translates every row that changed since the last
run and writes the results under --out:

  rows/<id>.json            per-row artifact
  flags/expansion.json      rows waiting for an expansion pass
  flags/readability.json    rows waiting for a readability pass
  combined.json             every row plus run metadata, grouped by section
  report.md, report.html    bilingual report
  costs.json                token and spend summary

Rows whose English is too short are flagged and retranslated with an
expansion directive in a second pass of the same run.

Services: ollama, openrouter, openai, google, dry-run

Examples:
  tarjuman run --sections ./sections --out ./out --service openai
  SECTION_SCOPE=s1,s3 tarjuman run --gates deploy/gates.json --excellence-rail`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := runPipeline(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		printRunSummary(cmd.OutOrStdout(), report)
		return nil
	},
}

// runPipeline wires every component from cfg and runs one orchestrated pass
// over the sections in scope.
func runPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*orchestrator.Report, error) {
	gates := config.LoadGates(cfg.GatesFile, logger)

	svc, svcCfg, err := buildService(cfg)
	if err != nil {
		return nil, err
	}

	artifacts, err := kv.NewDir[internal.Row](filepath.Join(cfg.OutDir, "rows"))
	if err != nil {
		return nil, fmt.Errorf("open row artifacts: %w", err)
	}
	flagStore, err := flags.Open(filepath.Join(cfg.OutDir, "flags"))
	if err != nil {
		return nil, err
	}

	var memory tm.Memory = tm.NewMemoryStore()
	ledgerOpts := []cost.Option{cost.WithLogger(logger.Named("cost"))}
	if cfg.DBPath != "" {
		db, err := openStore(cfg.DBPath, store.WithLanguages(cfg.SourceLang, cfg.TargetLang))
		if err != nil {
			return nil, err
		}
		defer db.Close()
		memory = db
		ledgerOpts = append(ledgerOpts, cost.WithSink(db))
	}
	ledger := cost.NewLedger(ledgerOpts...)

	var cache scripture.Cache = scripture.NewMemoryCache()
	if cfg.Scripture.CacheDir != "" {
		bc, err := scripture.OpenBadgerCache(cfg.Scripture.CacheDir, logger)
		if err != nil {
			return nil, err
		}
		defer bc.Close()
		cache = bc
	}
	resolver := scripture.NewResolver(cache, scripture.NewHTTPSource(cfg.Timeout),
		scripture.WithLogger(logger.Named("scripture")))

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, m, logger)
		defer stopMetrics()
	}

	var lang pipeline.LanguageChecker
	if cfg.CheckLanguage {
		lang = validator.New()
	}
	var rail *excellence.Rail
	if cfg.ExcellenceRail {
		rail = excellence.New(cfg.Excellence)
	}

	p := pipeline.New(pipeline.Deps{
		Translator:    svc,
		ServiceConfig: svcCfg,
		Refiner:       buildRefiner(cfg, svc),
		Normalizer:    normalize.New(normalize.Options{}),
		Guards:        guards.New(gates),
		TM:            memory,
		Scripture:     resolver,
		Flags:         flagStore,
		Artifacts:     artifacts,
		Ledger:        ledger,
		Rail:          rail,
		Language:      lang,
		Metrics:       m,
		Logger:        logger,
	}, pipeline.Options{
		SourceLang:       cfg.SourceLang,
		TargetLang:       cfg.TargetLang,
		ScriptureBaseURL: cfg.Scripture.URL,
		ExcellenceRail:   cfg.ExcellenceRail,
	})

	o := orchestrator.New(orchestrator.Config{
		SectionsDir:      cfg.SectionsDir,
		Scope:            config.ParseScope(cfg.SectionScope),
		Concurrency:      cfg.Concurrency,
		ScriptureBaseURL: cfg.Scripture.URL,
	}, orchestrator.Deps{
		Processor: p,
		Retry:     retry.New(retry.WithMaxRetries(cfg.MaxRetries), retry.WithLogger(logger.Named("retry"))),
		Merger:    merger.New(cfg.OutDir, flagStore, merger.WithLedger(ledger), merger.WithLogger(logger)),
		Warmer:    resolver,
		Metrics:   m,
		Logger:    logger,
	})
	return o.Run(ctx)
}

// serveMetrics exposes the run's registry on addr until the returned stop
// function is called.
func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printRunSummary(w io.Writer, r *orchestrator.Report) {
	fmt.Fprintf(w, "Run %s: %d sections, %d rows, %d rows expanded in pass 2 (%s)\n",
		r.RunID, r.Sections, r.Rows, r.Pass2Rows, r.Duration.Round(time.Millisecond))
	if s := r.Summary; s != nil {
		fmt.Fprintln(w, renderTable(
			[]string{"Successful", "Skipped", "Failed", "Mean LPR", "Min LPR", "Expansion flags", "Readability flags", "Cost (USD)"},
			[][]string{{
				strconv.Itoa(s.Successful),
				strconv.Itoa(s.Skipped),
				strconv.Itoa(s.Failed),
				fmt.Sprintf("%.3f", s.MeanLPR),
				fmt.Sprintf("%.3f", s.MinLPR),
				strconv.Itoa(s.ExpansionFlags),
				strconv.Itoa(s.ReadabilityFlags),
				fmt.Sprintf("%.4f", s.Cost),
			}},
			1, 2, 3, 4, 5, 6, 7, 8))
	}

	var failed [][]string
	for _, res := range r.Results {
		if res.Status != pipeline.StatusFailed {
			continue
		}
		failed = append(failed, []string{
			res.RowID, res.Code, strconv.FormatBool(res.Retryable), strconv.Itoa(res.Attempts), snippet(res.Error, 60),
		})
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Row", "Code", "Retryable", "Attempts", "Error"}, failed, 4))
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("sections", "./sections", "Directory of section JSON files")
	f.String("out", "./out", "Output directory")
	f.String("gates", "", "Deployment gates file (JSON or YAML)")
	f.String("section-scope", config.ScopeAll, "Comma-separated section ids to process, or all")
	f.String("service", "ollama", "Translation service: ollama, openrouter, openai, google, dry-run")
	f.IntP("concurrency", "j", 6, "Rows processed in parallel")
	f.Int("max-retries", 3, "Retries after the first attempt for transient failures")
	f.Bool("excellence-rail", false, "Enable the readability rail and readability flags")
	f.Bool("check-language", true, "Warn when a row's English is not detected as the target language")
	f.String("source", "ar", "Source language code")
	f.String("target", "en", "Target language code")
	f.Duration("timeout", 60*time.Second, "Per-request timeout for translation and scripture calls")
	f.String("scripture-url", "", "Scripture lookup base URL")
	f.String("scripture-cache", "", "Directory for the persistent scripture cache (in-memory when empty)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run, e.g. :9090")
	f.String("ollama-url", "", "Ollama base URL")
	f.StringSlice("ollama-models", nil, "Ollama models to rotate (default list used if empty)")
	f.StringSlice("openrouter-models", nil, "OpenRouter models to rotate (default list used if empty)")
	f.String("openai-model", "", "OpenAI model")
	f.String("openai-base-url", "", "OpenAI-compatible base URL")
	f.String("refiner", "", "LLM tone refiner: ollama, openai, or empty for rules only")

	for key, flag := range map[string]string{
		"sections":            "sections",
		"out":                 "out",
		"gates":               "gates",
		"section_scope":       "section-scope",
		"service":             "service",
		"concurrency":         "concurrency",
		"max_retries":         "max-retries",
		"excellence_rail":     "excellence-rail",
		"check_language":      "check-language",
		"source_lang":         "source",
		"target_lang":         "target",
		"timeout":             "timeout",
		"scripture.url":       "scripture-url",
		"scripture.cache_dir": "scripture-cache",
		"metrics_addr":        "metrics-addr",
		"ollama.url":          "ollama-url",
		"ollama.models":       "ollama-models",
		"openrouter.models":   "openrouter-models",
		"openai.model":        "openai-model",
		"openai.base_url":     "openai-base-url",
		"refiner.service":     "refiner",
	} {
		bindFlag(runCmd, key, flag)
	}
}
