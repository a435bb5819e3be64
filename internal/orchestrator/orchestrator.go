// Package orchestrator drives a run: it loads the section files, builds the
// worklist, pushes every row through the bounded executor and the retry
// controller, runs the expansion pass over flagged rows and hands the
// outcomes to the merger.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/executor"
	"github.com/valpere/tarjuman/internal/kv"
	"github.com/valpere/tarjuman/internal/merger"
	"github.com/valpere/tarjuman/internal/metrics"
	"github.com/valpere/tarjuman/internal/pipeline"
	"github.com/valpere/tarjuman/internal/retry"
)

// ErrNoSections is returned when no section file matches the scope.
var ErrNoSections = errors.New("no sections matched the scope")

// Pass names used in logs and metrics.
const (
	Pass1 = "pass1"
	Pass2 = "pass2"
)

// Processor runs one row. *pipeline.Pipeline is the production Processor.
type Processor interface {
	Process(ctx context.Context, row internal.Row) (*pipeline.Result, error)
	HasPendingFlags(rowID string) (bool, error)
	Artifacts() kv.Store[internal.Row]
}

// CacheWarmer preloads scripture passages before the first pass.
type CacheWarmer interface {
	WarmCache(ctx context.Context, baseURL string) (int, error)
}

type Config struct {
	SectionsDir string
	// Scope lists the section ids to process; empty means all.
	Scope            []string
	Concurrency      int
	ScriptureBaseURL string
}

type Deps struct {
	Processor Processor
	Retry     *retry.Controller
	Merger    *merger.Merger
	Warmer    CacheWarmer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Report describes a finished run.
type Report struct {
	RunID     string            `json:"runId"`
	Sections  int               `json:"sections"`
	Rows      int               `json:"rows"`
	Pass2Rows int               `json:"pass2Rows"`
	Results   []pipeline.Result `json:"results"`
	Summary   *merger.Summary   `json:"summary,omitempty"`
	Pass1     time.Duration     `json:"pass1"`
	Pass2     time.Duration     `json:"pass2"`
	Duration  time.Duration     `json:"duration"`
}

type Orchestrator struct {
	cfg  Config
	deps Deps
	exec *executor.Executor
	log  *zap.Logger
}

func New(cfg Config, deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Retry == nil {
		deps.Retry = retry.New(retry.WithLogger(deps.Logger.Named("retry")))
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		exec: executor.New(cfg.Concurrency),
		log:  deps.Logger.Named("orchestrator"),
	}
}

// Run processes every row in scope. Row failures end up in the report;
// only run-level problems (unreadable sections, no rows in scope, a
// cancelled context, a failed merge) are returned as errors.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.deps.Processor == nil {
		return nil, errors.New("orchestrator: no processor configured")
	}
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	log := o.log.With(zap.String("run_id", report.RunID))

	sections, err := LoadSections(o.cfg.SectionsDir, o.cfg.Scope)
	if err != nil {
		return nil, err
	}
	rows := BuildWorklist(sections, log)
	report.Sections, report.Rows = len(sections), len(rows)
	log.Info("run started",
		zap.Int("sections", len(sections)),
		zap.Int("rows", len(rows)),
		zap.Int("concurrency", o.exec.Capacity()))

	if o.deps.Warmer != nil {
		n, err := o.deps.Warmer.WarmCache(ctx, o.cfg.ScriptureBaseURL)
		if err != nil {
			log.Warn("scripture cache warm-up incomplete", zap.Int("warmed", n), zap.Error(err))
		} else {
			log.Debug("scripture cache warmed", zap.Int("warmed", n))
		}
	}

	passStart := time.Now()
	results, err := o.runPass(ctx, Pass1, rows)
	if err != nil {
		return nil, err
	}
	report.Pass1 = time.Since(passStart)

	byID := make(map[string]int, len(results))
	for i, r := range results {
		byID[r.RowID] = i
	}

	second := o.expansionWorklist(results, log)
	report.Pass2Rows = len(second)
	if len(second) > 0 {
		log.Info("expansion pass", zap.Int("rows", len(second)))
		passStart = time.Now()
		redo, err := o.runPass(ctx, Pass2, second)
		if err != nil {
			return nil, err
		}
		report.Pass2 = time.Since(passStart)
		for _, r := range redo {
			results[byID[r.RowID]] = r
		}
	}
	report.Results = results

	if o.deps.Merger != nil {
		sum, err := o.deps.Merger.Merge(ctx, report.RunID, results, sections)
		if err != nil {
			return nil, fmt.Errorf("merge results: %w", err)
		}
		report.Summary = sum
	}
	report.Duration = time.Since(start)
	log.Info("run finished", zap.Duration("duration", report.Duration))
	return report, nil
}

// expansionWorklist picks the pass 1 successes that still carry a flag the
// pipeline can act on. Each row is rebuilt from its stored artifact.
func (o *Orchestrator) expansionWorklist(results []pipeline.Result, log *zap.Logger) []internal.Row {
	var rows []internal.Row
	for _, r := range results {
		if r.Status != pipeline.StatusSuccess {
			continue
		}
		pending, err := o.deps.Processor.HasPendingFlags(r.RowID)
		if err != nil {
			log.Warn("flag lookup failed", zap.String("row_id", r.RowID), zap.Error(err))
			continue
		}
		if !pending {
			continue
		}
		row, ok, err := o.deps.Processor.Artifacts().Get(r.RowID)
		if err != nil {
			log.Warn("artifact read failed", zap.String("row_id", r.RowID), zap.Error(err))
		}
		if !ok || err != nil {
			if r.Row == nil {
				continue
			}
			row = *r.Row
		}
		rows = append(rows, row)
	}
	return rows
}

// runPass dispatches rows in order, each holding an executor permit for
// its whole retry loop, and waits for all of them. Results keep the order
// of rows.
func (o *Orchestrator) runPass(ctx context.Context, pass string, rows []internal.Row) ([]pipeline.Result, error) {
	results := make([]pipeline.Result, len(rows))
	var g errgroup.Group
	var dispatchErr error
	for i, row := range rows {
		if err := o.exec.Acquire(ctx); err != nil {
			dispatchErr = err
			break
		}
		o.deps.Metrics.SetInFlight(o.exec.InFlight())
		g.Go(func() error {
			defer func() {
				o.exec.Release()
				o.deps.Metrics.SetInFlight(o.exec.InFlight())
			}()
			results[i] = o.processRow(ctx, pass, row)
			return nil
		})
	}
	_ = g.Wait()
	if dispatchErr != nil {
		return nil, fmt.Errorf("%s dispatch: %w", pass, dispatchErr)
	}
	return results, nil
}

// processRow never fails: every error becomes a failed Result. A
// *pipeline.RowError stops the retry loop after the attempt that raised it.
func (o *Orchestrator) processRow(ctx context.Context, pass string, row internal.Row) pipeline.Result {
	start := time.Now()
	var (
		res    *pipeline.Result
		rowErr *pipeline.RowError
	)
	attempts, err := o.deps.Retry.Do(ctx, "row "+row.ID, func(ctx context.Context) error {
		r, err := o.deps.Processor.Process(ctx, row)
		if err != nil {
			if errors.As(err, &rowErr) {
				return nil
			}
			return err
		}
		res = r
		return nil
	})

	var out pipeline.Result
	switch {
	case rowErr != nil:
		out = pipeline.Result{
			RowID:  row.ID,
			Status: pipeline.StatusFailed,
			Code:   rowErr.Code,
			Error:  rowErr.Error(),
		}
	case err != nil:
		out = pipeline.Result{
			RowID:     row.ID,
			Status:    pipeline.StatusFailed,
			Error:     err.Error(),
			Retryable: o.deps.Retry.IsRetryable(err),
		}
	case res == nil:
		out = pipeline.Result{RowID: row.ID, Status: pipeline.StatusFailed, Error: "no result"}
	default:
		out = *res
	}
	out.Attempts = attempts
	out.Duration = time.Since(start)

	if out.Status == pipeline.StatusFailed {
		o.log.Warn("row failed",
			zap.String("pass", pass),
			zap.String("row_id", row.ID),
			zap.String("code", out.Code),
			zap.String("error", out.Error),
			zap.Int("attempts", attempts))
	} else {
		o.log.Debug("row done",
			zap.String("pass", pass),
			zap.String("row_id", row.ID),
			zap.String("status", string(out.Status)),
			zap.Int("attempts", attempts))
	}
	o.deps.Metrics.ObserveRow(pass, string(out.Status), attempts, out.Duration)
	return out
}

// LoadSections reads every *.json section file in dir, in name order, and
// keeps those whose id is in scope. A section without an id takes the file
// name stem. Any unreadable or malformed file aborts the load.
func LoadSections(dir string, scope []string) ([]internal.Section, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sections dir: %w", err)
	}
	var sections []internal.Section
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read section %s: %w", path, err)
		}
		var s internal.Section
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse section %s: %w", path, err)
		}
		if s.ID == "" {
			s.ID = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		if len(scope) > 0 && !slices.Contains(scope, s.ID) {
			continue
		}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSections, dir)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })
	return sections, nil
}

// BuildWorklist flattens sections into rows sorted by id. The first row
// with a given id wins; rows without an id are dropped.
func BuildWorklist(sections []internal.Section, logger *zap.Logger) []internal.Row {
	if logger == nil {
		logger = zap.NewNop()
	}
	seen := make(map[string]string)
	var rows []internal.Row
	for _, s := range sections {
		for _, r := range s.Rows {
			if r.ID == "" {
				logger.Warn("row without id dropped", zap.String("section", s.ID))
				continue
			}
			if first, dup := seen[r.ID]; dup {
				logger.Warn("duplicate row id ignored",
					zap.String("row_id", r.ID),
					zap.String("section", s.ID),
					zap.String("first_section", first))
				continue
			}
			seen[r.ID] = s.ID
			if r.SectionID == "" {
				r.SectionID = s.ID
			}
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}
