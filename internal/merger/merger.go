// Package merger folds per-row outcomes into the run summary, the combined
// artifact and the bilingual reports, and settles the flag maps.
package merger

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/cost"
	"github.com/valpere/tarjuman/internal/flags"
	"github.com/valpere/tarjuman/internal/fsutil"
	"github.com/valpere/tarjuman/internal/markdown"
	"github.com/valpere/tarjuman/internal/pipeline"
)

// Output file names under the output directory.
const (
	CombinedFile   = "combined.json"
	ReportFile     = "report.md"
	ReportHTMLFile = "report.html"
	CostsFile      = "costs.json"
)

// Ungrouped holds rows whose section cannot be inferred.
const Ungrouped = "ungrouped"

type Failure struct {
	RowID     string `json:"rowId"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
	Attempts  int    `json:"attempts"`
}

type Summary struct {
	RunID            string    `json:"runId"`
	GeneratedAt      time.Time `json:"generatedAt"`
	Total            int       `json:"total"`
	Successful       int       `json:"successful"`
	Failed           int       `json:"failed"`
	Skipped          int       `json:"skipped"`
	MeanLPR          float64   `json:"meanLpr"`
	MinLPR           float64   `json:"minLpr"`
	LPRRows          int       `json:"lprRows"`
	ExpansionFlags   int       `json:"expansionFlags"`
	ReadabilityFlags int       `json:"readabilityFlags"`
	Failures         []Failure `json:"failures,omitempty"`
	Cost             float64   `json:"cost"`
}

type SectionGroup struct {
	ID    string         `json:"id"`
	Title string         `json:"title,omitempty"`
	Rows  []internal.Row `json:"rows"`
}

// Combined is the single-document view of a run.
type Combined struct {
	Metadata Summary        `json:"metadata"`
	Rows     []internal.Row `json:"rows"`
	Sections []SectionGroup `json:"sections"`
}

type Option func(*Merger)

func WithLedger(l *cost.Ledger) Option {
	return func(m *Merger) { m.ledger = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

type Merger struct {
	outDir string
	flags  *flags.Store
	ledger *cost.Ledger
	logger *zap.Logger
	now    func() time.Time
}

// New writes into outDir. flagStore may be nil when no flags are kept.
func New(outDir string, flagStore *flags.Store, opts ...Option) *Merger {
	m := &Merger{
		outDir: outDir,
		flags:  flagStore,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.Named("merger")
	return m
}

// Merge aggregates outcomes, writes every output file atomically and
// flushes the flag store. outcomes may hold at most one entry per row id.
func (m *Merger) Merge(ctx context.Context, runID string, outcomes []pipeline.Result, sections []internal.Section) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sorted := append([]pipeline.Result(nil), outcomes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowID < sorted[j].RowID })

	sum := Summary{RunID: runID, GeneratedAt: m.now().UTC(), Total: len(sorted)}
	var rows []internal.Row
	lprTotal := 0.0
	for _, o := range sorted {
		switch o.Status {
		case pipeline.StatusSuccess:
			sum.Successful++
		case pipeline.StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{
				RowID:     o.RowID,
				Code:      o.Code,
				Error:     o.Error,
				Retryable: o.Retryable,
				Attempts:  o.Attempts,
			})
			continue
		}
		if o.Row == nil {
			continue
		}
		rows = append(rows, *o.Row)
		if lpr := o.Row.Metadata.LPR; isFinite(lpr) && lpr > 0 {
			if sum.LPRRows == 0 || lpr < sum.MinLPR {
				sum.MinLPR = lpr
			}
			lprTotal += lpr
			sum.LPRRows++
		}
	}
	if sum.LPRRows > 0 {
		sum.MeanLPR = lprTotal / float64(sum.LPRRows)
	}

	if err := m.settleFlags(sorted, &sum); err != nil {
		return nil, err
	}

	var costs cost.Summary
	if m.ledger != nil {
		costs = m.ledger.Summary()
		sum.Cost = costs.Cost
	}

	combined := Combined{Metadata: sum, Rows: rows, Sections: GroupBySection(rows, sections)}
	if combined.Rows == nil {
		combined.Rows = []internal.Row{}
	}
	report := RenderReport(combined)

	writes := []struct {
		name string
		fn   func(path string) error
	}{
		{CombinedFile, func(p string) error { return fsutil.WriteJSONAtomic(p, combined) }},
		{ReportFile, func(p string) error { return fsutil.WriteFileAtomic(p, bytes.NewReader(report), 0o644) }},
		{ReportHTMLFile, func(p string) error {
			page := markdown.Page("Translation report "+runID, report)
			return fsutil.WriteFileAtomic(p, bytes.NewReader(page), 0o644)
		}},
		{CostsFile, func(p string) error { return fsutil.WriteJSONAtomic(p, costs) }},
	}
	for _, w := range writes {
		if err := w.fn(filepath.Join(m.outDir, w.name)); err != nil {
			return nil, fmt.Errorf("write %s: %w", w.name, err)
		}
	}

	m.logger.Info("run merged",
		zap.String("run_id", runID),
		zap.Int("total", sum.Total),
		zap.Int("successful", sum.Successful),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Float64("mean_lpr", sum.MeanLPR))
	return &sum, nil
}

// settleFlags drops flags whose row no longer needs them, counts what is
// left and flushes both maps.
func (m *Merger) settleFlags(outcomes []pipeline.Result, sum *Summary) error {
	if m.flags == nil {
		return nil
	}
	for _, o := range outcomes {
		if o.Row == nil {
			continue
		}
		md := o.Row.Metadata
		if !md.NeedsExpand {
			if err := m.flags.Clear(flags.Expansion, o.RowID); err != nil {
				return fmt.Errorf("clear expansion flag %s: %w", o.RowID, err)
			}
		}
		if md.ExcellenceRail.Applied && !md.NeedsReadability {
			if err := m.flags.Clear(flags.Readability, o.RowID); err != nil {
				return fmt.Errorf("clear readability flag %s: %w", o.RowID, err)
			}
		}
	}

	exp, err := m.flags.List(flags.Expansion)
	if err != nil {
		return err
	}
	read, err := m.flags.List(flags.Readability)
	if err != nil {
		return err
	}
	sum.ExpansionFlags, sum.ReadabilityFlags = len(exp), len(read)

	if err := m.flags.Flush(); err != nil {
		return fmt.Errorf("flush flags: %w", err)
	}
	return nil
}

// GroupBySection groups rows in section order. Rows without a sectionId are
// assigned by SectionOf; groups not among sections follow in id order.
func GroupBySection(rows []internal.Row, sections []internal.Section) []SectionGroup {
	titles := make(map[string]string, len(sections))
	for _, s := range sections {
		titles[s.ID] = s.Title
	}

	byID := make(map[string][]internal.Row)
	for _, r := range rows {
		id := r.SectionID
		if id == "" {
			id = SectionOf(r.ID)
		}
		byID[id] = append(byID[id], r)
	}

	var groups []SectionGroup
	for _, s := range sections {
		if rs, ok := byID[s.ID]; ok {
			groups = append(groups, SectionGroup{ID: s.ID, Title: s.Title, Rows: rs})
			delete(byID, s.ID)
		}
	}
	rest := make([]string, 0, len(byID))
	for id := range byID {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		groups = append(groups, SectionGroup{ID: id, Title: titles[id], Rows: byID[id]})
	}
	if groups == nil {
		groups = []SectionGroup{}
	}
	return groups
}

// SectionOf infers a section id from a row id: the text before the last
// '-', '_', ':' or '.'.
func SectionOf(rowID string) string {
	if i := strings.LastIndexAny(rowID, "-_:."); i > 0 {
		return rowID[:i]
	}
	return Ungrouped
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
