// Package pipeline runs one row through the translation quality state
// machine: hash check, normalization, semantic guard, translation memory,
// translation (with an expansion directive when flagged), tone refinement,
// the optional Excellence Rail, quality assessment, scripture verification,
// footnote injection, TM learning and artifact persistence.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/cost"
	"github.com/valpere/tarjuman/internal/excellence"
	"github.com/valpere/tarjuman/internal/flags"
	"github.com/valpere/tarjuman/internal/guards"
	"github.com/valpere/tarjuman/internal/kv"
	"github.com/valpere/tarjuman/internal/markup"
	"github.com/valpere/tarjuman/internal/metrics"
	"github.com/valpere/tarjuman/internal/normalize"
	"github.com/valpere/tarjuman/internal/refiner"
	"github.com/valpere/tarjuman/internal/scripture"
	"github.com/valpere/tarjuman/internal/tm"
	"github.com/valpere/tarjuman/internal/translator"
)

type Status string

const (
	StatusSkipped Status = "skipped"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Row error codes.
const (
	CodeSemanticMismatch = "semantic_mismatch"
	CodeQualityRejected  = "quality_rejected"
	CodeEmptyTranslation = "empty_translation"
	CodeInvalidReference = scripture.KindInvalidReference
	CodeNotFound         = scripture.KindNotFound
)

// RowError is a fatal, row-level failure. It is never retried.
type RowError struct {
	RowID  string
	Code   string
	Reason string
	Fatal  bool
}

func (e *RowError) Error() string {
	if e.Reason == "" {
		return e.Code
	}
	return e.Code + ": " + e.Reason
}

func fatal(rowID, code, reason string) *RowError {
	return &RowError{RowID: rowID, Code: code, Reason: reason, Fatal: true}
}

// Result is the terminal outcome for one row.
type Result struct {
	RowID     string        `json:"rowId"`
	Status    Status        `json:"status"`
	LPR       float64       `json:"lpr,omitempty"`
	Clauses   int           `json:"clauses,omitempty"`
	Code      string        `json:"code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Row       *internal.Row `json:"-"`
}

// ScriptureResolver is the part of scripture.Resolver the pipeline needs.
type ScriptureResolver interface {
	ResolveLocalFirst(ctx context.Context, ref internal.ScriptureRef, baseURL string) (*scripture.Passage, error)
}

// LanguageChecker reports non-fatal warnings about the output language.
type LanguageChecker interface {
	Warnings(text, targetLang string) []string
}

// Deps are the collaborators shared by every row. Only Translator is
// required; the rest fall back to in-memory or no-op versions.
type Deps struct {
	Translator    translator.TranslationService
	ServiceConfig translator.ServiceConfig
	Refiner       refiner.Refiner
	Normalizer    normalize.Normalizer
	Guards        *guards.Guards
	TM            tm.Memory
	Scripture     ScriptureResolver
	Flags         *flags.Store
	Artifacts     kv.Store[internal.Row]
	Ledger        *cost.Ledger
	Rail          *excellence.Rail
	Language      LanguageChecker
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	Now           func() time.Time
}

type Options struct {
	SourceLang       string
	TargetLang       string
	ScriptureBaseURL string
	// ExcellenceRail enables the readability rail and readability flags.
	ExcellenceRail bool
	TMLimit        int
}

type Pipeline struct {
	deps Deps
	opts Options
	log  *zap.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Guards == nil {
		deps.Guards = guards.New(guards.DefaultConfig())
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New(normalize.Options{})
	}
	if deps.Flags == nil {
		deps.Flags = flags.NewMemory()
	}
	if deps.Artifacts == nil {
		deps.Artifacts = kv.NewMemory[internal.Row]()
	}
	if deps.Ledger == nil {
		deps.Ledger = cost.NewLedger()
	}
	if deps.Rail == nil && opts.ExcellenceRail {
		deps.Rail = excellence.New(excellence.DefaultTargets())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.SourceLang == "" {
		opts.SourceLang = "ar"
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "en"
	}
	if opts.TMLimit <= 0 {
		opts.TMLimit = 3
	}
	return &Pipeline{deps: deps, opts: opts, log: deps.Logger.Named("pipeline")}
}

// Flags exposes the shared flag store.
func (p *Pipeline) Flags() *flags.Store { return p.deps.Flags }

// Artifacts exposes the per-row artifact store.
func (p *Pipeline) Artifacts() kv.Store[internal.Row] { return p.deps.Artifacts }

// LaneHash is the content hash recorded for a row's original text.
func LaneHash(original string) string {
	sum := sha256.Sum256([]byte(original))
	return hex.EncodeToString(sum[:])
}

// rowState is the transient state of one row while it moves through the
// pipeline.
type rowState struct {
	row      internal.Row
	previous string
	enhanced string
	english  string
	fresh    bool

	// overallPass is the aggregate guard verdict; TM learning needs it.
	overallPass bool

	expansion    flags.Flag
	hasExpansion bool
	readability  flags.Flag
	hasRead      bool

	passages []resolvedRef

	// flagWrites are applied once the row reaches a final outcome, so a
	// retried attempt never sees a flag raised by the failed one.
	flagWrites []flagWrite
}

// flagWrite sets flag for kind, or clears it when flag is nil.
type flagWrite struct {
	kind flags.Kind
	flag *flags.Flag
}

func (st *rowState) setFlag(kind flags.Kind, f flags.Flag) {
	st.flagWrites = append(st.flagWrites, flagWrite{kind: kind, flag: &f})
}

func (st *rowState) clearFlag(kind flags.Kind) {
	st.flagWrites = append(st.flagWrites, flagWrite{kind: kind})
}

// retrying reports whether a pending flag asks for a fresh translation.
// Readability flags only count while the rail is on.
func (st *rowState) retrying(rail bool) bool {
	if st.hasExpansion && st.expansion.Pending() {
		return true
	}
	return rail && st.hasRead && st.readability.Pending()
}

type resolvedRef struct {
	ref     internal.ScriptureRef
	passage *scripture.Passage
}

// Process runs row through every state. A *RowError is fatal for the row;
// any other error is a candidate for the retry controller.
func (p *Pipeline) Process(ctx context.Context, row internal.Row) (*Result, error) {
	if p.deps.Translator == nil {
		return nil, errors.New("pipeline: no translator configured")
	}
	log := p.log.With(zap.String("row_id", row.ID))
	hash := LaneHash(row.Original)

	done, err := p.completed(row, hash)
	if err != nil {
		return nil, err
	}
	if done != nil {
		log.Debug("row unchanged, skipping")
		return &Result{
			RowID:   row.ID,
			Status:  StatusSkipped,
			LPR:     done.Metadata.LPR,
			Clauses: done.Metadata.Clauses,
			Row:     done,
		}, nil
	}

	st := &rowState{row: cloneRow(row), previous: stripAnchors(row.English)}
	st.row.Footnotes = nil
	st.row.Metadata = internal.RowMetadata{}
	if err := p.loadFlags(st); err != nil {
		return nil, err
	}

	for _, step := range []func(context.Context, *rowState) error{
		p.normalize,
		p.semanticGuard,
		p.lookupMemory,
		p.translate,
		p.refineTone,
		p.applyExcellence,
		p.assess,
		p.verifyScripture,
		p.injectFootnotes,
		p.learn,
		p.persist,
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(ctx, st); err != nil {
			// A fatal row is final: keep the flags it raised.
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				if ferr := p.commitFlags(st); ferr != nil {
					return nil, ferr
				}
			}
			return nil, err
		}
	}

	log.Debug("row processed",
		zap.Float64("lpr", st.row.Metadata.LPR),
		zap.String("recommendation", st.row.Metadata.Recommendation),
		zap.Bool("tm_used", st.row.Metadata.TM.Used))
	out := st.row
	return &Result{
		RowID:   row.ID,
		Status:  StatusSuccess,
		LPR:     out.Metadata.LPR,
		Clauses: out.Metadata.Clauses,
		Row:     &out,
	}, nil
}

// completed returns the already processed form of row when nothing about it
// has changed and no pending flag asks for another pass.
func (p *Pipeline) completed(row internal.Row, hash string) (*internal.Row, error) {
	pending, err := p.HasPendingFlags(row.ID)
	if err != nil {
		return nil, fmt.Errorf("read flags for %s: %w", row.ID, err)
	}
	if pending {
		return nil, nil
	}
	if isComplete(row, hash) {
		out := cloneRow(row)
		return &out, nil
	}
	stored, ok, err := p.deps.Artifacts.Get(row.ID)
	if err != nil {
		return nil, fmt.Errorf("read artifact for %s: %w", row.ID, err)
	}
	if ok && isComplete(stored, hash) {
		return &stored, nil
	}
	return nil, nil
}

// HasPendingFlags reports whether a flag the pipeline can act on is waiting
// for rowID. Readability flags only count while the Excellence Rail is on.
func (p *Pipeline) HasPendingFlags(rowID string) (bool, error) {
	if p.opts.ExcellenceRail {
		return p.deps.Flags.HasPending(rowID)
	}
	f, ok, err := p.deps.Flags.Get(flags.Expansion, rowID)
	if err != nil {
		return false, err
	}
	return ok && f.Pending(), nil
}

func isComplete(row internal.Row, hash string) bool {
	return row.Metadata.LaneHash == hash &&
		row.Metadata.ProcessedAt != nil &&
		strings.TrimSpace(row.English) != ""
}

func (p *Pipeline) loadFlags(st *rowState) error {
	var err error
	st.expansion, st.hasExpansion, err = p.deps.Flags.Get(flags.Expansion, st.row.ID)
	if err != nil {
		return fmt.Errorf("read expansion flag: %w", err)
	}
	st.readability, st.hasRead, err = p.deps.Flags.Get(flags.Readability, st.row.ID)
	if err != nil {
		return fmt.Errorf("read readability flag: %w", err)
	}
	return nil
}

func (p *Pipeline) normalize(_ context.Context, st *rowState) error {
	st.enhanced = p.deps.Normalizer.Normalize(st.row.Original)
	st.row.Enhanced = st.enhanced
	return nil
}

func (p *Pipeline) semanticGuard(_ context.Context, st *rowState) error {
	res := p.deps.Guards.Semantic(st.row.Original, st.enhanced)
	st.row.Metadata.SemanticWarnings = append(st.row.Metadata.SemanticWarnings, res.Warnings...)
	if !res.Pass {
		p.deps.Metrics.GuardFailed("semantic")
		return fatal(st.row.ID, CodeSemanticMismatch, res.Reason)
	}
	st.row.Metadata.QualityGates.Semantic = true
	return nil
}

// lookupMemory reuses a close enough TM entry verbatim. A row with a flag
// waiting on it always goes back to the translator.
func (p *Pipeline) lookupMemory(ctx context.Context, st *rowState) error {
	if p.deps.TM == nil || st.retrying(p.opts.ExcellenceRail) {
		return nil
	}
	suggestions, err := p.deps.TM.Suggest(ctx, st.row.Original, p.opts.TMLimit)
	if err != nil {
		p.log.Warn("translation memory lookup failed", zap.String("row_id", st.row.ID), zap.Error(err))
		return nil
	}
	if len(suggestions) == 0 || suggestions[0].Similarity < tm.ReuseThreshold {
		p.deps.Metrics.TMLookup(false)
		return nil
	}
	best := suggestions[0]
	p.deps.Metrics.TMLookup(true)
	st.english = best.English
	st.row.Metadata.TM = internal.TMUsage{Used: true, SuggestionID: best.ID, Similarity: best.Similarity}
	return nil
}

func (p *Pipeline) translate(ctx context.Context, st *rowState) error {
	if st.english != "" {
		return nil
	}
	shielded := markup.Protect(st.enhanced)
	req := translator.TranslateRequest{
		RowID:      st.row.ID,
		Text:       shielded.Text,
		SourceLang: p.opts.SourceLang,
		TargetLang: p.opts.TargetLang,
		Complexity: st.row.Complexity,
		Markers:    !shielded.Empty(),
	}
	if st.hasExpansion && st.expansion.Pending() {
		target := st.expansion.TargetLPR
		if target <= 0 {
			target = p.deps.Guards.Config().StrictLPR
		}
		req.Expansion = &translator.Expansion{
			TargetLPR:   target,
			SourceWords: guards.WordCount(st.row.Original),
			Previous:    st.previous,
			Reason:      st.expansion.Reason,
		}
		now := p.deps.Now().UTC()
		st.row.Metadata.Expansion = internal.ExpansionInfo{Applied: true, TargetLPR: target, AppliedAt: &now}
	}

	model := p.deps.ServiceConfig.Model
	if model == "" {
		model = p.deps.Translator.Name()
	}
	spanID := p.deps.Ledger.Open("translate", st.row.ID, model)
	res, err := p.deps.Translator.Translate(ctx, p.deps.ServiceConfig, req)
	if err != nil {
		p.closeSpan(ctx, spanID, cost.Tokens{Input: cost.EstimateTokens(req.Text)})
		return fmt.Errorf("translate row %s via %s: %w", st.row.ID, p.deps.Translator.Name(), err)
	}

	tokens := cost.Tokens{Input: cost.EstimateTokens(req.Text), Output: cost.EstimateTokens(res.TranslatedText)}
	if _, in, out, ok := res.Usage(); ok {
		tokens = cost.Tokens{Input: in, Output: out}
	}
	p.closeSpan(ctx, spanID, tokens)

	if w := shielded.Warning(res.TranslatedText); w != "" {
		p.log.Warn("protected markup lost in translation", zap.String("row_id", st.row.ID), zap.String("warning", w))
		st.row.Metadata.SemanticWarnings = append(st.row.Metadata.SemanticWarnings, w)
	}
	st.english = strings.TrimSpace(shielded.Restore(res.TranslatedText))
	if st.english == "" {
		return fatal(st.row.ID, CodeEmptyTranslation, "translator returned no text")
	}
	st.fresh = true
	return nil
}

// refineTone runs on fresh translations only; TM reuse stays verbatim. A
// refiner error keeps whatever text the refiner still produced, or the draft.
// Every model call the refiners report becomes a refine cost span.
func (p *Pipeline) refineTone(ctx context.Context, st *rowState) error {
	if !st.fresh || p.deps.Refiner == nil {
		return nil
	}
	req := refiner.Request{
		RowID:       st.row.ID,
		SourceLang:  p.opts.SourceLang,
		TargetLang:  p.opts.TargetLang,
		Source:      st.enhanced,
		Draft:       st.english,
		Readability: p.opts.ExcellenceRail && st.hasRead && st.readability.Needs,
	}
	meter := &refiner.Meter{}
	refined, err := p.deps.Refiner.Refine(refiner.WithMeter(ctx, meter), req)
	for _, c := range meter.Calls() {
		tokens := cost.Tokens{Input: c.Input, Output: c.Output}
		if tokens.Input == 0 && tokens.Output == 0 {
			tokens = cost.Tokens{
				Input:  cost.EstimateTokens(req.Source) + cost.EstimateTokens(req.Draft),
				Output: cost.EstimateTokens(refined),
			}
		}
		p.closeSpan(ctx, p.deps.Ledger.Open("refine", st.row.ID, c.Model), tokens)
	}
	if err != nil {
		p.log.Warn("refiner step failed", zap.String("row_id", st.row.ID), zap.Error(err))
	}
	if refined = strings.TrimSpace(refined); refined != "" {
		st.english = refined
	}
	return nil
}

func (p *Pipeline) applyExcellence(_ context.Context, st *rowState) error {
	if !p.opts.ExcellenceRail || !st.fresh || p.deps.Rail == nil {
		return nil
	}
	text, subs := p.deps.Rail.StylePass(st.english)
	st.english = text
	a := p.deps.Rail.Analyze(text)
	retry := st.hasRead && st.readability.Needs
	st.row.Metadata.ExcellenceRail = internal.ExcellenceInfo{
		Applied:          true,
		Grade:            a.Grade,
		LongSentencePct:  a.LongSentencePct,
		AudienceScore:    a.AudienceScore,
		Substitutions:    subs,
		ReadabilityRetry: retry,
	}

	if p.deps.Rail.WithinTargets(a) {
		if st.hasRead {
			st.clearFlag(flags.Readability)
		}
		return nil
	}

	t := p.deps.Rail.Targets()
	f := flags.Flag{
		Reason: fmt.Sprintf("grade %.1f, long sentences %.0f%%", a.Grade, a.LongSentencePct),
		Target: fmt.Sprintf("grade<=%.0f, long sentences<=%.0f%%", t.MaxGrade, t.MaxLongSentencePct),
	}
	if retry {
		now := p.deps.Now().UTC()
		f.AppliedAt = &now
	}
	st.setFlag(flags.Readability, f)
	st.row.Metadata.NeedsReadability = true
	return nil
}

// assess records the quality gates, raises or clears the expansion flag and
// rejects the row when the guards say so. Flags are decided before the
// reject check so a rejected row still carries its expansion request.
func (p *Pipeline) assess(_ context.Context, st *rowState) error {
	a := p.deps.Guards.Assess(st.row.Original, st.english, st.enhanced)
	md := &st.row.Metadata
	md.LPR = a.LPR.Ratio
	md.Clauses = a.Coverage.SourceClauses
	md.Confidence = a.Confidence
	md.Recommendation = a.Recommendation
	md.QualityGates.LPR = a.LPR.Pass
	md.QualityGates.Coverage = a.Coverage.Pass
	md.QualityGates.Drift = a.Drift == nil || a.Drift.Pass
	st.row.English = st.english

	if !a.LPR.Pass {
		p.deps.Metrics.GuardFailed("lpr")
	}
	if !a.Coverage.Pass {
		p.deps.Metrics.GuardFailed("coverage")
	}
	if !md.QualityGates.Drift {
		p.deps.Metrics.GuardFailed("drift")
	}

	if p.deps.Language != nil {
		md.SemanticWarnings = append(md.SemanticWarnings, p.deps.Language.Warnings(st.english, p.opts.TargetLang)...)
	}

	if err := p.updateExpansionFlag(st, a); err != nil {
		return err
	}

	if a.Recommendation == internal.RecommendReject {
		reason := strings.Join(a.Overall.Issues, "; ")
		if reason == "" {
			reason = "quality assessment rejected the translation"
		}
		return fatal(st.row.ID, CodeQualityRejected, reason)
	}
	st.overallPass = a.Overall.Pass
	return nil
}

func (p *Pipeline) updateExpansionFlag(st *rowState, a guards.Assessment) error {
	cfg := p.deps.Guards.Config()
	if !p.deps.Guards.NeedsStrictExpansion(a) {
		if st.hasExpansion {
			st.clearFlag(flags.Expansion)
		}
		return nil
	}

	f := flags.Flag{
		Reason:    fmt.Sprintf("lpr %.2f below %.2f", a.LPR.Ratio, cfg.StrictLPR),
		Target:    fmt.Sprintf("lpr>=%.2f", cfg.StrictLPR),
		TargetLPR: cfg.StrictLPR,
	}
	// A refreshed flag after an applied expansion keeps its timestamp so
	// the second pass does not pick the row up again.
	if exp := st.row.Metadata.Expansion; exp.Applied {
		f.AppliedAt = exp.AppliedAt
	}
	st.setFlag(flags.Expansion, f)
	st.row.Metadata.NeedsExpand = true
	return nil
}

// verifyScripture resolves every citation. Context-only citations are best
// effort; required ones fail the row when invalid or unknown.
func (p *Pipeline) verifyScripture(ctx context.Context, st *rowState) error {
	st.row.Metadata.QualityGates.Scripture = true
	for _, ref := range st.row.ScriptureRefs {
		optional := ref.ContextOnly()
		if p.deps.Scripture == nil {
			if err := scripture.Validate(ref); err != nil && !optional {
				return p.scriptureFailure(st, err)
			}
			continue
		}

		passage, err := p.deps.Scripture.ResolveLocalFirst(ctx, ref, p.opts.ScriptureBaseURL)
		if err != nil {
			if optional {
				p.log.Debug("context scripture unresolved",
					zap.String("row_id", st.row.ID),
					zap.String("reference", ref.Normalized),
					zap.Error(err))
				continue
			}
			return p.scriptureFailure(st, err)
		}
		st.passages = append(st.passages, resolvedRef{ref: ref, passage: passage})
	}
	return nil
}

func (p *Pipeline) scriptureFailure(st *rowState, err error) error {
	var se *scripture.Error
	if errors.As(err, &se) {
		st.row.Metadata.QualityGates.Scripture = false
		p.deps.Metrics.GuardFailed("scripture")
		return fatal(st.row.ID, se.Kind, se.Error())
	}
	return fmt.Errorf("verify scripture for row %s: %w", st.row.ID, err)
}

func (p *Pipeline) injectFootnotes(_ context.Context, st *rowState) error {
	st.row.Footnotes = buildFootnotes(st.passages)
	st.row.English = insertAnchors(st.english, len(st.row.Footnotes))
	return nil
}

// learn stores the clean English in the TM when every guard passed.
func (p *Pipeline) learn(ctx context.Context, st *rowState) error {
	if p.deps.TM == nil || st.row.Metadata.TM.Used || !st.overallPass {
		return nil
	}
	if _, err := p.deps.TM.Learn(ctx, st.row.Original, st.english, tm.LearnOptions{Complexity: st.row.Complexity}); err != nil {
		p.log.Warn("translation memory learn failed", zap.String("row_id", st.row.ID), zap.Error(err))
	}
	return nil
}

func (p *Pipeline) persist(_ context.Context, st *rowState) error {
	if err := p.commitFlags(st); err != nil {
		return err
	}
	now := p.deps.Now().UTC()
	st.row.Metadata.LaneHash = LaneHash(st.row.Original)
	st.row.Metadata.ProcessedAt = &now
	if err := p.deps.Artifacts.Put(st.row.ID, st.row); err != nil {
		return fmt.Errorf("persist row %s: %w", st.row.ID, err)
	}
	return nil
}

func (p *Pipeline) closeSpan(ctx context.Context, id string, tokens cost.Tokens) {
	if _, err := p.deps.Ledger.Close(ctx, id, tokens); err != nil {
		p.log.Debug("cost span close failed", zap.String("span_id", id), zap.Error(err))
	}
}

var anchorRe = regexp.MustCompile(`\[\d+\]`)

func stripAnchors(text string) string {
	return strings.TrimSpace(anchorRe.ReplaceAllString(text, ""))
}

func cloneRow(r internal.Row) internal.Row {
	out := r
	out.ScriptureRefs = append([]internal.ScriptureRef(nil), r.ScriptureRefs...)
	out.Footnotes = append([]internal.Footnote(nil), r.Footnotes...)
	out.Metadata.SemanticWarnings = append([]string(nil), r.Metadata.SemanticWarnings...)
	out.Metadata.ExcellenceRail.Substitutions = append([]string(nil), r.Metadata.ExcellenceRail.Substitutions...)
	return out
}

func (p *Pipeline) commitFlags(st *rowState) error {
	for _, w := range st.flagWrites {
		if w.flag == nil {
			if err := p.deps.Flags.Clear(w.kind, st.row.ID); err != nil {
				return fmt.Errorf("clear %s flag: %w", w.kind, err)
			}
			continue
		}
		if err := p.deps.Flags.Set(w.kind, st.row.ID, *w.flag); err != nil {
			return fmt.Errorf("set %s flag: %w", w.kind, err)
		}
		p.deps.Metrics.FlagSet(string(w.kind))
	}
	st.flagWrites = nil
	return nil
}
