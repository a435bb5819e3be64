package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/cost"
	"github.com/valpere/tarjuman/internal/flags"
	"github.com/valpere/tarjuman/internal/guards"
	"github.com/valpere/tarjuman/internal/normalize"
	"github.com/valpere/tarjuman/internal/refiner"
	"github.com/valpere/tarjuman/internal/retry"
	"github.com/valpere/tarjuman/internal/scripture"
	"github.com/valpere/tarjuman/internal/tm"
	"github.com/valpere/tarjuman/internal/translator"
)

// intentions has eight words and a single clause.
const intentions = "إنما الأعمال بالنيات وإنما لكل امرئ ما نوى"

// intentionsEN has nine words, an LPR of 1.125 against intentions.
const intentionsEN = "Actions count by intentions; everyone gets what they intended."

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	passages map[string]*scripture.Passage
	err      error
}

func (f *fakeSource) Fetch(_ context.Context, _, typ, reference string) (*scripture.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.passages[typ+"/"+reference]
	if !ok {
		return nil, scripture.ErrNotFound
	}
	return p, nil
}

func newSource() *fakeSource {
	return &fakeSource{passages: map[string]*scripture.Passage{
		"quran/1:1":   {Type: "quran", Reference: "1:1", Arabic: "بسم الله الرحمن الرحيم", English: "In the name of God, the Most Gracious, the Most Merciful"},
		"quran/2:255": {Type: "quran", Reference: "2:255", Arabic: "الله لا إله إلا هو الحي القيوم", English: "God, there is no deity except Him, the Ever-Living"},
	}}
}

func newTestPipeline(t *testing.T, svc translator.TranslationService, mutate func(*Deps, *Options)) *Pipeline {
	t.Helper()
	deps := Deps{
		Translator: svc,
		Refiner:    refiner.NewRuleRefiner(),
		Scripture:  scripture.NewResolver(scripture.NewMemoryCache(), newSource()),
		Flags:      flags.NewMemory(),
		Logger:     zaptest.NewLogger(t),
		Now:        func() time.Time { return fixedNow },
	}
	opts := Options{ScriptureBaseURL: "http://scripture.test"}
	if mutate != nil {
		mutate(&deps, &opts)
	}
	return New(deps, opts)
}

func respond(text string) *translator.Static {
	return translator.NewStatic(func(translator.TranslateRequest) (string, error) { return text, nil })
}

func TestProcess_SuccessThenIdempotentSkip(t *testing.T) {
	svc := respond(intentionsEN)
	p := newTestPipeline(t, svc, nil)
	ctx := context.Background()
	row := internal.Row{ID: "s1-001", Original: intentions, Complexity: 2}

	res, err := p.Process(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.InDelta(t, 1.125, res.LPR, 1e-9)
	assert.Equal(t, 1, res.Clauses)

	out := res.Row
	require.NotNil(t, out)
	assert.Equal(t, LaneHash(intentions), out.Metadata.LaneHash)
	require.NotNil(t, out.Metadata.ProcessedAt)
	assert.Equal(t, intentionsEN, out.English)
	assert.Equal(t, internal.RecommendAccept, out.Metadata.Recommendation)
	assert.True(t, out.Metadata.QualityGates.LPR)
	assert.True(t, out.Metadata.QualityGates.Semantic)
	assert.False(t, out.Metadata.NeedsExpand)

	again, err := p.Process(ctx, *out)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, again.Status)
	assert.Equal(t, res.LPR, again.LPR)

	fromArtifact, err := p.Process(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, fromArtifact.Status)
	assert.Equal(t, intentionsEN, fromArtifact.Row.English)

	assert.EqualValues(t, 1, svc.Calls())
}

func TestProcess_ChangedOriginalIsReprocessed(t *testing.T) {
	svc := respond(intentionsEN)
	p := newTestPipeline(t, svc, nil)
	ctx := context.Background()

	res, err := p.Process(ctx, internal.Row{ID: "s1-001", Original: intentions})
	require.NoError(t, err)

	changed := *res.Row
	changed.Original = intentions + " وإلى الله"
	again, err := p.Process(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, again.Status)
	assert.EqualValues(t, 2, svc.Calls())
}

func TestProcess_SemanticMismatchIsFatal(t *testing.T) {
	svc := translator.NewStatic(nil)
	p := newTestPipeline(t, svc, func(d *Deps, _ *Options) {
		d.Normalizer = normalize.Func(func(s string) string { return strings.ReplaceAll(s, "؟", "") })
	})

	_, err := p.Process(context.Background(), internal.Row{ID: "s1-002", Original: "هل تعلم ما هي الحكمة؟"})
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, CodeSemanticMismatch, re.Code)
	assert.Equal(t, "s1-002", re.RowID)
	assert.True(t, re.Fatal)
	assert.Contains(t, re.Reason, guards.ReasonQuestionChange)
	assert.False(t, retry.New().IsRetryable(err))
	assert.Zero(t, svc.Calls())

	_, ok, err := p.Artifacts().Get("s1-002")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcess_TwoPassExpansionCloses(t *testing.T) {
	svc := translator.NewStatic(nil)
	memory := tm.NewMemoryStore()
	p := newTestPipeline(t, svc, func(d *Deps, _ *Options) { d.TM = memory })
	ctx := context.Background()

	first, err := p.Process(ctx, internal.Row{ID: "s1-003", Original: intentions})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)
	assert.InDelta(t, 1.0, first.LPR, 1e-9)
	assert.True(t, first.Row.Metadata.NeedsExpand)
	assert.False(t, first.Row.Metadata.Expansion.Applied)

	f, ok, err := p.Flags().Get(flags.Expansion, "s1-003")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.Pending())
	assert.Equal(t, 1.08, f.TargetLPR)

	pending, err := p.HasPendingFlags("s1-003")
	require.NoError(t, err)
	assert.True(t, pending)

	second, err := p.Process(ctx, *first.Row)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, second.Status)
	assert.GreaterOrEqual(t, second.LPR, 1.08)
	assert.False(t, second.Row.Metadata.TM.Used)
	assert.True(t, second.Row.Metadata.Expansion.Applied)
	assert.Equal(t, 1.08, second.Row.Metadata.Expansion.TargetLPR)
	assert.Equal(t, fixedNow, *second.Row.Metadata.Expansion.AppliedAt)
	assert.False(t, second.Row.Metadata.NeedsExpand)

	_, ok, err = p.Flags().Get(flags.Expansion, "s1-003")
	require.NoError(t, err)
	assert.False(t, ok)

	third, err := p.Process(ctx, *second.Row)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, third.Status)
	assert.EqualValues(t, 2, svc.Calls())
}

func TestProcess_ExpansionStillShortKeepsAppliedAt(t *testing.T) {
	svc := translator.NewStatic(func(translator.TranslateRequest) (string, error) {
		return intentions, nil
	})
	p := newTestPipeline(t, svc, nil)
	ctx := context.Background()

	first, err := p.Process(ctx, internal.Row{ID: "s1-004", Original: intentions})
	require.NoError(t, err)
	second, err := p.Process(ctx, *first.Row)
	require.NoError(t, err)
	assert.True(t, second.Row.Metadata.Expansion.Applied)

	f, ok, err := p.Flags().Get(flags.Expansion, "s1-004")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, f.AppliedAt)
	assert.False(t, f.Pending())

	third, err := p.Process(ctx, *second.Row)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, third.Status)
	assert.EqualValues(t, 2, svc.Calls())
}

func TestProcess_TMReuse(t *testing.T) {
	ctx := context.Background()
	memory := tm.NewMemoryStore()
	id, err := memory.Learn(ctx, intentions, intentionsEN, tm.LearnOptions{Complexity: 2})
	require.NoError(t, err)

	svc := translator.NewStatic(nil)
	p := newTestPipeline(t, svc, func(d *Deps, _ *Options) { d.TM = memory })

	res, err := p.Process(ctx, internal.Row{ID: "s2-001", Original: intentions})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Zero(t, svc.Calls())
	assert.Equal(t, intentionsEN, res.Row.English)
	assert.True(t, res.Row.Metadata.TM.Used)
	assert.Equal(t, id, res.Row.Metadata.TM.SuggestionID)
	assert.Equal(t, 1.0, res.Row.Metadata.TM.Similarity)
	assert.Len(t, memory.Entries(), 1)
}

func TestProcess_TMLearnsOnOverallPass(t *testing.T) {
	ctx := context.Background()
	memory := tm.NewMemoryStore()
	p := newTestPipeline(t, respond(intentionsEN), func(d *Deps, _ *Options) { d.TM = memory })

	_, err := p.Process(ctx, internal.Row{ID: "s2-002", Original: intentions, Complexity: 3})
	require.NoError(t, err)

	entries := memory.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, intentionsEN, entries[0].English)
	assert.Equal(t, 3, entries[0].Complexity)
}

func TestProcess_QualityRejectIsFatal(t *testing.T) {
	original := "طلب العلم فريضة، والعلم نور، والصبر ضياء، والصدق نجاة"
	p := newTestPipeline(t, respond("Seeking knowledge is a duty for every believer who wants light"), nil)

	_, err := p.Process(context.Background(), internal.Row{ID: "s2-003", Original: original})
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, CodeQualityRejected, re.Code)
	assert.Contains(t, re.Reason, "coverage")
}

func TestProcess_Scripture(t *testing.T) {
	tests := []struct {
		name     string
		refs     []internal.ScriptureRef
		wantCode string
	}{
		{
			name:     "invalid quran reference",
			refs:     []internal.ScriptureRef{{Type: internal.ScriptureQuran, Reference: "abc"}},
			wantCode: CodeInvalidReference,
		},
		{
			name:     "unknown required reference",
			refs:     []internal.ScriptureRef{{Type: internal.ScriptureQuran, Reference: "114:99"}},
			wantCode: CodeNotFound,
		},
		{
			name: "context only is best effort",
			refs: []internal.ScriptureRef{
				{Type: internal.ScriptureQuran, Normalized: "114:99"},
				{Type: internal.ScriptureQuran, Normalized: "abc"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, respond(intentionsEN), nil)
			res, err := p.Process(context.Background(), internal.Row{ID: "s3-001", Original: intentions, ScriptureRefs: tt.refs})
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, StatusSuccess, res.Status)
				assert.Empty(t, res.Row.Footnotes)
				assert.True(t, res.Row.Metadata.QualityGates.Scripture)
				return
			}
			var re *RowError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.wantCode, re.Code)
		})
	}
}

func TestProcess_ScriptureInvalidReferenceReason(t *testing.T) {
	p := newTestPipeline(t, respond(intentionsEN), nil)
	_, err := p.Process(context.Background(), internal.Row{
		ID:            "s3-002",
		Original:      intentions,
		ScriptureRefs: []internal.ScriptureRef{{Type: internal.ScriptureQuran, Reference: "abc"}},
	})
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Reason, "invalid_quran_reference")
}

func TestProcess_ScriptureTransientErrorIsRetryable(t *testing.T) {
	src := &fakeSource{err: errors.New("scripture source returned 503 Service Unavailable")}
	p := newTestPipeline(t, respond(intentionsEN), func(d *Deps, _ *Options) {
		d.Scripture = scripture.NewResolver(scripture.NewMemoryCache(), src)
	})

	_, err := p.Process(context.Background(), internal.Row{
		ID:            "s3-003",
		Original:      intentions,
		ScriptureRefs: []internal.ScriptureRef{{Type: internal.ScriptureQuran, Reference: "2:255"}},
	})
	require.Error(t, err)
	var re *RowError
	assert.False(t, errors.As(err, &re))
	assert.True(t, retry.New().IsRetryable(err))
}

func TestProcess_FootnotesOrderedAndAnchored(t *testing.T) {
	p := newTestPipeline(t, respond(intentionsEN), nil)
	res, err := p.Process(context.Background(), internal.Row{
		ID:       "s3-004",
		Original: intentions,
		ScriptureRefs: []internal.ScriptureRef{
			{Type: internal.ScriptureQuran, Reference: "2:255"},
			{Type: internal.ScriptureQuran, Reference: "1:1"},
			{Type: internal.ScriptureQuran, Reference: "2 : 255"},
		},
	})
	require.NoError(t, err)

	notes := res.Row.Footnotes
	require.Len(t, notes, 2)
	assert.Equal(t, 1, notes[0].Number)
	assert.Equal(t, "1:1", notes[0].Reference)
	assert.Equal(t, 2, notes[1].Number)
	assert.Equal(t, "2:255", notes[1].Reference)
	assert.NotEmpty(t, notes[1].Arabic)
	assert.Equal(t, "Actions count by intentions; everyone gets what they intended[1][2].", res.Row.English)
	// Anchors do not count toward the LPR.
	assert.InDelta(t, 1.125, res.LPR, 1e-9)
}

type readabilityRefiner struct {
	short string
	seen  []bool
}

func (r *readabilityRefiner) Refine(_ context.Context, req refiner.Request) (string, error) {
	r.seen = append(r.seen, req.Readability)
	if req.Readability {
		return r.short, nil
	}
	return req.Draft, nil
}

func TestProcess_ExcellenceRailReadabilityRetry(t *testing.T) {
	long := "Notwithstanding considerable institutional complications, individuals demonstrating extraordinary " +
		"perseverance consistently accomplish remarkable achievements through unwavering dedication, meticulous " +
		"preparation, and comprehensive understanding of fundamental principles governing spiritual development"
	short := "The heart finds rest in remembrance. God is near to those who call. Be patient and kind."
	ref := &readabilityRefiner{short: short}
	p := newTestPipeline(t, respond(long), func(d *Deps, o *Options) {
		d.Refiner = ref
		o.ExcellenceRail = true
	})
	ctx := context.Background()

	first, err := p.Process(ctx, internal.Row{ID: "s4-001", Original: intentions})
	require.NoError(t, err)
	rail := first.Row.Metadata.ExcellenceRail
	assert.True(t, rail.Applied)
	assert.Contains(t, rail.Substitutions, "notwithstanding->despite")
	assert.True(t, strings.HasPrefix(first.Row.English, "Despite"))
	assert.Greater(t, rail.Grade, 10.0)
	assert.True(t, first.Row.Metadata.NeedsReadability)

	f, ok, err := p.Flags().Get(flags.Readability, "s4-001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.Pending())

	second, err := p.Process(ctx, *first.Row)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, second.Status)
	assert.Equal(t, short, second.Row.English)
	assert.True(t, second.Row.Metadata.ExcellenceRail.ReadabilityRetry)
	assert.False(t, second.Row.Metadata.NeedsReadability)
	assert.Equal(t, []bool{false, true}, ref.seen)

	_, ok, err = p.Flags().Get(flags.Readability, "s4-001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcess_ReadabilityFlagIgnoredWithoutRail(t *testing.T) {
	p := newTestPipeline(t, respond(intentionsEN), nil)
	require.NoError(t, p.Flags().Set(flags.Readability, "s4-002", flags.Flag{Reason: "grade 14.0"}))

	pending, err := p.HasPendingFlags("s4-002")
	require.NoError(t, err)
	assert.False(t, pending)
}

type mismatchChecker struct{}

func (mismatchChecker) Warnings(string, string) []string {
	return []string{"language_mismatch: expected en but detected ar"}
}

func TestProcess_LanguageWarningIsNotFatal(t *testing.T) {
	p := newTestPipeline(t, respond(intentionsEN), func(d *Deps, _ *Options) { d.Language = mismatchChecker{} })
	res, err := p.Process(context.Background(), internal.Row{ID: "s4-003", Original: intentions})
	require.NoError(t, err)
	assert.Equal(t, []string{"language_mismatch: expected en but detected ar"}, res.Row.Metadata.SemanticWarnings)
}

func TestProcess_TranslatorErrorIsWrapped(t *testing.T) {
	svc := translator.NewStatic(func(translator.TranslateRequest) (string, error) {
		return "", errors.New("openai returned status 429 Too Many Requests")
	})
	p := newTestPipeline(t, svc, nil)

	_, err := p.Process(context.Background(), internal.Row{ID: "s5-001", Original: intentions})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translate row s5-001")
	assert.True(t, retry.New().IsRetryable(err))
}

func TestProcess_RecordsCostSpans(t *testing.T) {
	ledger := cost.NewLedger()
	p := newTestPipeline(t, respond(intentionsEN), func(d *Deps, _ *Options) { d.Ledger = ledger })

	_, err := p.Process(context.Background(), internal.Row{ID: "s5-002", Original: intentions})
	require.NoError(t, err)

	// The rule refiner calls no model, so only the translation is priced.
	spans := ledger.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "translate", spans[0].Operation)
	assert.Equal(t, "dry-run", spans[0].Model)
	assert.Equal(t, "s5-002", spans[0].RowID)
	assert.NotNil(t, spans[0].ClosedAt)
	assert.Positive(t, spans[0].Tokens.Input)
}

type usageCompleter struct {
	out   string
	usage translator.Usage
}

func (c usageCompleter) Complete(context.Context, string, string, string) (string, translator.Usage, error) {
	return c.out, c.usage, nil
}

func TestProcess_RefineSpanUsesModelAndUsage(t *testing.T) {
	ledger := cost.NewLedger()
	completer := usageCompleter{
		out:   intentionsEN,
		usage: translator.Usage{Model: "gpt-4o-mini", Input: 3000, Output: 1000},
	}
	p := newTestPipeline(t, respond(intentionsEN), func(d *Deps, _ *Options) {
		d.Ledger = ledger
		d.Refiner = refiner.Chain{refiner.NewCompletionRefiner(completer, ""), refiner.NewRuleRefiner()}
	})

	_, err := p.Process(context.Background(), internal.Row{ID: "s5-003", Original: intentions})
	require.NoError(t, err)

	spans := ledger.Spans()
	require.Len(t, spans, 2)
	refine := spans[1]
	assert.Equal(t, "refine", refine.Operation)
	assert.Equal(t, "gpt-4o-mini", refine.Model)
	assert.Equal(t, cost.Tokens{Input: 3000, Output: 1000}, refine.Tokens)
	assert.InDelta(t, 0.00105, refine.Cost, 1e-9)
}

type failingRefiner struct{}

func (failingRefiner) Refine(context.Context, refiner.Request) (string, error) {
	return "", errors.New("refiner returned status 503 Service Unavailable")
}

func TestProcess_RulesRunWhenLLMRefinerFails(t *testing.T) {
	draft := "Actions count very truly by intentions; everyone gets what they intended."
	p := newTestPipeline(t, respond(draft), func(d *Deps, _ *Options) {
		d.Refiner = refiner.Chain{failingRefiner{}, refiner.NewRuleRefiner()}
	})

	res, err := p.Process(context.Background(), internal.Row{ID: "s5-004", Original: intentions})
	require.NoError(t, err)
	assert.Equal(t, refiner.NewRuleRefiner().Apply(draft), res.Row.English)
	assert.NotContains(t, res.Row.English, "very")
}

func TestProcess_NoTranslator(t *testing.T) {
	p := New(Deps{}, Options{})
	_, err := p.Process(context.Background(), internal.Row{ID: "x", Original: intentions})
	require.Error(t, err)
}

func TestProcess_MarkupSurvivesTranslation(t *testing.T) {
	var sent translator.TranslateRequest
	svc := translator.NewStatic(func(req translator.TranslateRequest) (string, error) {
		sent = req
		return "⟦0⟧Actions⟦1⟧ count by intentions; everyone gets what they intended.", nil
	})
	p := newTestPipeline(t, svc, nil)

	res, err := p.Process(context.Background(), internal.Row{ID: "s5-010", Original: "<b>إنما</b> الأعمال بالنيات وإنما لكل امرئ ما نوى"})
	require.NoError(t, err)
	assert.True(t, sent.Markers)
	assert.NotContains(t, sent.Text, "<b>")
	assert.True(t, strings.HasPrefix(res.Row.English, "<b>Actions</b> count"), res.Row.English)
	assert.Empty(t, res.Row.Metadata.SemanticWarnings)
}

func TestProcess_DroppedMarkupIsWarned(t *testing.T) {
	p := newTestPipeline(t, respond("⟦0⟧Actions count by intentions; everyone gets what they intended."), nil)

	res, err := p.Process(context.Background(), internal.Row{ID: "s5-011", Original: "<b>إنما</b> الأعمال بالنيات وإنما لكل امرئ ما نوى"})
	require.NoError(t, err)
	require.Len(t, res.Row.Metadata.SemanticWarnings, 1)
	assert.Contains(t, res.Row.Metadata.SemanticWarnings[0], "</b>")
}

func TestProcess_TransientFailureLeavesNoFlag(t *testing.T) {
	var expansions []bool
	svc := translator.NewStatic(func(req translator.TranslateRequest) (string, error) {
		expansions = append(expansions, req.Expansion != nil)
		return req.Text, nil
	})
	src := newSource()
	src.err = errors.New("scripture source returned 503 Service Unavailable")
	p := newTestPipeline(t, svc, func(d *Deps, _ *Options) {
		d.Scripture = scripture.NewResolver(scripture.NewMemoryCache(), src)
	})
	row := internal.Row{
		ID:            "s3-010",
		Original:      intentions,
		ScriptureRefs: []internal.ScriptureRef{{Type: internal.ScriptureQuran, Reference: "2:255"}},
	}

	_, err := p.Process(context.Background(), row)
	require.Error(t, err)
	_, ok, err := p.Flags().Get(flags.Expansion, "s3-010")
	require.NoError(t, err)
	assert.False(t, ok, "a failed attempt must not leave an expansion flag")

	src.err = nil
	res, err := p.Process(context.Background(), row)
	require.NoError(t, err)
	assert.False(t, res.Row.Metadata.Expansion.Applied)
	assert.Equal(t, []bool{false, false}, expansions)

	f, ok, err := p.Flags().Get(flags.Expansion, "s3-010")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.Pending())
}

// A single-clause English for a four-clause original at LPR 1.0: coverage
// rejects the row, and the short length still asks for expansion.
func TestProcess_RejectedRowKeepsExpansionFlag(t *testing.T) {
	original := "طلب العلم فريضة، والعلم نور، والصبر ضياء، والصدق نجاة"
	p := newTestPipeline(t, respond("Seeking knowledge is a duty for every believer always"), nil)

	_, err := p.Process(context.Background(), internal.Row{ID: "s3-011", Original: original})
	var re *RowError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeQualityRejected, re.Code)

	_, ok, err := p.Flags().Get(flags.Expansion, "s3-011")
	require.NoError(t, err)
	assert.True(t, ok)
}
