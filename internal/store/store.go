// Package store persists the translation memory and the cost spans of past
// runs in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/tarjuman/internal/cost"
	"github.com/valpere/tarjuman/internal/tm"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("store: entry not found")

type Option func(*Store)

// WithLanguages scopes translation memory reads and writes to one pair.
func WithLanguages(source, target string) Option {
	return func(s *Store) {
		s.sourceLang, s.targetLang = source, target
	}
}

// WithMinScore prunes suggestions below this similarity.
func WithMinScore(v float64) Option {
	return func(s *Store) { s.minScore = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements tm.Memory and cost.Sink.
type Store struct {
	db         *sql.DB
	sourceLang string
	targetLang string
	minScore   float64
	now        func() time.Time
}

func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under
	// the row worker pool.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:         db,
		sourceLang: "ar",
		targetLang: "en",
		minScore:   0.5,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		original TEXT NOT NULL,
		original_key TEXT NOT NULL,
		english TEXT NOT NULL,
		complexity INTEGER DEFAULT 0,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		usage_count INTEGER DEFAULT 0,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(original_key, source_lang, target_lang)
	);

	-- cost_spans keeps every closed cost span across runs
	CREATE TABLE IF NOT EXISTS cost_spans (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		row_id TEXT NOT NULL,
		model TEXT,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		cost REAL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memory_pair ON translation_memory(source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_spans_row ON cost_spans(row_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Suggest ranks the stored entries of the configured language pair against
// text. The usage count of a reusable best match is bumped.
func (s *Store) Suggest(ctx context.Context, text string, limit int) ([]tm.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original, english, complexity, created_at FROM translation_memory WHERE source_lang = ? AND target_lang = ?`,
		s.sourceLang, s.targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []tm.Entry
	for rows.Next() {
		var e tm.Entry
		if err := rows.Scan(&e.ID, &e.Original, &e.English, &e.Complexity, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := tm.Rank(text, entries, limit, s.minScore)
	if len(out) > 0 && out[0].Similarity >= tm.ReuseThreshold {
		_, err = s.db.ExecContext(ctx,
			`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
			s.now(), out[0].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Learn stores a pair. Learning the same original again replaces its English
// and keeps the entry id.
func (s *Store) Learn(ctx context.Context, original, english string, opts tm.LearnOptions) (string, error) {
	now := s.now()
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO translation_memory (id, original, original_key, english, complexity, source_lang, target_lang, usage_count, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(original_key, source_lang, target_lang)
		 DO UPDATE SET english = excluded.english, complexity = excluded.complexity, last_used = excluded.last_used
		 RETURNING id`,
		uuid.NewString(), normalizeText(original), tm.Key(original), strings.TrimSpace(english),
		opts.Complexity, s.sourceLang, s.targetLang, now, now).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("learn: %w", err)
	}
	return id, nil
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID         string
	Original   string
	English    string
	Complexity int
	SourceLang string
	TargetLang string
	UsageCount int
	LastUsed   time.Time
	CreatedAt  time.Time
}

// MemoryStats summarises translation memory usage.
type MemoryStats struct {
	TotalEntries int
	UsedEntries  int
	TotalUsage   int
	Pairs        int
}

// ListMemory returns all entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original, english, complexity, source_lang, target_lang, usage_count, last_used, created_at
		 FROM translation_memory ORDER BY last_used DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.Original, &e.English, &e.Complexity, &e.SourceLang, &e.TargetLang, &e.UsageCount, &e.LastUsed, &e.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN usage_count > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0),
			COUNT(DISTINCT source_lang || '>' || target_lang)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.UsedEntries,
		&stats.TotalUsage,
		&stats.Pairs,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteMemory removes one entry by id.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ClearMemory removes all entries and reports how many were deleted.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveSpan records a closed cost span. Saving the same span twice keeps the
// latest values.
func (s *Store) SaveSpan(ctx context.Context, span cost.Span) error {
	var closed sql.NullTime
	if span.ClosedAt != nil {
		closed = sql.NullTime{Time: *span.ClosedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cost_spans (id, operation, row_id, model, input_tokens, output_tokens, cost, started_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		span.ID, span.Operation, span.RowID, span.Model, span.Tokens.Input, span.Tokens.Output, span.Cost, span.StartedAt, closed)
	if err != nil {
		return fmt.Errorf("save span %s: %w", span.ID, err)
	}
	return nil
}

// ListSpans returns the stored spans of one row, or of every row when rowID
// is empty, oldest first.
func (s *Store) ListSpans(ctx context.Context, rowID string) ([]cost.Span, error) {
	query := `SELECT id, operation, row_id, model, input_tokens, output_tokens, cost, started_at, closed_at FROM cost_spans`
	var args []any
	if rowID != "" {
		query += ` WHERE row_id = ?`
		args = append(args, rowID)
	}
	query += ` ORDER BY started_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []cost.Span
	for rows.Next() {
		var (
			sp     cost.Span
			model  sql.NullString
			closed sql.NullTime
		)
		if err := rows.Scan(&sp.ID, &sp.Operation, &sp.RowID, &model, &sp.Tokens.Input, &sp.Tokens.Output, &sp.Cost, &sp.StartedAt, &closed); err != nil {
			return nil, err
		}
		sp.Model = model.String
		if closed.Valid {
			t := closed.Time
			sp.ClosedAt = &t
		}
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// TotalCost sums the cost of every stored span.
func (s *Store) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost), 0) FROM cost_spans`).Scan(&total)
	return total, err
}

// normalizeText trims whitespace and applies Unicode NFC normalization.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

var (
	_ tm.Memory = (*Store)(nil)
	_ cost.Sink = (*Store)(nil)
)
