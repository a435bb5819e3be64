// Package tm defines the translation memory contract used by the row
// pipeline and an in-process implementation of it.
package tm

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ReuseThreshold is the minimum similarity at which a suggestion replaces a
// live translation.
const ReuseThreshold = 0.90

// MaxFuzzyRunes caps the text length considered for edit-distance matching.
const MaxFuzzyRunes = 1000

type Suggestion struct {
	ID         string  `json:"id"`
	English    string  `json:"english"`
	Similarity float64 `json:"similarity"`
}

type LearnOptions struct {
	Complexity int
}

// Entry is one learned (original, english) pair.
type Entry struct {
	ID         string    `json:"id"`
	Original   string    `json:"original"`
	English    string    `json:"english"`
	Complexity int       `json:"complexity"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Memory is a similarity-searchable store of past translations. Entries are
// append-only from the pipeline's point of view.
type Memory interface {
	Suggest(ctx context.Context, text string, limit int) ([]Suggestion, error)
	Learn(ctx context.Context, original, english string, opts LearnOptions) (string, error)
}

var spaceRe = regexp.MustCompile(`\s+`)

// Key is the normalized form entries are compared in: NFC, whitespace
// collapsed, lowercased.
func Key(text string) string {
	text = norm.NFC.String(text)
	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}

// Levenshtein returns the rune-aware edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = min(prev[j], prev[j-1], curr[j-1]) + 1
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// Similarity is 1 - distance/maxLen over already normalized keys.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// LengthBound is the best similarity two keys could reach given only their
// lengths. Used to skip the full edit distance.
func LengthBound(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(maxLen)
}

// Rank scores candidate entries against text and returns the top limit
// suggestions, best first. minScore prunes candidates by length before the
// edit distance is computed.
func Rank(text string, entries []Entry, limit int, minScore float64) []Suggestion {
	key := Key(text)
	if len([]rune(key)) > MaxFuzzyRunes {
		// Too long for edit distance; exact matches only.
		minScore = 1
	}
	var out []Suggestion
	for _, e := range entries {
		ek := Key(e.Original)
		if LengthBound(key, ek) < minScore {
			continue
		}
		var sim float64
		switch {
		case ek == key:
			sim = 1
		case minScore >= 1:
			continue
		default:
			sim = Similarity(key, ek)
		}
		if sim < minScore {
			continue
		}
		out = append(out, Suggestion{ID: e.ID, English: e.English, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryStore is an in-process Memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	// MinScore prunes suggestions below this similarity.
	MinScore float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{MinScore: 0.5}
}

func (m *MemoryStore) Suggest(_ context.Context, text string, limit int) ([]Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Rank(text, m.entries, limit, m.MinScore), nil
}

func (m *MemoryStore) Learn(_ context.Context, original, english string, opts LearnOptions) (string, error) {
	e := Entry{
		ID:         uuid.NewString(),
		Original:   original,
		English:    english,
		Complexity: opts.Complexity,
		CreatedAt:  time.Now(),
	}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return e.ID, nil
}

// Entries returns a copy of the learned entries.
func (m *MemoryStore) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries...)
}
