package scripture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/valpere/tarjuman/internal"
)

func quran(ref string) internal.ScriptureRef {
	return internal.ScriptureRef{Type: internal.ScriptureQuran, Reference: ref}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ref  internal.ScriptureRef
		code string
	}{
		{"verse", quran("2:255"), ""},
		{"range", quran("1:1-7"), ""},
		{"arabic digits", quran("٢:٢٥٥"), ""},
		{"spaces", quran(" 2 : 255 "), ""},
		{"letters", quran("abc"), "invalid_quran_reference"},
		{"missing verse", quran("2:"), "invalid_quran_reference"},
		{"hadith", internal.ScriptureRef{Type: internal.ScriptureHadith, Reference: "bukhari:1"}, ""},
		{"empty hadith", internal.ScriptureRef{Type: internal.ScriptureHadith}, "empty_hadith_reference"},
		{"unknown type", internal.ScriptureRef{Type: "psalm", Reference: "23"}, "unknown_scripture_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ref)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, KindInvalidReference, se.Kind)
			assert.Equal(t, tt.code, se.Code)
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Validate(quran("abc"))
	assert.Equal(t, "invalid_reference: invalid_quran_reference: abc", err.Error())
}

func passageServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/quran/2:255":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"arabic":   "اللَّهُ لَا إِلَٰهَ إِلَّا هُوَ",
				"english":  "Allah - there is no deity except Him",
				"metadata": map[string]string{"surah": "al-Baqarah"},
			})
		case "/quran/3:7":
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveLocalFirst(t *testing.T) {
	var calls atomic.Int32
	srv := passageServer(t, &calls)
	r := NewResolver(NewMemoryCache(), NewHTTPSource(0), WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	p, err := r.ResolveLocalFirst(ctx, quran("2:255"), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Allah - there is no deity except Him", p.English)
	assert.Equal(t, "al-Baqarah", p.Metadata["surah"])

	// Arabic-Indic digits share the cache entry.
	_, err = r.ResolveLocalFirst(ctx, quran("٢:٢٥٥"), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestResolveLocalFirst_Failures(t *testing.T) {
	var calls atomic.Int32
	srv := passageServer(t, &calls)
	r := NewResolver(NewMemoryCache(), NewHTTPSource(0))
	ctx := context.Background()

	_, err := r.ResolveLocalFirst(ctx, quran("abc"), srv.URL)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "invalid_quran_reference", se.Code)
	assert.Equal(t, int32(0), calls.Load(), "invalid references never reach the source")

	_, err = r.ResolveLocalFirst(ctx, quran("9:999"), srv.URL)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindNotFound, se.Kind)

	_, err = r.ResolveLocalFirst(ctx, quran("3:7"), srv.URL)
	require.Error(t, err)
	assert.False(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "503")
}

func TestWarmCache(t *testing.T) {
	var calls atomic.Int32
	srv := passageServer(t, &calls)
	cache := NewMemoryCache()
	r := NewResolver(cache, NewHTTPSource(0),
		WithWarmReferences([]internal.ScriptureRef{quran("2:255"), quran("9:999"), quran("3:7")}),
		WithWarmConcurrency(2),
		WithLogger(zaptest.NewLogger(t)),
	)

	n, err := r.WarmCache(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, cache.Len())
}

func TestBadgerCache(t *testing.T) {
	c, err := OpenBadgerCache("", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	_, err = c.Get(ctx, "quran/2:255")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, c.Put(ctx, "quran/2:255", &Passage{Type: "quran", Reference: "2:255", English: "Throne verse"}))
	p, err := c.Get(ctx, "quran/2:255")
	require.NoError(t, err)
	assert.Equal(t, "Throne verse", p.English)
	assert.Equal(t, 1, c.Len())
}

func TestBadgerCache_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := OpenBadgerCache(dir, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "hadith/bukhari:1", &Passage{English: "Actions are by intentions"}))
	require.NoError(t, c.Close())

	c, err = OpenBadgerCache(dir, nil)
	require.NoError(t, err)
	defer c.Close()
	p, err := c.Get(ctx, "hadith/bukhari:1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.English, "Actions"))
}

func TestNormalizeReference(t *testing.T) {
	assert.Equal(t, "2:255", NormalizeReference(" ٢ : ٢٥٥ "))
	assert.Equal(t, "1:1-7", NormalizeReference("1:1 - 7"))
}
