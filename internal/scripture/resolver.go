package scripture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/tarjuman/internal"
)

// DefaultWarmReferences are the citations most rows lean on.
var DefaultWarmReferences = []internal.ScriptureRef{
	{Type: internal.ScriptureQuran, Reference: "1:1-7"},
	{Type: internal.ScriptureQuran, Reference: "2:255"},
	{Type: internal.ScriptureQuran, Reference: "2:286"},
	{Type: internal.ScriptureQuran, Reference: "3:190-191"},
	{Type: internal.ScriptureQuran, Reference: "24:35"},
	{Type: internal.ScriptureQuran, Reference: "59:22-24"},
	{Type: internal.ScriptureQuran, Reference: "112:1-4"},
	{Type: internal.ScriptureHadith, Reference: "bukhari:1"},
	{Type: internal.ScriptureHadith, Reference: "muslim:2564"},
}

type ResolverOption func(*Resolver)

func WithWarmReferences(refs []internal.ScriptureRef) ResolverOption {
	return func(r *Resolver) { r.warm = refs }
}

func WithWarmConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.warmConcurrency = n
		}
	}
}

func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

type Resolver struct {
	cache           Cache
	source          Source
	warm            []internal.ScriptureRef
	warmConcurrency int
	logger          *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewResolver(cache Cache, source Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:           cache,
		source:          source,
		warm:            DefaultWarmReferences,
		warmConcurrency: 4,
		logger:          zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ResolveLocalFirst validates ref, then answers from the cache or falls back
// to the remote source and caches the result. Invalid and unknown references
// return *Error; transport failures are returned wrapped so the retry
// controller can classify them.
func (r *Resolver) ResolveLocalFirst(ctx context.Context, ref internal.ScriptureRef, baseURL string) (*Passage, error) {
	if err := Validate(ref); err != nil {
		return nil, err
	}
	key := lookupKey(ref)
	ck := cacheKey(ref.Type, key)

	p, err := r.cache.Get(ctx, ck)
	if err == nil {
		r.hits.Add(1)
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.logger.Warn("scripture cache read failed", zap.String("key", ck), zap.Error(err))
	}
	r.misses.Add(1)

	if r.source == nil {
		return nil, &Error{Kind: KindNotFound, Code: "passage_not_found", Reference: displayRef(ref)}
	}
	p, err = r.source.Fetch(ctx, baseURL, ref.Type, key)
	if errors.Is(err, ErrNotFound) {
		return nil, &Error{Kind: KindNotFound, Code: "passage_not_found", Reference: displayRef(ref)}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", ref.Type, key, err)
	}
	if err := r.cache.Put(ctx, ck, p); err != nil {
		r.logger.Warn("scripture cache write failed", zap.String("key", ck), zap.Error(err))
	}
	return p, nil
}

// WarmCache resolves the warm reference list once so concurrent rows start
// from a populated cache. Individual failures are logged, not returned; the
// count of references now cached is reported.
func (r *Resolver) WarmCache(ctx context.Context, baseURL string) (int, error) {
	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.warmConcurrency)
	for _, ref := range r.warm {
		g.Go(func() error {
			if _, err := r.ResolveLocalFirst(gctx, ref, baseURL); err != nil {
				r.logger.Debug("scripture warm-up miss",
					zap.String("type", ref.Type),
					zap.String("reference", displayRef(ref)),
					zap.Error(err))
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(warmed.Load()), err
	}
	if err := ctx.Err(); err != nil {
		return int(warmed.Load()), err
	}
	r.logger.Info("scripture cache warmed", zap.Int64("references", warmed.Load()), zap.Int("cached", r.cache.Len()))
	return int(warmed.Load()), nil
}

// Stats returns cache hit and miss counts since construction.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
