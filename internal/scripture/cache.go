package scripture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Cache stores resolved passages keyed by "type/normalized-reference".
// Get returns ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Passage, error)
	Put(ctx context.Context, key string, p *Passage) error
	Len() int
}

type MemoryCache struct {
	mu       sync.RWMutex
	passages map[string]Passage
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{passages: make(map[string]Passage)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Passage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.passages[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, p *Passage) error {
	c.mu.Lock()
	c.passages[key] = *p
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.passages)
}

const badgerPrefix = "passage/"

// BadgerCache persists passages across runs.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens a cache at dir, or an in-memory one when dir is
// empty.
func OpenBadgerCache(dir string, logger *zap.Logger) (*BadgerCache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create scripture cache directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open scripture cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Get(_ context.Context, key string) (*Passage, error) {
	var p Passage
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cached passage %s: %w", key, err)
	}
	return &p, nil
}

func (c *BadgerCache) Put(_ context.Context, key string, p *Passage) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal passage: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerPrefix+key), data)
	})
}

func (c *BadgerCache) Len() int {
	n := 0
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
