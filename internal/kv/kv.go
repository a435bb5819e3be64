// Package kv provides a small key-value store abstraction used for the flag
// maps and the per-row artifacts. All implementations share the same
// contract: Put and Delete are visible to subsequent Get calls immediately,
// and Flush makes the state durable with an atomic write.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/valpere/tarjuman/internal/fsutil"
)

// Store is a string-keyed map of values of type V.
type Store[V any] interface {
	Get(key string) (V, bool, error)
	Put(key string, value V) error
	Delete(key string) error
	Keys() ([]string, error)
	Snapshot() (map[string]V, error)
	Flush() error
}

// Memory is an in-process Store. Flush is a no-op.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{entries: make(map[string]V)}
}

func (m *Memory[V]) Get(key string) (V, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *Memory[V]) Put(key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *Memory[V]) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory[V]) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.entries), nil
}

func (m *Memory[V]) Snapshot() (map[string]V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]V, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *Memory[V]) Flush() error { return nil }

// File keeps the whole map in memory and persists it as a single JSON
// document. Flush writes through a temp file and rename while holding an
// advisory lock on "<path>.lock", so overlapping processes never interleave
// their writes.
type File[V any] struct {
	*Memory[V]
	path string
	lock *flock.Flock
}

// NewFile loads path if it exists. A missing file starts an empty map.
func NewFile[V any](path string) (*File[V], error) {
	f := &File[V]{
		Memory: NewMemory[V](),
		path:   path,
		lock:   flock.New(path + ".lock"),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if f.entries == nil {
		f.entries = make(map[string]V)
	}
	return f, nil
}

// Path returns the destination file.
func (f *File[V]) Path() string { return f.path }

func (f *File[V]) Flush() error {
	snap, err := f.Snapshot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	return fsutil.WriteJSONAtomic(f.path, snap)
}

// Dir stores one JSON document per key inside a directory. Every Put is
// written atomically, so Flush has nothing left to do.
type Dir[V any] struct {
	root string
	mu   sync.RWMutex
}

func NewDir[V any](root string) (*Dir[V], error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("kv: directory root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", root, err)
	}
	return &Dir[V]{root: root}, nil
}

func (d *Dir[V]) pathFor(key string) string {
	return filepath.Join(d.root, url.PathEscape(key)+".json")
}

func (d *Dir[V]) Get(key string) (V, bool, error) {
	var zero V
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, err := os.ReadFile(d.pathFor(key))
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read %s: %w", key, err)
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func (d *Dir[V]) Put(key string, value V) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fsutil.WriteJSONAtomic(d.pathFor(key), value)
}

func (d *Dir[V]) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := os.Remove(d.pathFor(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *Dir[V]) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Dir[V]) Snapshot() (map[string]V, error) {
	keys, err := d.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(keys))
	for _, k := range keys {
		v, ok, err := d.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (d *Dir[V]) Flush() error { return nil }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
