// Package flags keeps the two persisted row-level follow-up maps: rows whose
// translation needs expanding and rows whose English needs a readability pass.
package flags

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/valpere/tarjuman/internal/kv"
)

// Kind selects one of the two flag maps.
type Kind string

const (
	Expansion   Kind = "expansion"
	Readability Kind = "readability"
)

// Flag records why a row needs another pass and what it should reach.
// AppliedAt is set once a pass has acted on the flag.
type Flag struct {
	Needs     bool       `json:"needs"`
	Reason    string     `json:"reason"`
	Target    string     `json:"target"`
	TargetLPR float64    `json:"targetLpr,omitempty"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Pending reports whether no pass has acted on the flag yet.
func (f Flag) Pending() bool {
	return f.Needs && f.AppliedAt == nil
}

type Store struct {
	expansion   kv.Store[Flag]
	readability kv.Store[Flag]
}

// New wraps two already constructed maps.
func New(expansion, readability kv.Store[Flag]) *Store {
	return &Store{expansion: expansion, readability: readability}
}

// NewMemory returns a Store backed by in-process maps.
func NewMemory() *Store {
	return New(kv.NewMemory[Flag](), kv.NewMemory[Flag]())
}

// Open loads <dir>/expansion.json and <dir>/readability.json.
func Open(dir string) (*Store, error) {
	exp, err := kv.NewFile[Flag](filepath.Join(dir, "expansion.json"))
	if err != nil {
		return nil, fmt.Errorf("open expansion flags: %w", err)
	}
	read, err := kv.NewFile[Flag](filepath.Join(dir, "readability.json"))
	if err != nil {
		return nil, fmt.Errorf("open readability flags: %w", err)
	}
	return New(exp, read), nil
}

func (s *Store) mapFor(kind Kind) (kv.Store[Flag], error) {
	switch kind {
	case Expansion:
		return s.expansion, nil
	case Readability:
		return s.readability, nil
	default:
		return nil, fmt.Errorf("unknown flag kind %q", kind)
	}
}

func (s *Store) Get(kind Kind, rowID string) (Flag, bool, error) {
	m, err := s.mapFor(kind)
	if err != nil {
		return Flag{}, false, err
	}
	return m.Get(rowID)
}

func (s *Store) Set(kind Kind, rowID string, f Flag) error {
	m, err := s.mapFor(kind)
	if err != nil {
		return err
	}
	f.Needs = true
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now().UTC()
	}
	return m.Put(rowID, f)
}

func (s *Store) Clear(kind Kind, rowID string) error {
	m, err := s.mapFor(kind)
	if err != nil {
		return err
	}
	return m.Delete(rowID)
}

// HasPending reports whether either map holds a flag for rowID that no pass
// has acted on.
func (s *Store) HasPending(rowID string) (bool, error) {
	for _, kind := range []Kind{Expansion, Readability} {
		f, ok, err := s.Get(kind, rowID)
		if err != nil {
			return false, err
		}
		if ok && f.Pending() {
			return true, nil
		}
	}
	return false, nil
}

// Exists reports whether any flag is stored for rowID.
func (s *Store) Exists(rowID string) (bool, error) {
	for _, kind := range []Kind{Expansion, Readability} {
		_, ok, err := s.Get(kind, rowID)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// List returns a copy of one map.
func (s *Store) List(kind Kind) (map[string]Flag, error) {
	m, err := s.mapFor(kind)
	if err != nil {
		return nil, err
	}
	return m.Snapshot()
}

// Flush persists both maps.
func (s *Store) Flush() error {
	return errors.Join(s.expansion.Flush(), s.readability.Flush())
}
