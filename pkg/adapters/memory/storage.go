// Package memory implements core.Storage in process memory.
// It is used by tests and ephemeral sessions; failures can be injected to
// exercise the stores' error absorption.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/quire/pkg/core"
)

// Storage is a map-backed core.Storage.
type Storage struct {
	mu       sync.RWMutex
	data     map[string][]byte
	readErr  error
	writeErr error
	readOnly bool
	setCalls int
}

// New creates an empty storage.
func New() *Storage {
	return &Storage{data: make(map[string][]byte)}
}

// NewReadOnly creates a storage seeded with data that rejects writes.
func NewReadOnly(seed map[string][]byte) *Storage {
	s := New()
	for k, v := range seed {
		s.data[k] = slices.Clone(v)
	}
	s.readOnly = true
	return s
}

// Get implements core.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.readErr != nil {
		return nil, s.readErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Set implements core.Storage.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setCalls++
	if s.readOnly {
		return core.ErrReadOnly
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.data[key] = slices.Clone(value)
	return nil
}

// Remove implements core.Storage.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return core.ErrReadOnly
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.data, key)
	return nil
}

// FailReads makes every subsequent Get return err. Pass nil to recover.
func (s *Storage) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes every subsequent Set and Remove return err. Pass nil to recover.
func (s *Storage) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Keys returns the stored keys, sorted.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Writes returns how many times Set was called.
func (s *Storage) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setCalls
}

// StorageState exposes internal state for observability.
type StorageState struct {
	Keys     []string `json:"keys"`
	Writes   int      `json:"writes"`
	ReadOnly bool     `json:"read_only"`
}

// State implements introspection.Introspectable.
func (s *Storage) State() any {
	keys := s.Keys()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StorageState{Keys: keys, Writes: s.setCalls, ReadOnly: s.readOnly}
}

// ComponentType implements introspection.Component.
func (s *Storage) ComponentType() string {
	return "storage"
}

var _ core.Storage = (*Storage)(nil)
var _ introspection.Introspectable = (*Storage)(nil)
var _ introspection.Component = (*Storage)(nil)
