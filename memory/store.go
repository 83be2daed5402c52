// Package memory provides an in-process manifest store.
package memory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/stag"
)

// Store is an in-memory manifest store.
// Suitable for tests and for a single stag invocation covering several
// packages, where manifests need not outlive the process.
type Store struct {
	mu        sync.RWMutex
	manifests map[string]stag.Manifest // factory -> manifest
	index     map[stag.TypeID]string   // type -> factory
	closed    atomic.Bool
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		manifests: make(map[string]stag.Manifest),
		index:     make(map[stag.TypeID]string),
	}
}

// Compile-time interface checks
var (
	_ stag.ManifestStore = (*Store)(nil)
	_ stag.HealthChecker = (*Store)(nil)
)

// Connect establishes connection (no-op for memory store).
func (s *Store) Connect(ctx context.Context) error {
	return nil
}

// Close marks the store closed. Later operations return ErrStoreClosed.
func (s *Store) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}

// Publish stores m, replacing the previous manifest of m.Factory.
func (s *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	m.Types = slices.Clone(m.Types)
	slices.Sort(m.Types)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.manifests[m.Factory]; ok {
		for _, id := range old.Types {
			delete(s.index, id)
		}
	}
	s.manifests[m.Factory] = m
	for _, id := range m.Types {
		s.index[id] = m.Factory
	}
	return nil
}

// Lookup returns the factory whose manifest lists id.
func (s *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if s.closed.Load() {
		return "", stag.ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	factory, ok := s.index[id]
	if !ok {
		return "", stag.ErrNotFound
	}
	return factory, nil
}

// List returns all manifests sorted by factory.
func (s *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if s.closed.Load() {
		return nil, stag.ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stag.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		m.Types = slices.Clone(m.Types)
		out = append(out, m)
	}
	stag.SortManifests(out)
	return out, nil
}

// Health reports ErrStoreClosed after Close.
func (s *Store) Health(ctx context.Context) error {
	if s.closed.Load() {
		return stag.ErrStoreClosed
	}
	return nil
}
