// Package multi combines several manifest stores into one with ordered
// fallback.
//
// # Consistency Model
//
// Lookups try the stores in order and the first hit wins. ErrNotFound is
// returned only when every store misses. By default Publish writes to all
// stores and succeeds if at least one store accepts the manifest, so a
// shared cache that is temporarily down does not fail a run.
//
// List merges the manifests of all stores; when several stores hold a
// manifest for the same factory the earliest store wins.
package multi

import (
	"context"
	"errors"

	"github.com/rbaliyan/stag"
)

// Strategy defines how the multi-store handles lookups and publishes.
type Strategy int

const (
	// StrategyFallback reads from the first store that has the type and
	// publishes to all stores.
	// Best for: shared cache + local directory scenarios.
	StrategyFallback Strategy = iota

	// StrategyReadThrough reads from stores in order; on a hit from store N
	// the manifest is copied into stores 0..N-1. Publishes go to all stores.
	// Best for: in-process memory store in front of a database.
	StrategyReadThrough

	// StrategyPrimaryOnly reads with fallback but publishes to the primary
	// (first) store only.
	// Best for: read-only vendor manifests behind a writable store.
	StrategyPrimaryOnly
)

// ErrNoStores is returned by operations on a multi-store with no stores.
var ErrNoStores = errors.New("multi: no stores configured")

// Store wraps multiple stores with configurable fallback behavior.
// The stores slice is immutable after construction; each underlying store
// provides its own concurrency protection.
type Store struct {
	stores   []stag.ManifestStore
	strategy Strategy
}

// Option configures the multi-store.
type Option func(*Store)

// WithStrategy sets the lookup/publish strategy.
func WithStrategy(s Strategy) Option {
	return func(ms *Store) {
		ms.strategy = s
	}
}

// NewStore creates a multi-store from the given stores with optional configuration.
// The first store is considered the primary.
//
// Example:
//
//	// Shared database + checked-in manifests
//	store := multi.NewStore(
//	    []stag.ManifestStore{postgres.NewStore(db, nil), file.NewStore(".stag/manifests")},
//	)
func NewStore(stores []stag.ManifestStore, opts ...Option) *Store {
	ms := &Store{
		stores:   stores,
		strategy: StrategyFallback,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Compile-time interface checks
var (
	_ stag.ManifestStore = (*Store)(nil)
	_ stag.HealthChecker = (*Store)(nil)
)

// Connect connects all underlying stores.
// It fails only if no store could connect.
func (ms *Store) Connect(ctx context.Context) error {
	var errs []error
	for _, s := range ms.stores {
		if err := s.Connect(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == len(ms.stores) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Close closes all underlying stores.
func (ms *Store) Close(ctx context.Context) error {
	var errs []error
	for _, s := range ms.stores {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish writes m according to the strategy.
// An invalid manifest is rejected before any store is touched.
func (ms *Store) Publish(ctx context.Context, m stag.Manifest) error {
	if len(ms.stores) == 0 {
		return ErrNoStores
	}
	if err := stag.ValidateManifest(m); err != nil {
		return err
	}

	if ms.strategy == StrategyPrimaryOnly {
		return ms.stores[0].Publish(ctx, m)
	}

	var errs []error
	succeeded := false
	for _, s := range ms.stores {
		if err := s.Publish(ctx, m); err != nil {
			errs = append(errs, err)
		} else {
			succeeded = true
		}
	}

	// At least one store must succeed
	if !succeeded {
		return errors.Join(errs...)
	}
	return nil
}

// Lookup tries stores in order until one lists id.
// A store failing with anything other than ErrNotFound is skipped; its
// error is returned only if no later store has the type.
func (ms *Store) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	if len(ms.stores) == 0 {
		return "", ErrNoStores
	}

	var errs []error
	for i, s := range ms.stores {
		factory, err := s.Lookup(ctx, id)
		if err == nil {
			if ms.strategy == StrategyReadThrough && i > 0 {
				ms.populate(ctx, i, factory)
			}
			return factory, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !stag.IsNotFound(err) {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", stag.ErrNotFound
}

// populate copies the manifest of factory from stores[from] into the
// stores before it. Failures are ignored; the lookup already succeeded.
func (ms *Store) populate(ctx context.Context, from int, factory string) {
	manifests, err := ms.stores[from].List(ctx)
	if err != nil {
		return
	}
	for _, m := range manifests {
		if m.Factory != factory {
			continue
		}
		for j := range from {
			_ = ms.stores[j].Publish(ctx, m)
		}
		return
	}
}

// List merges the manifests of all stores. Stores that fail are skipped
// unless every store fails.
func (ms *Store) List(ctx context.Context) ([]stag.Manifest, error) {
	if len(ms.stores) == 0 {
		return nil, ErrNoStores
	}

	seen := make(map[string]bool)
	var (
		out  []stag.Manifest
		errs []error
	)
	for _, s := range ms.stores {
		manifests, err := s.List(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range manifests {
			if seen[m.Factory] {
				continue
			}
			seen[m.Factory] = true
			out = append(out, m)
		}
	}

	if len(errs) == len(ms.stores) {
		return nil, errors.Join(errs...)
	}
	stag.SortManifests(out)
	return out, nil
}

// Primary returns the primary (first) store.
func (ms *Store) Primary() stag.ManifestStore {
	if len(ms.stores) == 0 {
		return nil
	}
	return ms.stores[0]
}

// Stores returns all underlying stores.
func (ms *Store) Stores() []stag.ManifestStore {
	stores := make([]stag.ManifestStore, len(ms.stores))
	copy(stores, ms.stores)
	return stores
}

// Health checks the health of all underlying stores.
// Returns nil if at least one store is healthy (following fallback pattern).
// Returns an error only if all stores are unhealthy.
func (ms *Store) Health(ctx context.Context) error {
	if len(ms.stores) == 0 {
		return ErrNoStores
	}

	var errs []error
	for _, s := range ms.stores {
		if hc, ok := s.(stag.HealthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				errs = append(errs, err)
			} else {
				// At least one store is healthy
				return nil
			}
		}
	}

	// If no stores implement HealthChecker, assume healthy
	if len(errs) == 0 {
		return nil
	}

	// All stores that implement HealthChecker are unhealthy
	return errors.Join(errs...)
}
