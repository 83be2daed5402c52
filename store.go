package stag

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// validFactory matches Go import paths: slash separated elements of
// letters, digits, dots, dashes, underscores and tildes.
var validFactory = regexp.MustCompile(`^[a-zA-Z0-9_.\-~]+(/[a-zA-Z0-9_.\-~]+)*$`)

// Manifest records the types a generated adapter package provides codecs for.
// It is published after every successful run so that later runs in other
// packages can route fields of these types through the package's adapters.
type Manifest struct {
	// Factory is the import path of the package holding the generated adapters.
	Factory string `json:"factory" yaml:"factory" toml:"factory" bson:"factory"`

	// Types are the supported types of the run, sorted.
	Types []TypeID `json:"types" yaml:"types" toml:"types" bson:"types"`

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at" toml:"generated_at" bson:"generated_at"`
}

// Provides reports whether the manifest lists id.
func (m Manifest) Provides(id TypeID) bool {
	return slices.Contains(m.Types, id)
}

// ValidateManifest checks that a manifest can be published.
// The factory must be an import path and every type must be a valid
// identity declared in the factory package.
func ValidateManifest(m Manifest) error {
	if m.Factory == "" {
		return fmt.Errorf("%w: factory cannot be empty", ErrInvalidManifest)
	}
	if strings.Contains(m.Factory, "..") || !validFactory.MatchString(m.Factory) {
		return fmt.Errorf("%w: factory %q is not an import path", ErrInvalidManifest, m.Factory)
	}
	for _, id := range m.Types {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		if id.PkgPath() != m.Factory {
			return fmt.Errorf("%w: type %s is not declared in %s", ErrInvalidManifest, id, m.Factory)
		}
	}
	return nil
}

// ManifestStore persists manifests between runs.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Publishing a manifest replaces any earlier manifest of the same factory.
//
// Implementations:
//   - memory.Store: in-process, for tests and single invocations
//   - file.Store: a directory of json, yaml or toml manifest files
//   - sqlite.Store, postgres.Store, mongodb.Store: shared build caches
//   - multi.Store: ordered fallback over several stores
type ManifestStore interface {
	// Connect establishes connection to the storage backend.
	// Must be called before any other operations.
	Connect(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error

	// Publish stores m, replacing the previous manifest of m.Factory.
	// Returns ErrInvalidManifest if m fails ValidateManifest.
	Publish(ctx context.Context, m Manifest) error

	// Lookup returns the factory whose manifest lists id.
	// Returns ErrNotFound if no manifest lists it.
	Lookup(ctx context.Context, id TypeID) (string, error)

	// List returns all manifests sorted by factory.
	List(ctx context.Context) ([]Manifest, error)
}

// HealthChecker is an optional interface for stores that support health checks.
type HealthChecker interface {
	// Health performs a health check on the store.
	// Returns nil if healthy, or an error describing the issue.
	Health(ctx context.Context) error
}

// SortManifests orders manifests by factory and sorts each type list.
// Store implementations use it to give List a stable order.
func SortManifests(ms []Manifest) {
	for i := range ms {
		slices.Sort(ms[i].Types)
	}
	slices.SortFunc(ms, func(a, b Manifest) int {
		return strings.Compare(a.Factory, b.Factory)
	})
}
