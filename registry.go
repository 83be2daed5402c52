package stag

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// Registry is the type table of one generation run. It maps canonical type
// identities to their descriptors and owns the supported-type set and the
// external adapter set.
//
// A Registry is explicitly constructed and passed through the pipeline;
// there is no process-wide instance, so independent runs (and tests) never
// share state. It is not safe for concurrent mutation: a run has exactly
// one writer, which completes before the finished model is read.
type Registry struct {
	classes  map[TypeID]*AnnotatedClass
	order    []TypeID
	external map[TypeID]ExternalAdapterInfo
	checked  map[TypeID]struct{}
	known    map[TypeID]string

	manifests ManifestStore
	lookups   *LookupCache
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	manifests ManifestStore
	known     []ExternalAdapterInfo
	lookups   *LookupCache
	logger    *slog.Logger
}

// WithManifests sets the store consulted by RegisterExternalAdapter for
// types not given to WithKnownAdapters.
func WithManifests(store ManifestStore) RegistryOption {
	return func(o *registryOptions) {
		o.manifests = store
	}
}

// WithKnownAdapters declares the factories of types already known to have
// generated codecs. RegisterExternalAdapter answers them without a store.
func WithKnownAdapters(infos ...ExternalAdapterInfo) RegistryOption {
	return func(o *registryOptions) {
		o.known = append(o.known, infos...)
	}
}

// WithLookupCache shares a manifest lookup cache between registries, so
// consecutive runs over related packages do not repeat store queries.
func WithLookupCache(c *LookupCache) RegistryOption {
	return func(o *registryOptions) {
		if c != nil {
			o.lookups = c
		}
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lookups == nil {
		o.lookups = NewLookupCache(defaultLookupCacheSize)
	}

	known := make(map[TypeID]string, len(o.known))
	for _, info := range o.known {
		if info.ID != "" && info.Factory != "" {
			known[info.ID] = info.Factory
		}
	}

	return &Registry{
		classes:   make(map[TypeID]*AnnotatedClass),
		external:  make(map[TypeID]ExternalAdapterInfo),
		checked:   make(map[TypeID]struct{}),
		known:     known,
		manifests: o.manifests,
		lookups:   o.lookups,
		logger:    o.logger,
	}
}

// GetOrCreate returns the descriptor for id, creating and registering an
// empty one on first use. The returned pointer is stable for the lifetime
// of the Registry. created reports whether this call made the descriptor.
func (r *Registry) GetOrCreate(id TypeID) (cls *AnnotatedClass, created bool) {
	if cls, ok := r.classes[id]; ok {
		return cls, false
	}
	cls = &AnnotatedClass{ID: id}
	r.classes[id] = cls
	r.order = append(r.order, id)
	// A type generated here shadows any external codec recorded earlier.
	delete(r.external, id)
	return cls, true
}

// Lookup returns the descriptor for id if one exists.
func (r *Registry) Lookup(id TypeID) (*AnnotatedClass, bool) {
	cls, ok := r.classes[id]
	return cls, ok
}

// IsSupported reports whether id has a locally generated codec.
func (r *Registry) IsSupported(id TypeID) bool {
	_, ok := r.classes[id]
	return ok
}

// AllSupportedTypes returns a sorted copy of the supported-type set.
func (r *Registry) AllSupportedTypes() []TypeID {
	ids := slices.Clone(r.order)
	slices.Sort(ids)
	return ids
}

// Classes returns the descriptors in first-discovery order.
func (r *Registry) Classes() []*AnnotatedClass {
	classes := make([]*AnnotatedClass, len(r.order))
	for i, id := range r.order {
		classes[i] = r.classes[id]
	}
	return classes
}

// Len returns the number of supported types.
func (r *Registry) Len() int {
	return len(r.order)
}

// RegisterExternalAdapter records id as externally codable when a
// previously built package provides a codec for it: either a known adapter
// (the declaring package exports generated Adapters) or a manifest in the
// store. It is a no-op when id is supported locally, already recorded, or
// already checked and missing. It reports whether id is now recorded as
// external.
func (r *Registry) RegisterExternalAdapter(ctx context.Context, id TypeID) (bool, error) {
	if r.IsSupported(id) {
		return false, nil
	}
	if _, ok := r.external[id]; ok {
		return true, nil
	}
	if factory, ok := r.known[id]; ok {
		r.external[id] = ExternalAdapterInfo{ID: id, Factory: factory}
		r.logger.Debug("registered known adapter", "type", id, "factory", factory)
		return true, nil
	}
	if _, ok := r.checked[id]; ok || r.manifests == nil {
		return false, nil
	}

	factory, err := r.lookups.lookup(ctx, r.manifests, id)
	if err != nil {
		return false, err
	}
	r.checked[id] = struct{}{}
	if factory == "" {
		return false, nil
	}

	r.external[id] = ExternalAdapterInfo{ID: id, Factory: factory}
	r.logger.Debug("registered external adapter", "type", id, "factory", factory)
	return true, nil
}

// ExternalAdapter returns the external adapter recorded for id.
func (r *Registry) ExternalAdapter(id TypeID) (ExternalAdapterInfo, bool) {
	info, ok := r.external[id]
	return info, ok
}

// ExternalAdapters returns the recorded external adapters sorted by type.
func (r *Registry) ExternalAdapters() []ExternalAdapterInfo {
	infos := make([]ExternalAdapterInfo, 0, len(r.external))
	for _, info := range r.external {
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b ExternalAdapterInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return infos
}

// Factories returns the distinct factory packages of the external
// adapters, sorted.
func (r *Registry) Factories() []string {
	var factories []string
	for _, info := range r.external {
		if info.Factory != "" && !slices.Contains(factories, info.Factory) {
			factories = append(factories, info.Factory)
		}
	}
	slices.Sort(factories)
	return factories
}
