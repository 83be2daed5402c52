package stag

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultLookupCacheSize bounds memoised manifest lookups.
const defaultLookupCacheSize = 512

// LookupCache memoises manifest store lookups by type identity.
//
// Misses are cached as well, so a type that no manifest lists costs one
// store query per cache lifetime. A LookupCache is safe for concurrent use
// and may be shared by the registries of consecutive runs.
type LookupCache struct {
	entries *expirable.LRU[TypeID, string]
	hits    atomic.Int64
	misses  atomic.Int64
}

// LookupCacheOption configures a LookupCache.
type LookupCacheOption func(*lookupCacheOptions)

type lookupCacheOptions struct {
	ttl time.Duration
}

// WithLookupTTL expires cached lookups after ttl. Long running processes
// use it to notice manifests published after the first lookup.
// Default: no expiry.
func WithLookupTTL(ttl time.Duration) LookupCacheOption {
	return func(o *lookupCacheOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// NewLookupCache creates a cache holding up to size lookups.
// A non-positive size selects the default of 512.
func NewLookupCache(size int, opts ...LookupCacheOption) *LookupCache {
	var o lookupCacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 {
		size = defaultLookupCacheSize
	}
	return &LookupCache{
		entries: expirable.NewLRU[TypeID, string](size, nil, o.ttl),
	}
}

// lookup returns the factory providing id, or "" when no manifest lists it.
func (c *LookupCache) lookup(ctx context.Context, store ManifestStore, id TypeID) (string, error) {
	if factory, ok := c.entries.Get(id); ok {
		c.hits.Add(1)
		return factory, nil
	}
	c.misses.Add(1)

	factory, err := store.Lookup(ctx, id)
	if err != nil {
		if !IsNotFound(err) {
			return "", err
		}
		factory = ""
	}
	c.entries.Add(id, factory)
	return factory, nil
}

// Forget drops the cached lookup for id.
func (c *LookupCache) Forget(id TypeID) {
	c.entries.Remove(id)
}

// Purge drops all cached lookups.
func (c *LookupCache) Purge() {
	c.entries.Purge()
}

// CacheStats contains lookup cache statistics.
type CacheStats struct {
	Hits   int64 // Lookups answered from the cache
	Misses int64 // Lookups sent to the store
	Size   int64 // Number of cached entries
}

// Stats returns cache statistics for observability.
func (c *LookupCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   int64(c.entries.Len()),
	}
}
