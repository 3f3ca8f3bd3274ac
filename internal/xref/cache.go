package xref

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PopulateFunc produces the value for a cache miss.
type PopulateFunc func(ctx context.Context) ([]string, error)

// DiscoveryCache maps a source domain to its valid target domains for the life of the process.
// Entries are never invalidated; failed populations leave no entry behind.
type DiscoveryCache struct {
	entries map[string][]string
	mutex   sync.RWMutex
	group   singleflight.Group
}

// NewDiscoveryCache constructs an empty cache.
func NewDiscoveryCache() *DiscoveryCache {
	return &DiscoveryCache{entries: map[string][]string{}}
}

// Lookup returns the cached set for key without populating it.
func (cache *DiscoveryCache) Lookup(key string) ([]string, bool) {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()
	targets, ok := cache.entries[key]
	if !ok {
		return nil, false
	}
	return cloneStrings(targets), true
}

// GetOrPopulate returns the cached value for key, calling populate once on a miss.
// Concurrent misses for the same key share a single populate call. populate runs
// without the caller's cancellation, so a canceled caller returns its own context
// error while the others still receive the shared result.
func (cache *DiscoveryCache) GetOrPopulate(ctx context.Context, key string, populate PopulateFunc) ([]string, error) {
	if targets, ok := cache.Lookup(key); ok {
		return targets, nil
	}
	populateCtx := context.WithoutCancel(ctx)
	results := cache.group.DoChan(key, func() (interface{}, error) {
		if targets, ok := cache.Lookup(key); ok {
			return targets, nil
		}
		targets, populateErr := populate(populateCtx)
		if populateErr != nil {
			return nil, populateErr
		}
		stored := cloneStrings(targets)
		cache.mutex.Lock()
		cache.entries[key] = stored
		cache.mutex.Unlock()
		return stored, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return cloneStrings(result.Val.([]string)), nil
	}
}

// Len reports the number of cached source domains.
func (cache *DiscoveryCache) Len() int {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()
	return len(cache.entries)
}

func cloneStrings(values []string) []string {
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}
