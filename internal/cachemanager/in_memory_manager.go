package cachemanager

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/almostacms/almostacms/internal/log"
)

const DefaultExpiration = 10 * time.Minute
const DefaultCleanupInterval = 30 * time.Minute

// NoExpiration keeps an entry until it is deleted or the cache is flushed.
const NoExpiration = gocache.NoExpiration

// NewInMemoryCacheManager initializes the in-memory cache. useCase only shows
// up in log lines so several caches can be told apart.
func NewInMemoryCacheManager[K ~string, V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// InMemoryCacheManager is the go-cache backed CacheManager.
type InMemoryCacheManager[K ~string, V any] struct {
	useCase string
	cache   *gocache.Cache
	addMu   sync.Mutex
}

var _ CacheManager[string, int] = (*InMemoryCacheManager[string, int])(nil)

// Get retrieves an item from the cache by its key
func (c *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(string(key))
	if !found {
		return zeroValue, false
	}

	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "cache", c.useCase, "key", string(key))
		return zeroValue, false
	}

	log.Debug(log.CatCache, "cache hit", "cache", c.useCase, "key", string(key))
	return v, true
}

// GetMultiple returns every key that is present. ok is false only when none
// of the keys were found.
func (c *InMemoryCacheManager[K, V]) GetMultiple(ctx context.Context, keys []K) (map[K]V, bool) {
	if len(keys) == 0 {
		return nil, false
	}

	values := make(map[K]V, len(keys))
	var missing []string
	for _, key := range keys {
		v, ok := c.Get(ctx, key)
		if !ok {
			missing = append(missing, string(key))
			continue
		}
		values[key] = v
	}

	if len(values) == 0 {
		return nil, false
	}
	if len(missing) > 0 {
		log.Debug(log.CatCache, "partial cache miss", "cache", c.useCase, "missing", missing)
	}
	return values, true
}

// GetWithRefresh retrieves an item and, when found, stores it again so its
// TTL starts over.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return value, false
	}
	c.Set(ctx, key, value, ttl)
	return value, true
}

func (c *InMemoryCacheManager[K, V]) GetOrAdd(ctx context.Context, key K, value V, ttl time.Duration) (V, bool) {
	c.addMu.Lock()
	defer c.addMu.Unlock()

	if existing, ok := c.Get(ctx, key); ok {
		return existing, true
	}
	// Add fails if another writer used Set in between; fall back to its value.
	if err := c.cache.Add(string(key), value, ttl); err != nil {
		if existing, ok := c.Get(ctx, key); ok {
			return existing, true
		}
		c.cache.Set(string(key), value, ttl)
	}
	return value, false
}

// Set sets a value in the cache with a key and TTL
func (c *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(string(key), value, ttl)
}

// Delete removes the given keys. Missing keys are ignored.
func (c *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, key := range keys {
		c.cache.Delete(string(key))
	}
	return nil
}

// Flush drops every entry.
func (c *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	c.cache.Flush()
	return nil
}

// Count returns the number of entries, including expired ones not yet
// cleaned up.
func (c *InMemoryCacheManager[K, V]) Count() int {
	return c.cache.ItemCount()
}
