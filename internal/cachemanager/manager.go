package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value store with per-entry TTLs.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetMultiple(ctx context.Context, keys []K) (map[K]V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	// GetOrAdd returns the stored value for key, storing value first when the
	// key is absent. loaded reports whether the value was already present.
	GetOrAdd(ctx context.Context, key K, value V, ttl time.Duration) (actual V, loaded bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Count() int
}
