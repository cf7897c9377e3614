// Package cache provides a TTL read-through cache with explicit invalidation.
package cache

import (
	"context"
	"sync"
	"time"
)

// Loader fetches the value for key on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache wraps a Loader with TTL-based caching.
// A ttl of zero disables caching; every Get goes to the loader.
type Cache[K comparable, V any] struct {
	load    Loader[K, V]
	entries map[K]*entry[V]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	// gen is bumped on every invalidation so loads started before it are not stored.
	gen uint64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New wraps load with caching. ttl is how long values are kept before re-fetching.
func New[K comparable, V any](load Loader[K, V], ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		load:    load,
		entries: make(map[K]*entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key, using the cache if available.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	v, err := c.load(ctx, key)
	if err != nil || c.ttl <= 0 {
		return v, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.entries[key] = &entry[V]{value: v, expiresAt: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()
	return v, nil
}

// Invalidate removes key from the cache.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gen++
	c.mu.Unlock()
}

// InvalidateFunc removes every key matching fn.
func (c *Cache[K, V]) InvalidateFunc(fn func(K) bool) {
	c.mu.Lock()
	for k := range c.entries {
		if fn(k) {
			delete(c.entries, k)
		}
	}
	c.gen++
	c.mu.Unlock()
}

