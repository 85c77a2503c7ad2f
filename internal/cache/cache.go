// Package cache provides a TTL-bounded in-memory cache with a
// per-key stampede guard.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock returns the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Cache is a size- and TTL-bounded key/value cache. Concurrent callers
// of GetOrCompute on a cold key share a single in-flight computation.
type Cache[V any] struct {
	ttl        time.Duration
	maxEntries int
	now        Clock

	mu      sync.Mutex
	entries map[string]entry[V]
	group   singleflight.Group
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides the cache's time source.
func WithClock[V any](now Clock) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache holding at most maxEntries values, each expiring
// ttl after it was stored. maxEntries <= 0 means unbounded.
func New[V any](ttl time.Duration, maxEntries int, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores a value under key, evicting the oldest entry if the cache
// is full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// put stores without locking. Caller holds c.mu.
func (c *Cache[V]) put(key string, value V) {
	now := c.now()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest(now)
		}
	}

	c.entries[key] = entry[V]{value: value, storedAt: now}
}

// evictOldest removes expired entries, then the oldest live entry if
// still at capacity. Caller holds c.mu.
func (c *Cache[V]) evictOldest(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	if c.maxEntries <= 0 || len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// GetOrCompute returns the cached value for key, computing and storing
// it on a miss. Concurrent callers for the same cold key are coalesced
// into one computation; errors are not cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have stored
		// the value between the miss and the flight starting.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Invalidate removes a single key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.group.Forget(key)
}

// InvalidateAll removes every entry. The removal completes before
// InvalidateAll returns, so a subsequent read cannot observe stale data.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		c.group.Forget(k)
	}
	c.entries = make(map[string]entry[V])
}

// Len returns the number of entries currently stored, including any
// that have expired but not yet been evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
