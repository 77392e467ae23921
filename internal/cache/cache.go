// Package cache provides a small time-bounded memoization store.
package cache

import "time"

type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a generic key/value store with a per-entry TTL. Expired entries
// are evicted lazily when looked up or superseded; there is no sweeper.
//
// Cache is not safe for concurrent mutation from multiple writers. All
// callers must go through a single owner goroutine.
type Cache[K comparable, V any] struct {
	nowFn   func() time.Time
	entries map[K]entry[V]
}

// New creates a cache using nowFn as its clock. A nil nowFn uses time.Now.
func New[K comparable, V any](nowFn func() time.Time) *Cache[K, V] {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Cache[K, V]{
		nowFn:   nowFn,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired. Expired
// entries are removed on the way out.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.nowFn().Sub(e.insertedAt) >= e.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL, replacing any prior entry.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.entries[key] = entry[V]{value: value, insertedAt: c.nowFn(), ttl: ttl}
}

// GetOrCompute returns the cached value for key, or calls compute, stores
// the result with the given TTL and returns it. A compute error is returned
// as-is and nothing is cached.
func (c *Cache[K, V]) GetOrCompute(key K, ttl time.Duration, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Invalidate removes the entry for key immediately, regardless of its TTL.
func (c *Cache[K, V]) Invalidate(key K) {
	delete(c.entries, key)
}

// Len returns the number of stored entries, including not-yet-evicted
// expired ones.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}
