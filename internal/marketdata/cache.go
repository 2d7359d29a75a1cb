package marketdata

import (
	"sync"
	"time"
)

// Clock exists so cache expiry is testable without sleeping.
type Clock func() time.Time

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a small expiring map guarded by a mutex.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
	ttl     time.Duration
	now     Clock
}

// NewTTLCache builds a cache with the given entry lifetime. A nil
// clock falls back to time.Now.
func NewTTLCache[K comparable, V any](ttl time.Duration, now Clock) *TTLCache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{
		entries: make(map[K]cacheEntry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached value when present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh timestamp.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}

// Len counts stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]cacheEntry[V])
}
