package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// entry is one cached value plus its eviction bookkeeping.
type entry[V any] struct {
	value    *V
	refs     atomic.Int64
	accessed atomic.Bool
}

// Handle is a strong reference to a cached value. The entry cannot be evicted
// while any handle to it is unreleased.
type Handle[V any] struct {
	e    *entry[V]
	once sync.Once
}

// Value returns the shared value.
func (h *Handle[V]) Value() *V {
	return h.e.value
}

// Release drops the reference. Safe to call more than once.
func (h *Handle[V]) Release() {
	h.once.Do(func() {
		h.e.refs.Add(-1)
	})
}

// Cache maps keys to lazily constructed shared values.
//
// Thread-safety: all methods are safe for concurrent use. Get takes only a
// read lock when the entry already exists.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	newFn   func(K) *V
	onEvict func(K, *V)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a callback invoked (outside the cache lock) for every
// value removed by Sweep or Close.
func WithOnEvict[K comparable, V any](fn func(K, *V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache that builds missing values with newFn.
func New[K comparable, V any](newFn func(K) *V, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		newFn:   newFn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a handle to the value for key, constructing it on first use.
// The caller must Release the handle when done.
func (c *Cache[K, V]) Get(key K) *Handle[V] {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok {
		// Taking the reference under the read lock orders it before any
		// sweep, which needs the write lock to inspect refs.
		e.refs.Add(1)
		e.accessed.Store(true)
		c.mu.RUnlock()
		return &Handle[V]{e: e}
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another goroutine may have inserted between the locks.
	e, ok = c.entries[key]
	if !ok {
		e = &entry[V]{value: c.newFn(key)}
		c.entries[key] = e
	}
	e.refs.Add(1)
	e.accessed.Store(true)
	return &Handle[V]{e: e}
}

// peek returns the value for key without marking it accessed or taking a
// reference.
func (c *Cache[K, V]) peek(key K) (*V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// forEach calls fn for each entry until fn returns false. Iteration order is
// unspecified and fn must not call back into the cache.
func (c *Cache[K, V]) forEach(fn func(K, *V) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, e := range c.entries {
		if !fn(k, e.value) {
			return
		}
	}
}

// Sweep runs one eviction pass and returns the number of evicted entries.
//
// Entries accessed since the previous sweep have their marker cleared and
// are kept. Unmarked entries are removed unless a handle is outstanding.
func (c *Cache[K, V]) Sweep() int {
	type evicted struct {
		key   K
		value *V
	}
	var removed []evicted

	c.mu.Lock()
	for k, e := range c.entries {
		if e.accessed.Swap(false) {
			continue
		}
		if e.refs.Load() > 0 {
			continue
		}
		delete(c.entries, k)
		removed = append(removed, evicted{key: k, value: e.value})
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, r := range removed {
			c.onEvict(r.key, r.value)
		}
	}
	return len(removed)
}

// Run sweeps every interval until ctx is done.
func (c *Cache[K, V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close removes every entry regardless of references, passing each to the
// eviction callback.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[K]*entry[V])
	c.mu.Unlock()

	if c.onEvict != nil {
		for k, e := range entries {
			c.onEvict(k, e.value)
		}
	}
}
