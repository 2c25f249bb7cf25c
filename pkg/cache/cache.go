// Package cache provides a generic in-memory cache with per-entry expiry.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

type Option[T any] func(*Cache[T])

// WithRetain keeps expired entries for which keep returns true. A retained
// entry stays readable and is examined again on every sweep.
func WithRetain[T any](keep func(value T) bool) Option[T] {
	return func(c *Cache[T]) {
		c.keep = keep
	}
}

// WithOnEvict runs fn for every entry dropped because it expired, whether by
// the sweep or by GetOrCreate replacing it. Delete does not call it.
func WithOnEvict[T any](fn func(key string, value T)) Option[T] {
	return func(c *Cache[T]) {
		c.onEvict = fn
	}
}

// Cache is safe for concurrent use. Expired entries are invisible to readers
// and are swept by a background goroutine until Stop is called.
type Cache[T any] struct {
	mu      sync.RWMutex
	items   map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
	keep    func(T) bool
	onEvict func(string, T)
	stopCh  chan struct{}
	once    sync.Once
}

func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		items:  make(map[string]entry[T]),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweep()
	return c
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.liveLocked(e, c.now()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Touch returns the value for key and restarts its TTL.
func (c *Cache[T]) Touch(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.items[key]
	if !ok || !c.liveLocked(e, now) {
		var zero T
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.items[key] = e
	return e.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// GetOrCreate returns the live value for key, or stores and returns the
// result of create. create runs under the write lock, so concurrent callers
// for the same key observe a single value.
func (c *Cache[T]) GetOrCreate(key string, create func() T) T {
	c.mu.Lock()

	now := c.now()
	e, ok := c.items[key]
	if ok && c.liveLocked(e, now) {
		c.mu.Unlock()
		return e.value
	}
	value := create()
	c.items[key] = entry[T]{value: value, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(key, e.value)
	}
	return value
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts entries including expired ones not yet swept.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[T]) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *Cache[T]) liveLocked(e entry[T], now time.Time) bool {
	if !now.After(e.expiresAt) {
		return true
	}
	return c.keep != nil && c.keep(e.value)
}

func (c *Cache[T]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() {
	var keys []string
	var values []T

	c.mu.Lock()
	now := c.now()
	for key, e := range c.items {
		if !c.liveLocked(e, now) {
			delete(c.items, key)
			keys = append(keys, key)
			values = append(values, e.value)
		}
	}
	c.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for i, key := range keys {
		c.onEvict(key, values[i])
	}
}
