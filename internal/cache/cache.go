// Package cache provides a TTL cache with periodic sweeping, plus a gin
// middleware that caches GET responses for quote endpoints.
package cache

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a thread-safe cache with per-entry expiry. Expired entries are
// dropped lazily on Get and swept periodically once Start is called.
type TTL[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	clock Clock
	stop  chan struct{}
	once  sync.Once
}

// NewTTL creates a cache whose entries live for ttl.
func NewTTL[V any](ttl time.Duration, clock Clock) *TTL[V] {
	if clock == nil {
		clock = RealClock{}
	}
	return &TTL[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		clock: clock,
		stop:  make(chan struct{}),
	}
}

// Get returns the cached value and whether it was present and unexpired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores a value under key with the cache's TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Start launches a background sweeper that removes expired entries every
// interval. Call Stop to terminate it.
func (c *TTL[V]) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweeper goroutine. Safe to call more than once.
func (c *TTL[V]) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *TTL[V]) sweep() {
	now := c.clock.Now()
	c.mu.Lock()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}
