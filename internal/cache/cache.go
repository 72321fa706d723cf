// Package cache implements an in-memory TTL cache with substring
// invalidation and a periodic sweep of expired entries.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab-pulse/internal/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// Entry wraps a cached payload with the time it was stored and how long it
// stays valid.
type Entry[V any] struct {
	Data      V
	Timestamp time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is older than its own TTL at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	name       string
	clock      clockwork.Clock
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[string]Entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock      clockwork.Clock
	defaultTTL time.Duration
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDefaultTTL sets the TTL used when Set is called without one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// New creates an empty cache. The name labels its metrics.
func New[V any](name string, opts ...Option) *Cache[V] {
	o := options{clock: clockwork.NewRealClock(), defaultTTL: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		name:       name,
		clock:      o.clock,
		defaultTTL: o.defaultTTL,
		entries:    make(map[string]Entry[V]),
	}
}

// Get returns the payload for key if it has not outlived its TTL. An expired
// entry is evicted on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return zero, false
	}
	if entry.Expired(now) {
		delete(c.entries, key)
		metrics.CacheLookups.WithLabelValues(c.name, "expired").Inc()
		log.Trace().Str("cache", c.name).Str("key", key).Msg("Cache entry expired")
		return zero, false
	}
	metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return entry.Data, true
}

// Set stores data under key, replacing whatever was there. A non-positive
// ttl falls back to the cache default.
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = Entry[V]{Data: data, Timestamp: c.clock.Now(), TTL: ttl}
	c.mu.Unlock()
	log.Trace().Str("cache", c.name).Str("key", key).Dur("ttl", ttl).Msg("Cache entry stored")
}

// Clear removes every key containing pattern. An empty pattern wipes the cache.
func (c *Cache[V]) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]Entry[V])
		metrics.CacheEvictions.WithLabelValues(c.name, "clear").Add(float64(n))
		return n
	}

	n := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			n++
		}
	}
	metrics.CacheEvictions.WithLabelValues(c.name, "clear").Add(float64(n))
	return n
}

// Sweep evicts all entries older than their TTL and returns how many went.
func (c *Cache[V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		metrics.CacheEvictions.WithLabelValues(c.name, "sweep").Add(float64(n))
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := c.Sweep(); n > 0 {
				log.Debug().Str("cache", c.name).Int("evicted", n).Msg("Swept expired cache entries")
			}
		}
	}
}
