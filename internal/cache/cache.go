// SPDX-License-Identifier: MIT

// Package cache provides an in-memory cache with TTL support, used by
// internal/resolver/llm and internal/resolver/tmdb to remember recent
// filename analyses and provider matches.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"

	cmlog "github.com/zhinengfan/clearmedia-go/internal/log"
)

// Cache provides thread-safe caching with expiration support.
type Cache interface {
	// Get retrieves a value from the cache. Returns nil if not found or expired.
	Get(key string) (any, bool)
	// Set stores a value in the cache with the specified TTL.
	Set(key string, value any, ttl time.Duration)
	// Delete removes a value from the cache.
	Delete(key string)
	// Clear removes all values from the cache.
	Clear()
	// Stats returns cache statistics.
	Stats() CacheStats
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Hits        int64 // Number of successful Get operations
	Misses      int64 // Number of failed Get operations (not found or expired)
	Sets        int64 // Number of Set operations
	Evictions   int64 // Number of expired entries cleaned up (ristretto-reported)
	CurrentSize int   // Approximate number of cached entries, from ristretto's counters
}

// defaultCapacity is the §4.3 default bound on remembered resolver entries
// when a caller doesn't size its own cache.
const defaultCapacity = 128

// memoryCache wraps a ristretto.Cache, which already does the hard parts of
// an in-process cache (cost-aware admission, TTL expiry, a background
// janitor) that a hand-rolled map+mutex would otherwise have to reimplement.
type memoryCache struct {
	rc   *ristretto.Cache
	sets atomic.Int64
}

// NewMemoryCache creates a new in-memory cache bounded to capacity entries
// (0 uses the default of 128). Every entry is admitted at cost 1, so
// MaxCost doubles as the entry-count ceiling ristretto's TinyLFU admission
// policy enforces once the cache fills up. cleanupInterval is accepted for
// API compatibility with callers sized around the old hand-rolled janitor;
// ristretto runs its own internal expiry sweep and does not need it.
func NewMemoryCache(cleanupInterval time.Duration, capacity int) Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(capacity) * 10, // ~10x tracked keys, per ristretto's sizing guidance
		MaxCost:     int64(capacity),
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		// NewCache only fails on invalid Config constants we control above,
		// never on runtime conditions; falling back to a no-op cache keeps a
		// misconfiguration from taking down the resolver stage it backs.
		return NewNoOpCache()
	}
	return &memoryCache{rc: rc}
}

// Get retrieves a value from the cache.
func (c *memoryCache) Get(key string) (any, bool) {
	return c.rc.Get(key)
}

// Set stores a value in the cache, with cost 1 per entry: callers cache
// small structured guesses/matches, not arbitrarily large payloads. Wait
// blocks until the write lands, since resolver callers immediately Get what
// they just Set and ristretto's admission path is otherwise asynchronous.
func (c *memoryCache) Set(key string, value any, ttl time.Duration) {
	c.rc.SetWithTTL(key, value, 1, ttl)
	c.rc.Wait()
	c.sets.Add(1)
}

// Delete removes a value from the cache.
func (c *memoryCache) Delete(key string) {
	c.rc.Del(key)
	c.rc.Wait()
}

// Clear removes all values from the cache.
func (c *memoryCache) Clear() {
	c.rc.Clear()
}

// Stats returns cache statistics.
func (c *memoryCache) Stats() CacheStats {
	m := c.rc.Metrics
	if m == nil {
		return CacheStats{Sets: c.sets.Load()}
	}
	return CacheStats{
		Hits:        int64(m.Hits()),
		Misses:      int64(m.Misses()),
		Sets:        c.sets.Load(),
		Evictions:   int64(m.KeysEvicted()),
		CurrentSize: int(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Stop releases the cache's background goroutines.
func (c *memoryCache) Stop() {
	c.rc.Close()
}

// NoOpCache is a cache that does nothing (useful for disabling caching).
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache anything.
func NewNoOpCache() Cache {
	return &noOpCache{}
}

func (c *noOpCache) Get(key string) (any, bool)                   { return nil, false }
func (c *noOpCache) Set(key string, value any, ttl time.Duration) {}
func (c *noOpCache) Delete(key string)                            {}
func (c *noOpCache) Clear()                                       {}
func (c *noOpCache) Stats() CacheStats                            { return CacheStats{} }

// Config selects and sizes the cache backend a resolver client builds,
// read from the registry's CACHE_BACKEND/CACHE_CAPACITY/REDIS_* keys.
type Config struct {
	// Backend is "memory" (default) or "redis".
	Backend  string
	Capacity int
	Redis    RedisConfig
}

// New builds a Cache per cfg.Backend. A "redis" backend that fails to
// connect falls back to the memory backend rather than taking the resolver
// stage it backs down with it.
func New(cfg Config) Cache {
	if cfg.Backend == "redis" {
		logger := cmlog.WithComponent("cache.redis")
		rc, err := NewRedisCache(cfg.Redis, logger)
		if err == nil {
			return rc
		}
		logger.Warn().Err(err).Msg("redis cache unavailable, falling back to in-memory cache")
	}
	return NewMemoryCache(10*time.Minute, cfg.Capacity)
}
