// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache(0, 0) // No cleanup, default capacity

	// Set a value
	cache.Set("key1", "value1", 5*time.Minute)

	// Get the value
	val, ok := cache.Get("key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, "value1", val)

	// Get non-existent key
	_, ok = cache.Get("nonexistent")
	assert.False(t, ok, "expected not to find nonexistent key")
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(0, 0)

	// Set with very short TTL
	cache.Set("shortlived", "value", 50*time.Millisecond)

	// Immediately retrieve - should exist
	val, ok := cache.Get("shortlived")
	require.True(t, ok)
	assert.Equal(t, "value", val)

	// Wait for expiration
	time.Sleep(100 * time.Millisecond)

	// Should be expired
	_, ok = cache.Get("shortlived")
	assert.False(t, ok, "expected key to be expired")
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache(0, 0)

	cache.Set("key1", "value1", 5*time.Minute)

	// Verify it exists
	_, ok := cache.Get("key1")
	require.True(t, ok)

	// Delete it
	cache.Delete("key1")

	// Verify it's gone
	_, ok = cache.Get("key1")
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(0, 0)

	// Add multiple entries
	cache.Set("key1", "value1", 5*time.Minute)
	cache.Set("key2", "value2", 5*time.Minute)
	cache.Set("key3", "value3", 5*time.Minute)

	// Verify stats
	stats := cache.Stats()
	assert.Equal(t, 3, stats.CurrentSize)

	// Clear
	cache.Clear()

	// Verify empty
	stats = cache.Stats()
	assert.Equal(t, 0, stats.CurrentSize)

	_, ok := cache.Get("key1")
	assert.False(t, ok)
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(0, 0)

	// Perform operations
	cache.Set("key1", "value1", 5*time.Minute)
	cache.Set("key2", "value2", 5*time.Minute)

	cache.Get("key1")        // Hit
	cache.Get("key1")        // Hit
	cache.Get("nonexistent") // Miss

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
	assert.Equal(t, 2, stats.CurrentSize)
}

func TestMemoryCache_Janitor(t *testing.T) {
	cache := NewMemoryCache(50*time.Millisecond, 0)
	defer cache.(*memoryCache).Stop()

	cache.Set("key1", "value1", 30*time.Millisecond)
	cache.Set("longLived", "value3", 10*time.Second)

	time.Sleep(150 * time.Millisecond)

	// ristretto enforces TTL lazily at access time regardless of when its
	// internal background sweep last ran, so Get is what's actually
	// guaranteed here rather than an immediate drop in reported size.
	_, ok := cache.Get("key1")
	assert.False(t, ok, "expired entry should no longer be retrievable")

	_, ok = cache.Get("longLived")
	assert.True(t, ok, "long-lived entry should still exist")
}

func TestMemoryCache_ConcurrentAccess(_ *testing.T) {
	cache := NewMemoryCache(1*time.Minute, 0)
	done := make(chan bool)

	// Writer goroutine
	go func() {
		for i := 0; i < 100; i++ {
			cache.Set("key", i, 5*time.Minute)
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	// Reader goroutine
	go func() {
		for i := 0; i < 100; i++ {
			cache.Get("key")
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	// Wait for both goroutines
	<-done
	<-done

	// No panic = success
}

func TestMemoryCache_CapacityBound(t *testing.T) {
	cache := NewMemoryCache(0, 4)
	defer cache.(*memoryCache).Stop()

	for i := 0; i < 200; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i, 5*time.Minute)
	}

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.CurrentSize, 40, "a capacity-4 cache must not grow unbounded across 200 inserts")
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c := New(Config{})
	defer c.(*memoryCache).Stop()

	c.Set("k", "v", 5*time.Minute)
	val, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	defer mr.Close()

	c := New(Config{Backend: "redis", Redis: RedisConfig{Addr: mr.Addr()}})
	_, isRedis := c.(*RedisCache)
	assert.True(t, isRedis, "expected a RedisCache when Backend is \"redis\" and Redis is reachable")

	c.Set("k", "v", 5*time.Minute)
	val, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestNew_RedisBackendFallsBackToMemory(t *testing.T) {
	c := New(Config{Backend: "redis", Redis: RedisConfig{Addr: "127.0.0.1:1"}})
	defer c.(*memoryCache).Stop()

	_, isMemory := c.(*memoryCache)
	assert.True(t, isMemory, "expected a fallback to memoryCache when Redis is unreachable")
}

func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()

	// Should do nothing
	cache.Set("key", "value", 5*time.Minute)

	_, ok := cache.Get("key")
	assert.False(t, ok, "NoOpCache should never return values")

	cache.Delete("key")
	cache.Clear()

	stats := cache.Stats()
	assert.Equal(t, CacheStats{}, stats, "NoOpCache stats should be empty")
}

func BenchmarkMemoryCache_Set(b *testing.B) {
	cache := NewMemoryCache(0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set("key", "value", 5*time.Minute)
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	cache := NewMemoryCache(0, 0)
	cache.Set("key", "value", 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get("key")
	}
}

func BenchmarkMemoryCache_GetMiss(b *testing.B) {
	cache := NewMemoryCache(0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get("nonexistent")
	}
}
