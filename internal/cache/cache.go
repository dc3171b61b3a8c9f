// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cache provides the key/value backends used to keep last-known-good
// portal data across refreshes and restarts.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ManuGH/stbportal/internal/clock"
)

// Cache is a byte-oriented store with optional expiration. A ttl of zero
// keeps the value until it is deleted.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

// GetJSON decodes the value stored under key into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(ctx, key, raw, ttl)
	return nil
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is the in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	clock   clock.Clock

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryCache creates a memory cache. A positive cleanupInterval starts
// a janitor goroutine that Close stops.
func NewMemoryCache(cleanupInterval time.Duration, clk clock.Clock) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		clock:   clock.Or(clk),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.clock.Now()) {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return append([]byte(nil), e.value...), true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	c.entries[key] = e
	c.stats.Sets++
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.CurrentSize = len(c.entries)
	return s
}

// deleteExpired removes expired entries and returns how many were removed.
func (c *MemoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Evictions += int64(n)
	return n
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor and waits for it to exit.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}

type noOpCache struct{}

// NewNoOpCache returns a cache that stores nothing.
func NewNoOpCache() Cache { return noOpCache{} }

func (noOpCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noOpCache) Set(context.Context, string, []byte, time.Duration) {}
func (noOpCache) Delete(context.Context, string)                     {}
func (noOpCache) Clear(context.Context)                              {}
func (noOpCache) Stats() Stats                                       { return Stats{} }
