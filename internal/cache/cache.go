// Package cache holds encoded list responses between writes. Entries are
// dropped by prefix whenever the catalog changes.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store caches serialized responses. Implementations never fail a request:
// backend errors behave like misses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Invalidate(ctx context.Context, prefix string)
}

const (
	defaultTTL = 5 * time.Second
	// list keys vary with page and filters, so the map is capped
	maxEntries = 4096
)

// Memory is an in-process TTL cache for single-instance deployments.
type Memory struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]item
	now   func() time.Time
}

type item struct {
	val     []byte
	expires time.Time
}

func New(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Memory{
		ttl:   ttl,
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	now := c.now()

	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !now.Before(it.expires) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed the key
		if cur, ok := c.items[key]; ok && !now.Before(cur.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return it.val, true
}

func (c *Memory) Set(_ context.Context, key string, val []byte) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= maxEntries {
		c.evictLocked(now)
	}

	c.items[key] = item{val: val, expires: now.Add(c.ttl)}
}

// evictLocked drops expired entries, or an arbitrary one when none expired.
func (c *Memory) evictLocked(now time.Time) {
	for k, it := range c.items {
		if !now.Before(it.expires) {
			delete(c.items, k)
		}
	}

	if len(c.items) < maxEntries {
		return
	}

	for k := range c.items {
		delete(c.items, k)
		return
	}
}

func (c *Memory) Invalidate(_ context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

func (c *Memory) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
