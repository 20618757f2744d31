// Package memory is an in-process cache backend. It is used when neither
// Redis nor the database cache table is configured, and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chatlens/chatlens/pkg/apis/cache"
)

type entry struct {
	content   []byte
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock lets callers control expiry, mostly for tests.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{entries: map[string]entry{}, now: now}
}

// Get returns cache.ErrMiss for absent or expired keys and evicts the latter.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, cache.ErrMiss
	}
	out := make([]byte, len(e.content))
	copy(out, e.content)
	return out, nil
}

func (c *Cache) Set(_ context.Context, key string, content []byte, duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(content))
	copy(stored, content)
	c.entries[key] = entry{content: stored, expiresAt: c.now().Add(duration)}
	return nil
}

func (c *Cache) DeleteExpired(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}
