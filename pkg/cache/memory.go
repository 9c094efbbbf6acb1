package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// item represents a cached item with expiration
type item struct {
	value      []byte
	expiration int64
	stored     int64
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// MemoryOptions configures a MemoryCache
type MemoryOptions struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxItems        int
}

// MemoryCache is a thread-safe in-memory cache with expiration
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]item
	defaultTTL time.Duration
	maxItems   int
	onEvicted  func(string)
	now        func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a memory cache and starts its cleanup loop when
// CleanupInterval is positive.
func NewMemory(opts MemoryOptions) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		defaultTTL: opts.DefaultTTL,
		maxItems:   opts.MaxItems,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}

	return c
}

// SetOnEvicted sets the callback to be called when an item is evicted
func (c *MemoryCache) SetOnEvicted(f func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvicted = f
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()

	if !found || it.expired(c.now().UnixNano()) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return it.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	var exp int64
	if ttl > 0 {
		exp = now.Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictOldest()
	}
	c.items[key] = item{value: value, expiration: exp, stored: now.UnixNano()}
}

func (c *MemoryCache) Invalidate(_ context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			c.remove(k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Stats(_ context.Context) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now().UnixNano()
	s := Stats{
		Backend:   "memory",
		TotalKeys: len(c.items),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
	for _, it := range c.items {
		if it.expired(now) {
			s.ExpiredKeys++
		}
	}
	s.ValidKeys = s.TotalKeys - s.ExpiredKeys
	return s
}

// Close stops the cleanup loop.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
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

func (c *MemoryCache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	for k, it := range c.items {
		if it.expired(now) {
			c.remove(k)
		}
	}
}

// evictOldest drops the least recently stored item. Callers hold mu.
func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldest    int64
	)
	for k, it := range c.items {
		if oldestKey == "" || it.stored < oldest {
			oldestKey = k
			oldest = it.stored
		}
	}
	if oldestKey != "" {
		c.remove(oldestKey)
	}
}

func (c *MemoryCache) remove(key string) {
	delete(c.items, key)
	if c.onEvicted != nil {
		c.onEvicted(key)
	}
}
