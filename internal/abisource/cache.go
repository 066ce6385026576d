package abisource

import (
	"context"
	"sync"
	"time"

	"abiFrame/internal/decode"
)

const (
	DefaultCacheTTL  = 24 * time.Hour
	DefaultCacheSize = 1024
)

type cacheEntry struct {
	iface    *decode.Interface
	storedAt time.Time
}

// Cache is a bounded TTL cache of resolved interfaces. It is owned by the
// caller and may be shared between reshape calls.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	size    int
	now     func() time.Time
	entries map[string]cacheEntry
}

type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache builds a cache. Non-positive ttl or size fall back to the defaults.
func NewCache(ttl time.Duration, size int, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &Cache{
		ttl:     ttl,
		size:    size,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(address string) (*decode.Interface, bool) {
	key := normalizeAddress(address)
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.iface, true
}

func (c *Cache) Put(address string, iface *decode.Interface) {
	key := normalizeAddress(address)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.size {
		c.evict()
	}
	c.entries[key] = cacheEntry{iface: iface, storedAt: c.now()}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrLoad returns the cached interface or calls load and caches a
// successful result. Errors are never cached.
func (c *Cache) GetOrLoad(ctx context.Context, address string, load func(context.Context, string) (*decode.Interface, error)) (*decode.Interface, error) {
	if iface, ok := c.Get(address); ok {
		return iface, nil
	}
	iface, err := load(ctx, address)
	if err != nil {
		return nil, err
	}
	c.Put(address, iface)
	return iface, nil
}

func (c *Cache) expired(entry cacheEntry) bool {
	return c.now().Sub(entry.storedAt) >= c.ttl
}

// evict drops expired entries, then the oldest one if still full. Caller holds mu.
func (c *Cache) evict() {
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.size {
		return
	}

	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.storedAt
		}
	}
	delete(c.entries, oldestKey)
}
