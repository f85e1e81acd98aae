// Package cache provides a TTL-bounded in-memory cache used by the store
// facade for hot lookups (tag-by-slug).
package cache

import (
	"context"
	"sync"
	"time"
)

// Config holds the cache configuration.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxItems        int
	// OnEviction is called after an item is removed, with the lock released.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL expiry and a max-items
// bound. A background goroutine sweeps expired entries until Close is called.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]item
	config Config

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	c := &Cache{
		items:  make(map[string]item),
		config: config,
		stop:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	var evictedKey string
	var evictedValue any
	evicted := false

	c.mu.Lock()
	if c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		if _, exists := c.items[key]; !exists {
			evictedKey, evictedValue, evicted = c.evictOldestLocked()
		}
	}
	c.items[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	if evicted && c.config.OnEviction != nil {
		c.config.OnEviction(evictedKey, evictedValue)
	}
}

// Delete removes key from the cache.
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	it, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()
	if ok && c.config.OnEviction != nil {
		c.config.OnEviction(key, it.value)
	}
}

// Clear removes all entries.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine. The cache stays usable afterwards but
// expired entries are only dropped lazily on access.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// evictOldestLocked drops and returns the entry closest to expiry. Caller
// holds the lock and is responsible for the eviction callback.
func (c *Cache) evictOldestLocked() (string, any, bool) {
	var oldestKey string
	var oldestAt time.Time
	found := false
	for key, it := range c.items {
		if !found || it.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = it.expiresAt
			found = true
		}
	}
	if !found {
		return "", nil, false
	}
	value := c.items[oldestKey].value
	delete(c.items, oldestKey)
	return oldestKey, value, true
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	var evicted []struct {
		key   string
		value any
	}
	c.mu.Lock()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
			if c.config.OnEviction != nil {
				evicted = append(evicted, struct {
					key   string
					value any
				}{key, it.value})
			}
		}
	}
	c.mu.Unlock()
	for _, e := range evicted {
		c.config.OnEviction(e.key, e.value)
	}
}
