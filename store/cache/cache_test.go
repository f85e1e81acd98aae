package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	defer c.Close()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "slug", "value")
	got, ok := c.Get(ctx, "slug")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	c.Set(ctx, "slug", "replaced")
	got, ok = c.Get(ctx, "slug")
	require.True(t, ok)
	assert.Equal(t, "replaced", got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	defer c.Close()

	c.SetWithTTL(ctx, "short", "v", 10*time.Millisecond)
	_, ok := c.Get(ctx, "short")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok, "expired entry must not be returned even before the sweep")
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	var evictedKeys []string
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
		OnEviction: func(key string, _ any) {
			evictedKeys = append(evictedKeys, key)
		},
	})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, evictedKeys)

	// Deleting a missing key must not fire the eviction hook.
	c.Delete(ctx, "a")
	assert.Len(t, evictedKeys, 1)
}

func TestCacheMaxItems(t *testing.T) {
	ctx := context.Background()
	var evictedKeys []string
	var evictedValues []any
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
		MaxItems:        2,
		OnEviction: func(key string, value any) {
			evictedKeys = append(evictedKeys, key)
			evictedValues = append(evictedValues, value)
		},
	})
	defer c.Close()

	c.SetWithTTL(ctx, "oldest", 1, time.Second)
	c.SetWithTTL(ctx, "newer", 2, time.Minute)
	c.SetWithTTL(ctx, "newest", 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "oldest")
	assert.False(t, ok, "entry closest to expiry is evicted first")
	_, ok = c.Get(ctx, "newest")
	assert.True(t, ok)
	assert.Equal(t, []string{"oldest"}, evictedKeys, "capacity eviction must fire the hook")
	assert.Equal(t, []any{1}, evictedValues)

	// Overwriting an existing key at capacity must not evict anything.
	c.SetWithTTL(ctx, "newer", 4, time.Minute)
	assert.Equal(t, 2, c.Len())
	assert.Len(t, evictedKeys, 1)
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Clear(ctx)
	assert.Zero(t, c.Len())
}

func TestCacheSweep(t *testing.T) {
	ctx := context.Background()
	evicted := make(chan string, 1)
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: 10 * time.Millisecond,
		OnEviction: func(key string, _ any) {
			evicted <- key
		},
	})
	defer c.Close()

	c.SetWithTTL(ctx, "stale", "v", time.Millisecond)
	select {
	case key := <-evicted:
		assert.Equal(t, "stale", key)
	case <-time.After(time.Second):
		t.Fatal("sweep did not evict the expired entry")
	}
	assert.Zero(t, c.Len())
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := New(Config{})
	c.Close()
	c.Close()
}
