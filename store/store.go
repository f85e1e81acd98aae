package store

import (
	"context"
	"time"

	"github.com/inkwell-press/inkwell/internal/profile"
	"github.com/inkwell-press/inkwell/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	tagBySlugCache *cache.Cache // cache for tag-by-slug lookups
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	store := &Store{
		driver:         driver,
		profile:        profile,
		cacheConfig:    cacheConfig,
		tagBySlugCache: cache.New(cacheConfig),
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// BeginTx starts a storage transaction.
func (s *Store) BeginTx(ctx context.Context) (Tx, error) {
	return s.driver.BeginTx(ctx)
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	s.tagBySlugCache.Close()

	return s.driver.Close()
}
