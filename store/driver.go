package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// BeginTx starts a transaction. The returned Tx is a Driver whose
	// operations run inside the transaction until Commit or Rollback.
	BeginTx(ctx context.Context) (Tx, error)

	// Tag model related methods.
	CreateTag(ctx context.Context, create *Tag) (*Tag, error)
	ListTags(ctx context.Context, find *FindTag) ([]*Tag, error)
	CountTags(ctx context.Context, find *FindTag) (int, error)
	UpdateTag(ctx context.Context, update *UpdateTag) error
	DeleteTag(ctx context.Context, delete *DeleteTag) error
	TagSlugExists(ctx context.Context, slug string, excludeID *int32) (bool, error)

	// TagPost association related methods.
	CountTagPosts(ctx context.Context, tagID int32) (int, error)
}

// Tx is a Driver scoped to a single database transaction. Rollback after a
// successful Commit is a no-op, so `defer tx.Rollback()` is safe.
type Tx interface {
	Driver

	Commit() error
	Rollback() error
}
