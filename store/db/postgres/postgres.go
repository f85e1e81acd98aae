package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/inkwell-press/inkwell/internal/profile"
	"github.com/inkwell-press/inkwell/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every statement in this
// package can run either standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	conn    *sql.DB
	q       querier
	profile *profile.Profile
}

const schema = `
CREATE TABLE IF NOT EXISTS tag (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL,
	CONSTRAINT tag_slug_key UNIQUE (slug)
);

CREATE INDEX IF NOT EXISTS idx_tag_name ON tag (name);

CREATE TABLE IF NOT EXISTS tag_post (
	tag_id INTEGER NOT NULL REFERENCES tag (id) ON DELETE CASCADE,
	post_id INTEGER NOT NULL,
	UNIQUE (tag_id, post_id)
);

CREATE INDEX IF NOT EXISTS idx_tag_post_tag_id ON tag_post (tag_id);
`

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// Open the PostgreSQL connection
	conn, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Modest pool: the engine is read-mostly with short write transactions.
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(2 * time.Hour)
	conn.SetConnMaxIdleTime(15 * time.Minute)

	// Verify connection is working before returning
	if err := conn.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{conn: conn, q: conn, profile: profile}

	if err := driver.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to migrate postgres schema")
	}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'tag')`,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check schema")
	}
	return exists, nil
}

func (d *DB) migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := d.conn.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// BeginTx starts a transaction; the returned Tx runs every statement of this
// driver against the transaction until Commit or Rollback.
func (d *DB) BeginTx(ctx context.Context) (store.Tx, error) {
	sqlTx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &tx{
		DB:    &DB{conn: d.conn, q: sqlTx, profile: d.profile},
		sqlTx: sqlTx,
	}, nil
}

type tx struct {
	*DB
	sqlTx *sql.Tx
}

func (t *tx) Commit() error {
	return t.sqlTx.Commit()
}

func (t *tx) Rollback() error {
	err := t.sqlTx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (t *tx) BeginTx(context.Context) (store.Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}

// isSlugConstraintViolation reports whether err is the unique_violation
// (23505) raised by the constraint on tag.slug.
func isSlugConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == "tag_slug_key"
}
