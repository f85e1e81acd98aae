package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	// Import the SQLite driver.
	_ "modernc.org/sqlite"

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
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
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

	conn, err := sql.Open("sqlite", pragmaDSN(profile.DSN))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite allows a single writer; serialize access through one connection.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	driver := DB{conn: conn, q: conn, profile: profile}

	if err := driver.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to migrate sqlite schema")
	}

	return &driver, nil
}

// pragmaDSN appends the connection pragmas:
// - foreign_keys on, so tag_post rows cascade when a tag is deleted.
// - busy_timeout, so concurrent writers wait instead of failing fast.
// - WAL journal mode, the recommended mode for concurrent readers.
// A DSN that already carries query parameters is extended, not doubled.
func pragmaDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
}

func (d *DB) GetDB() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var name string
	err := d.q.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tag'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check schema")
	}
	return true, nil
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
