package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-press/inkwell/internal/profile"
	"github.com/inkwell-press/inkwell/store"
)

func newTestDB(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return driver
}

func TestPragmaDSN(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		expected string
	}{
		{
			name:     "plain file path",
			dsn:      "inkwell_dev.db",
			expected: "inkwell_dev.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
		},
		{
			name:     "dsn with existing query parameters",
			dsn:      "file:inkwell.db?cache=shared",
			expected: "file:inkwell.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pragmaDSN(tt.dsn))
		})
	}
}

func TestCreateTagSlugConflict(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	first, err := driver.CreateTag(ctx, &store.Tag{UID: "uid-1", Name: "Go", Slug: "go"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.NotZero(t, first.CreatedTs)

	_, err = driver.CreateTag(ctx, &store.Tag{UID: "uid-2", Name: "Golang", Slug: "go"})
	assert.ErrorIs(t, err, store.ErrSlugConflict)

	count, err := driver.CountTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "conflicting insert must not leave a row behind")
}

func TestUpdateTagSlugConflict(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	_, err := driver.CreateTag(ctx, &store.Tag{UID: "uid-1", Name: "Go", Slug: "go"})
	require.NoError(t, err)
	second, err := driver.CreateTag(ctx, &store.Tag{UID: "uid-2", Name: "Rust", Slug: "rust"})
	require.NoError(t, err)

	taken := "go"
	err = driver.UpdateTag(ctx, &store.UpdateTag{ID: second.ID, Slug: &taken})
	assert.ErrorIs(t, err, store.ErrSlugConflict)
}

func TestSlugConflictInTransaction(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	_, err := driver.CreateTag(ctx, &store.Tag{UID: "uid-1", Name: "Go", Slug: "go"})
	require.NoError(t, err)

	tx, err := driver.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.CreateTag(ctx, &store.Tag{UID: "uid-2", Name: "Golang", Slug: "go"})
	assert.ErrorIs(t, err, store.ErrSlugConflict)
	require.NoError(t, tx.Rollback())
}

func TestListTagsTermMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	_, err := driver.CreateTag(ctx, &store.Tag{UID: "uid-1", Name: "100% Cotton", Slug: "cotton-pure"})
	require.NoError(t, err)
	_, err = driver.CreateTag(ctx, &store.Tag{UID: "uid-2", Name: "100 Cotton", Slug: "cotton-blend"})
	require.NoError(t, err)
	_, err = driver.CreateTag(ctx, &store.Tag{UID: "uid-3", Name: "Snake Case", Slug: "snake-case"})
	require.NoError(t, err)

	term := "100%"
	list, err := driver.ListTags(ctx, &store.FindTag{Term: &term})
	require.NoError(t, err)
	require.Len(t, list, 1, "a literal percent sign must not act as a wildcard")
	assert.Equal(t, "100% Cotton", list[0].Name)

	underscore := "e_C"
	list, err = driver.ListTags(ctx, &store.FindTag{Term: &underscore})
	require.NoError(t, err)
	assert.Empty(t, list, "_ in a term must not act as a wildcard")

	count, err := driver.CountTags(ctx, &store.FindTag{Term: &term})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
