package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDriver records ListTags calls so caching behavior is observable.
type countingDriver struct {
	tags      []*Tag
	listCalls int
}

func (d *countingDriver) GetDB() *sql.DB { return nil }
func (d *countingDriver) Close() error   { return nil }

func (d *countingDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *countingDriver) BeginTx(context.Context) (Tx, error) {
	return nil, errors.New("not supported")
}

func (d *countingDriver) CreateTag(_ context.Context, create *Tag) (*Tag, error) {
	d.tags = append(d.tags, create)
	return create, nil
}

func (d *countingDriver) ListTags(_ context.Context, find *FindTag) ([]*Tag, error) {
	d.listCalls++
	out := make([]*Tag, 0)
	for _, t := range d.tags {
		if find.ID != nil && t.ID != *find.ID {
			continue
		}
		if find.Slug != nil && t.Slug != *find.Slug {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *countingDriver) CountTags(_ context.Context, _ *FindTag) (int, error) {
	return len(d.tags), nil
}

func (d *countingDriver) UpdateTag(_ context.Context, update *UpdateTag) error {
	for _, t := range d.tags {
		if t.ID != update.ID {
			continue
		}
		if update.Name != nil {
			t.Name = *update.Name
		}
		if update.Slug != nil {
			t.Slug = *update.Slug
		}
	}
	return nil
}

func (d *countingDriver) DeleteTag(_ context.Context, delete *DeleteTag) error {
	out := d.tags[:0]
	for _, t := range d.tags {
		if t.ID != delete.ID {
			out = append(out, t)
		}
	}
	d.tags = out
	return nil
}

func (d *countingDriver) TagSlugExists(_ context.Context, slug string, excludeID *int32) (bool, error) {
	for _, t := range d.tags {
		if t.Slug == slug && (excludeID == nil || t.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (d *countingDriver) CountTagPosts(context.Context, int32) (int, error) { return 0, nil }

func newTestStore(driver Driver) *Store {
	return New(driver, nil)
}

func TestGetTagBySlugCaching(t *testing.T) {
	ctx := context.Background()
	driver := &countingDriver{tags: []*Tag{{ID: 1, Name: "Go", Slug: "go"}}}
	st := newTestStore(driver)
	defer st.Close()

	first, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, driver.listCalls)

	second, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, driver.listCalls, "second lookup must be served from cache")

	// Misses are not cached.
	miss, err := st.GetTagBySlug(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, miss)
	_, err = st.GetTagBySlug(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, 3, driver.listCalls)
}

func TestUpdateTagEvictsStaleSlug(t *testing.T) {
	ctx := context.Background()
	driver := &countingDriver{tags: []*Tag{{ID: 1, Name: "Go", Slug: "go"}}}
	st := newTestStore(driver)
	defer st.Close()

	_, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)

	newSlug := "golang"
	newName := "Golang"
	require.NoError(t, st.UpdateTag(ctx, &UpdateTag{ID: 1, Name: &newName, Slug: &newSlug}))

	stale, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Nil(t, stale, "old slug must not resolve from cache after rename")

	fresh, err := st.GetTagBySlug(ctx, "golang")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "Golang", fresh.Name)
}

func TestDeleteTagEvictsSlug(t *testing.T) {
	ctx := context.Background()
	driver := &countingDriver{tags: []*Tag{{ID: 1, Name: "Go", Slug: "go"}}}
	st := newTestStore(driver)
	defer st.Close()

	_, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)

	require.NoError(t, st.DeleteTag(ctx, &DeleteTag{ID: 1}))

	gone, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestEvictTagCache(t *testing.T) {
	ctx := context.Background()
	driver := &countingDriver{tags: []*Tag{{ID: 1, Name: "Go", Slug: "go"}}}
	st := newTestStore(driver)
	defer st.Close()

	_, err := st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	require.Equal(t, 1, driver.listCalls)

	st.EvictTagCache(ctx, "go")

	_, err = st.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, 2, driver.listCalls, "eviction must force the next lookup to the driver")
}

func TestSearchTagsReturnsTotal(t *testing.T) {
	ctx := context.Background()
	driver := &countingDriver{tags: []*Tag{
		{ID: 1, Name: "Go", Slug: "go"},
		{ID: 2, Name: "Rust", Slug: "rust"},
	}}
	st := newTestStore(driver)
	defer st.Close()

	list, total, err := st.SearchTags(ctx, &FindTag{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, total)
}
