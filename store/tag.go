package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrSlugConflict is returned by drivers when a write loses the race against
// the unique constraint on tag.slug. Callers should treat it as retryable.
var ErrSlugConflict = errors.New("tag slug already exists")

// TagOrderBy enumerates the supported sort columns for tag search.
type TagOrderBy string

const (
	TagOrderByName      TagOrderBy = "name"
	TagOrderBySlug      TagOrderBy = "slug"
	TagOrderByCreatedTs TagOrderBy = "created_ts"
	TagOrderByPostCount TagOrderBy = "post_count"
)

// Tag is the object representing a content tag.
type Tag struct {
	ID  int32
	UID string

	// Standard fields
	CreatorID *int32
	CreatedTs int64

	// Domain specific fields
	Name string
	Slug string
}

// FindTag is the find condition for tags.
type FindTag struct {
	ID   *int32
	UID  *string
	Slug *string

	// Term filters by substring match on name or slug.
	Term *string

	// Ordering
	OrderBy   TagOrderBy
	OrderDesc bool

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateTag is the update request for a tag.
type UpdateTag struct {
	ID   int32
	Name *string
	Slug *string
}

// DeleteTag is the delete request for a tag.
type DeleteTag struct {
	ID int32
}

// CreateTag creates a new tag.
func (s *Store) CreateTag(ctx context.Context, create *Tag) (*Tag, error) {
	return s.driver.CreateTag(ctx, create)
}

// ListTags lists tags with filter.
func (s *Store) ListTags(ctx context.Context, find *FindTag) ([]*Tag, error) {
	return s.driver.ListTags(ctx, find)
}

// GetTag gets a single tag by find condition.
func (s *Store) GetTag(ctx context.Context, find *FindTag) (*Tag, error) {
	list, err := s.driver.ListTags(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetTagBySlug gets a tag by slug, consulting the slug cache first.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*Tag, error) {
	if value, ok := s.tagBySlugCache.Get(ctx, slug); ok {
		if tag, ok := value.(*Tag); ok {
			return tag, nil
		}
	}
	tag, err := s.GetTag(ctx, &FindTag{Slug: &slug})
	if err != nil {
		return nil, err
	}
	if tag != nil {
		s.tagBySlugCache.Set(ctx, slug, tag)
	}
	return tag, nil
}

// SearchTags returns one page of tags matching the find condition plus the
// total number of matches before pagination.
func (s *Store) SearchTags(ctx context.Context, find *FindTag) ([]*Tag, int, error) {
	list, err := s.driver.ListTags(ctx, find)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.driver.CountTags(ctx, &FindTag{Term: find.Term})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateTag updates a tag and evicts any stale slug cache entries.
func (s *Store) UpdateTag(ctx context.Context, update *UpdateTag) error {
	if old, err := s.GetTag(ctx, &FindTag{ID: &update.ID}); err == nil && old != nil {
		s.tagBySlugCache.Delete(ctx, old.Slug)
	}
	if update.Slug != nil {
		s.tagBySlugCache.Delete(ctx, *update.Slug)
	}
	return s.driver.UpdateTag(ctx, update)
}

// DeleteTag deletes a tag and evicts its slug cache entry.
func (s *Store) DeleteTag(ctx context.Context, delete *DeleteTag) error {
	if old, err := s.GetTag(ctx, &FindTag{ID: &delete.ID}); err == nil && old != nil {
		s.tagBySlugCache.Delete(ctx, old.Slug)
	}
	return s.driver.DeleteTag(ctx, delete)
}

// CountTags counts tags matching the find condition.
func (s *Store) CountTags(ctx context.Context, find *FindTag) (int, error) {
	return s.driver.CountTags(ctx, find)
}

// TagSlugExists reports whether a slug is taken by a tag other than excludeID.
func (s *Store) TagSlugExists(ctx context.Context, slug string, excludeID *int32) (bool, error) {
	return s.driver.TagSlugExists(ctx, slug, excludeID)
}

// EvictTagCache removes a slug from the tag-by-slug cache. Callers that mutate
// tags through a transaction use this after commit.
func (s *Store) EvictTagCache(ctx context.Context, slug string) {
	s.tagBySlugCache.Delete(ctx, slug)
}
