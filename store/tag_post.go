package store

import "context"

// TagPost links a tag to a content post. The association rows are owned by the
// content subsystem; the tag engine only reads their cardinality. Rows are
// dropped with their tag via ON DELETE CASCADE.
type TagPost struct {
	TagID  int32
	PostID int32
}

// CountTagPosts returns the number of posts referencing the given tag.
func (s *Store) CountTagPosts(ctx context.Context, tagID int32) (int, error) {
	return s.driver.CountTagPosts(ctx, tagID)
}
