package sqlite

import (
	"context"
	"fmt"
)

func (d *DB) CountTagPosts(ctx context.Context, tagID int32) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tag_post WHERE tag_id = ?`
	if err := d.q.QueryRowContext(ctx, query, tagID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tag posts: %w", err)
	}
	return count, nil
}
