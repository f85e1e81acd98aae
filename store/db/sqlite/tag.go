package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/inkwell-press/inkwell/store"
)

func (d *DB) CreateTag(ctx context.Context, create *store.Tag) (*store.Tag, error) {
	fields := []string{"uid", "name", "slug"}
	placeholderValues := []any{create.UID, create.Name, create.Slug}

	if create.CreatorID != nil {
		fields = append(fields, "creator_id")
		placeholderValues = append(placeholderValues, *create.CreatorID)
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO tag (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.q.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		if isSlugConstraintViolation(err) {
			return nil, store.ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return create, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "tag.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "tag.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Slug; v != nil {
		where, args = append(where, "tag.slug = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Term; v != nil {
		pattern := "%" + escapeLike(*v) + "%"
		where = append(where, "(tag.name LIKE "+placeholder(len(args)+1)+` ESCAPE '\' OR tag.slug LIKE `+placeholder(len(args)+2)+` ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `
		SELECT
			id, uid, creator_id, created_ts, name, slug
		FROM tag
		WHERE ` + strings.Join(where, " AND ") + ` ` + tagOrderBy(find)

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Tag, 0)
	for rows.Next() {
		var tag store.Tag
		var creatorID sql.NullInt32

		if err := rows.Scan(
			&tag.ID,
			&tag.UID,
			&creatorID,
			&tag.CreatedTs,
			&tag.Name,
			&tag.Slug,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		if creatorID.Valid {
			tag.CreatorID = &creatorID.Int32
		}
		list = append(list, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return list, nil
}

func (d *DB) CountTags(ctx context.Context, find *store.FindTag) (int, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.Term; v != nil {
		pattern := "%" + escapeLike(*v) + "%"
		where = append(where, "(tag.name LIKE "+placeholder(len(args)+1)+` ESCAPE '\' OR tag.slug LIKE `+placeholder(len(args)+2)+` ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	var count int
	query := `SELECT COUNT(*) FROM tag WHERE ` + strings.Join(where, " AND ")
	if err := d.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return count, nil
}

func (d *DB) UpdateTag(ctx context.Context, update *store.UpdateTag) error {
	set, args := []string{}, []any{}

	if v := update.Name; v != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Slug; v != nil {
		set, args = append(set, "slug = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)
	stmt := `UPDATE tag SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.q.ExecContext(ctx, stmt, args...); err != nil {
		if isSlugConstraintViolation(err) {
			return store.ErrSlugConflict
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

func (d *DB) DeleteTag(ctx context.Context, delete *store.DeleteTag) error {
	stmt := `DELETE FROM tag WHERE id = ?`
	if _, err := d.q.ExecContext(ctx, stmt, delete.ID); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

func (d *DB) TagSlugExists(ctx context.Context, slug string, excludeID *int32) (bool, error) {
	where, args := []string{"slug = ?"}, []any{slug}
	if excludeID != nil {
		where, args = append(where, "id != ?"), append(args, *excludeID)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tag WHERE ` + strings.Join(where, " AND ") + `)`
	if err := d.q.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tag slug: %w", err)
	}
	return exists, nil
}

func tagOrderBy(find *store.FindTag) string {
	direction := "ASC"
	if find.OrderDesc {
		direction = "DESC"
	}
	switch find.OrderBy {
	case store.TagOrderBySlug:
		return "ORDER BY tag.slug " + direction
	case store.TagOrderByCreatedTs:
		return "ORDER BY tag.created_ts " + direction
	case store.TagOrderByPostCount:
		return "ORDER BY (SELECT COUNT(*) FROM tag_post WHERE tag_post.tag_id = tag.id) " + direction
	default:
		return "ORDER BY tag.name " + direction
	}
}

// isSlugConstraintViolation reports whether err comes from the UNIQUE
// constraint on tag.slug. modernc.org/sqlite surfaces constraint failures as
// plain errors naming the offending column.
func isSlugConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: tag.slug")
}
