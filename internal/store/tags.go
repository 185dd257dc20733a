package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"focustrack/internal/model"
)

func (s *Store) CreateTag(ctx context.Context, name, colorLight, colorDark string) (model.Tag, error) {
	if name == "" {
		return model.Tag{}, fmt.Errorf("tag name is required")
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO tags(name, color_light, color_dark)
VALUES (?, ?, ?)
`, name, colorLight, colorDark)
	if err != nil {
		if isUniqueErr(err) {
			return model.Tag{}, ErrDuplicateTag
		}
		return model.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tag{}, fmt.Errorf("insert tag id: %w", err)
	}
	return model.Tag{ID: id, Name: name, ColorLight: colorLight, ColorDark: colorDark}, nil
}

func (s *Store) UpdateTag(ctx context.Context, tag model.Tag) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tags
SET name = ?, color_light = ?, color_dark = ?
WHERE id = ?
`, tag.Name, tag.ColorLight, tag.ColorDark, tag.ID)
	if err != nil {
		if isUniqueErr(err) {
			return ErrDuplicateTag
		}
		return fmt.Errorf("update tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tag rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTag removes the tag and clears every reference to it in one
// transaction, so no session or app is ever left pointing at a missing row.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tag tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE apps SET default_tag_id = NULL WHERE default_tag_id = ?`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear default tag refs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE activity_logs SET tag_id = NULL WHERE tag_id = ?`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear session tag refs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete tag rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tag: %w", err)
	}
	return nil
}

func (s *Store) Tags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, color_light, color_dark
FROM tags
ORDER BY name ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make([]model.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tags: %w", err)
	}
	return out, nil
}

func scanTag(scanner interface{ Scan(dest ...any) error }) (model.Tag, error) {
	var tag model.Tag
	if err := scanner.Scan(&tag.ID, &tag.Name, &tag.ColorLight, &tag.ColorDark); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tag{}, ErrNotFound
		}
		return model.Tag{}, fmt.Errorf("scan tag: %w", err)
	}
	return tag, nil
}
