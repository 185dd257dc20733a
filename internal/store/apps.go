package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"focustrack/internal/model"
)

// UpsertApp inserts the app on first sight and refreshes its display name on
// every later one. The icon is kept in the app_icons side table and only the
// first captured icon wins.
func (s *Store) UpsertApp(ctx context.Context, bundleID, appName string, iconPNG []byte) (int64, error) {
	if bundleID == "" {
		return 0, fmt.Errorf("bundle_id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO apps(bundle_id, app_name)
VALUES (?, ?)
ON CONFLICT(bundle_id) DO UPDATE SET
	app_name=excluded.app_name
`, bundleID, appName)
	if err != nil {
		return 0, fmt.Errorf("upsert app: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM apps WHERE bundle_id = ?`, bundleID).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup app id: %w", err)
	}
	if len(iconPNG) > 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO app_icons(app_id, icon) VALUES (?, ?)`, id, iconPNG); err != nil {
			return 0, fmt.Errorf("insert app icon: %w", err)
		}
	}
	return id, nil
}

func (s *Store) FetchAppInfo(ctx context.Context, appID int64) (model.AppInfo, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, bundle_id, app_name, default_tag_id
FROM apps
WHERE id = ?
`, appID)
	return scanApp(row)
}

func (s *Store) AppByBundleID(ctx context.Context, bundleID string) (model.AppInfo, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, bundle_id, app_name, default_tag_id
FROM apps
WHERE bundle_id = ?
`, bundleID)
	return scanApp(row)
}

func (s *Store) Apps(ctx context.Context) ([]model.AppInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, bundle_id, app_name, default_tag_id
FROM apps
ORDER BY app_name ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	out := make([]model.AppInfo, 0)
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter apps: %w", err)
	}
	return out, nil
}

func (s *Store) AppIcon(ctx context.Context, appID int64) ([]byte, error) {
	var icon []byte
	err := s.db.QueryRowContext(ctx, `SELECT icon FROM app_icons WHERE app_id = ?`, appID).Scan(&icon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch app icon: %w", err)
	}
	return icon, nil
}

func (s *Store) SetDefaultTag(ctx context.Context, appID int64, tagID *int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE apps SET default_tag_id = ? WHERE id = ?`, nullableI64(tagID), appID)
	if err != nil {
		return fmt.Errorf("set default tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default tag rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanApp(scanner interface{ Scan(dest ...any) error }) (model.AppInfo, error) {
	var (
		app        model.AppInfo
		defaultTag sql.NullInt64
	)
	if err := scanner.Scan(&app.ID, &app.BundleID, &app.AppName, &defaultTag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AppInfo{}, ErrNotFound
		}
		return model.AppInfo{}, fmt.Errorf("scan app: %w", err)
	}
	if defaultTag.Valid {
		v := defaultTag.Int64
		app.DefaultTagID = &v
	}
	return app, nil
}
