// Package relay is the multi-device sync server: it keeps the authoritative
// merged log and answers the device push/pull protocol.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"focustrack/internal/api"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertDevice registers or renames a device, reporting whether the row was
// created.
func (s *Store) UpsertDevice(ctx context.Context, id, name string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM devices WHERE id = ?`, id).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check device: %w", err)
	}
	created := errors.Is(err, sql.ErrNoRows)
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO devices(id, name)
VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name
`, id, name); err != nil {
		return false, fmt.Errorf("upsert device: %w", err)
	}
	return created, nil
}

func (s *Store) TouchDevice(ctx context.Context, id string, at float64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE devices SET last_sync = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	return nil
}

func (s *Store) UpsertApp(ctx context.Context, bundleID, appName string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO apps(bundle_id, app_name)
VALUES (?, ?)
ON CONFLICT(bundle_id) DO UPDATE SET
	app_name=excluded.app_name
`, bundleID, appName)
	if err != nil {
		return fmt.Errorf("upsert app: %w", err)
	}
	return nil
}

func (s *Store) UpsertTag(ctx context.Context, name, colorLight, colorDark string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tags(name, color_light, color_dark)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	color_light=excluded.color_light,
	color_dark=excluded.color_dark
`, name, colorLight, colorDark)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}
	return nil
}

func (s *Store) AppIDByBundle(ctx context.Context, bundleID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM apps WHERE bundle_id = ?`, bundleID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lookup app: %w", err)
	}
	return id, nil
}

func (s *Store) TagIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lookup tag: %w", err)
	}
	return id, nil
}

type LogRow struct {
	DeviceID    string
	ClientLogID int64
	AppID       int64
	WindowTitle *string
	StartTime   float64
	EndTime     float64
	IsIdle      bool
	TagID       *int64
}

// InsertLog stores one pushed session, reporting false when the
// (device_id, client_log_id) pair was already delivered.
func (s *Store) InsertLog(ctx context.Context, row LogRow) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO activity_logs(device_id, client_log_id, app_id, window_title, start_time, end_time, is_idle, tag_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(device_id, client_log_id) DO NOTHING
`, row.DeviceID, row.ClientLogID, row.AppID, nullableStr(row.WindowTitle), row.StartTime, row.EndTime, boolToInt(row.IsIdle), nullableI64(row.TagID))
	if err != nil {
		return false, fmt.Errorf("insert log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert log rows affected: %w", err)
	}
	return affected > 0, nil
}

// LogsSince returns every other device's sessions starting at or after
// since, oldest first, with app and tag joined back to names.
func (s *Store) LogsSince(ctx context.Context, excludeDeviceID string, since float64) ([]api.PullLog, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT l.device_id, d.name, a.app_name, a.bundle_id, l.window_title, l.start_time, l.end_time, l.is_idle, t.name
FROM activity_logs l
JOIN devices d ON d.id = l.device_id
JOIN apps a ON a.id = l.app_id
LEFT JOIN tags t ON t.id = l.tag_id
WHERE l.device_id != ? AND l.start_time >= ?
ORDER BY l.start_time ASC
`, excludeDeviceID, since)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	out := make([]api.PullLog, 0)
	for rows.Next() {
		var (
			entry   api.PullLog
			title   sql.NullString
			tagName sql.NullString
		)
		if err := rows.Scan(&entry.DeviceID, &entry.DeviceName, &entry.AppName, &entry.BundleID, &title, &entry.StartTime, &entry.EndTime, &entry.IsIdle, &tagName); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if title.Valid {
			v := title.String
			entry.WindowTitle = &v
		}
		if tagName.Valid {
			v := tagName.String
			entry.TagName = &v
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter logs: %w", err)
	}
	return out, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableI64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
