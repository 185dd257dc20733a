package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"focustrack/internal/model"
)

// UnsyncedSessions returns local sessions not yet pushed to the relay,
// oldest first, joined with the bundle id and effective tag name the push
// payload carries.
func (s *Store) UnsyncedSessions(ctx context.Context, limit int) ([]model.UnsyncedSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT l.id, l.app_id, l.window_title, l.start_time, l.end_time, l.is_idle, l.tag_id,
	a.bundle_id, a.app_name, t.name
FROM activity_logs l
JOIN apps a ON a.id = l.app_id
LEFT JOIN tags t ON t.id = COALESCE(l.tag_id, a.default_tag_id)
WHERE l.synced = 0
ORDER BY l.start_time ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced sessions: %w", err)
	}
	defer rows.Close()

	out := make([]model.UnsyncedSession, 0)
	for rows.Next() {
		var (
			entry   model.UnsyncedSession
			title   sql.NullString
			start   float64
			end     float64
			isIdle  int
			tagID   sql.NullInt64
			tagName sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.AppID, &title, &start, &end, &isIdle, &tagID,
			&entry.BundleID, &entry.AppName, &tagName); err != nil {
			return nil, fmt.Errorf("scan unsynced session: %w", err)
		}
		if title.Valid {
			v := title.String
			entry.WindowTitle = &v
		}
		entry.StartTime = fromEpoch(start)
		entry.EndTime = fromEpoch(end)
		entry.IsIdle = isIdle == 1
		if tagID.Valid {
			v := tagID.Int64
			entry.TagID = &v
		}
		if tagName.Valid {
			v := tagName.String
			entry.TagName = &v
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter unsynced sessions: %w", err)
	}
	return out, nil
}

func (s *Store) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE activity_logs SET synced = 1 WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

func (s *Store) InsertRemoteSession(ctx context.Context, r model.RemoteSession) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO remote_logs(device_id, device_name, app_name, bundle_id, window_title, start_time, end_time, is_idle, tag_name)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, r.DeviceID, r.DeviceName, r.AppName, r.BundleID, nullableStr(r.WindowTitle), epoch(r.StartTime), epoch(r.EndTime), boolToInt(r.IsIdle), nullableStr(r.TagName))
	if err != nil {
		return fmt.Errorf("insert remote session: %w", err)
	}
	return nil
}

func (s *Store) RemoteSessions(ctx context.Context, since time.Time) ([]model.RemoteSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, device_id, device_name, app_name, bundle_id, window_title, start_time, end_time, is_idle, tag_name
FROM remote_logs
WHERE start_time >= ?
ORDER BY start_time ASC
`, epoch(since))
	if err != nil {
		return nil, fmt.Errorf("query remote sessions: %w", err)
	}
	defer rows.Close()

	out := make([]model.RemoteSession, 0)
	for rows.Next() {
		r, err := scanRemoteSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter remote sessions: %w", err)
	}
	return out, nil
}

// Timeline merges local and remote sessions starting at or after since into
// one feed ordered by start time.
func (s *Store) Timeline(ctx context.Context, since time.Time) ([]model.TimelineEntry, error) {
	local, err := s.querySessions(ctx, `
SELECT `+sessionColumns+`
FROM activity_logs
WHERE start_time >= ?
ORDER BY start_time ASC
`, epoch(since))
	if err != nil {
		return nil, err
	}
	remote, err := s.RemoteSessions(ctx, since)
	if err != nil {
		return nil, err
	}

	out := make([]model.TimelineEntry, 0, len(local)+len(remote))
	for _, session := range local {
		out = append(out, model.LocalEntry(session))
	}
	for _, r := range remote {
		out = append(out, model.RemoteEntry(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime().Before(out[j].StartTime())
	})
	return out, nil
}

func scanRemoteSession(scanner interface{ Scan(dest ...any) error }) (model.RemoteSession, error) {
	var (
		r       model.RemoteSession
		title   sql.NullString
		start   float64
		end     float64
		isIdle  int
		tagName sql.NullString
	)
	if err := scanner.Scan(&r.ID, &r.DeviceID, &r.DeviceName, &r.AppName, &r.BundleID, &title, &start, &end, &isIdle, &tagName); err != nil {
		return model.RemoteSession{}, fmt.Errorf("scan remote session: %w", err)
	}
	if title.Valid {
		v := title.String
		r.WindowTitle = &v
	}
	r.StartTime = fromEpoch(start)
	r.EndTime = fromEpoch(end)
	r.IsIdle = isIdle == 1
	if tagName.Valid {
		v := tagName.String
		r.TagName = &v
	}
	return r, nil
}
