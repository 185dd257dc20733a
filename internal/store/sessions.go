package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focustrack/internal/model"
)

const sessionColumns = `id, app_id, window_title, start_time, end_time, is_idle, tag_id, synced`

func (s *Store) InsertSession(ctx context.Context, appID int64, windowTitle *string, start, end time.Time, isIdle bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO activity_logs(app_id, window_title, start_time, end_time, is_idle)
VALUES (?, ?, ?, ?, ?)
`, appID, nullableStr(windowTitle), epoch(start), epoch(end), boolToInt(isIdle))
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert session id: %w", err)
	}
	return id, nil
}

func (s *Store) ExtendSession(ctx context.Context, id int64, end time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE activity_logs SET end_time = ? WHERE id = ?`, epoch(end), id)
	if err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("extend session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) LastSession(ctx context.Context) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM activity_logs
ORDER BY start_time DESC, id DESC
LIMIT 1
`)
	return scanSession(row)
}

// TodaySessions returns the sessions whose start falls within now's local
// calendar day, newest first.
func (s *Store) TodaySessions(ctx context.Context, now time.Time) ([]model.Session, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.querySessions(ctx, `
SELECT `+sessionColumns+`
FROM activity_logs
WHERE start_time >= ? AND start_time < ?
ORDER BY start_time DESC
`, epoch(startOfDay), epoch(startOfDay.AddDate(0, 0, 1)))
}

func (s *Store) SessionsBetween(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	return s.querySessions(ctx, `
SELECT `+sessionColumns+`
FROM activity_logs
WHERE start_time >= ? AND start_time < ?
ORDER BY start_time ASC
`, epoch(from), epoch(to))
}

func (s *Store) SetSessionTag(ctx context.Context, sessionID int64, tagID *int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE activity_logs SET tag_id = ? WHERE id = ?`, nullableI64(tagID), sessionID)
	if err != nil {
		return fmt.Errorf("set session tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set session tag rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter sessions: %w", err)
	}
	return out, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (model.Session, error) {
	var (
		session model.Session
		title   sql.NullString
		start   float64
		end     float64
		isIdle  int
		tagID   sql.NullInt64
		synced  int
	)
	if err := scanner.Scan(&session.ID, &session.AppID, &title, &start, &end, &isIdle, &tagID, &synced); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("scan session: %w", err)
	}
	if title.Valid {
		v := title.String
		session.WindowTitle = &v
	}
	session.StartTime = fromEpoch(start)
	session.EndTime = fromEpoch(end)
	session.IsIdle = isIdle == 1
	if tagID.Valid {
		v := tagID.Int64
		session.TagID = &v
	}
	session.Synced = synced == 1
	return session, nil
}
