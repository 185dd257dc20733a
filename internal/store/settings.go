package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const deviceIDKey = "device_id"

func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetch setting: %w", err)
	}
	return value, nil
}

func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings(key, value)
VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value
`, key, value)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

// DeviceID returns this machine's stable identity, generating and persisting
// one on first call.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, err := s.Setting(ctx, deviceIDKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := s.SaveSetting(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}
