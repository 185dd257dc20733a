package store

import (
	"context"
	"database/sql"
	"fmt"
)

type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

var migrations = []Migration{
	{
		Version: 1,
		UpSQL: `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS apps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bundle_id TEXT NOT NULL UNIQUE,
	app_name TEXT NOT NULL,
	icon BLOB
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	app_id INTEGER NOT NULL,
	window_title TEXT,
	start_time REAL NOT NULL,
	end_time REAL NOT NULL,
	is_idle INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(app_id) REFERENCES apps(id)
);

CREATE INDEX IF NOT EXISTS activity_logs_start_time
ON activity_logs(start_time DESC);
`,
		DownSQL: `
DROP INDEX IF EXISTS activity_logs_start_time;
DROP TABLE IF EXISTS activity_logs;
DROP TABLE IF EXISTS apps;
DROP TABLE IF EXISTS schema_migrations;
`,
	},
	{
		Version: 2,
		UpSQL: `
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	color_light TEXT NOT NULL DEFAULT '',
	color_dark TEXT NOT NULL DEFAULT ''
);

ALTER TABLE apps ADD COLUMN default_tag_id INTEGER REFERENCES tags(id);
ALTER TABLE activity_logs ADD COLUMN tag_id INTEGER REFERENCES tags(id);
`,
		DownSQL: `
-- SQLite cannot drop columns portably; rolling this migration back means
-- recreating the database. RollbackAll() stays safe because v1 DownSQL
-- drops full tables.
DROP TABLE IF EXISTS tags;
`,
	},
	{
		Version: 3,
		UpSQL: `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

ALTER TABLE activity_logs ADD COLUMN synced INTEGER NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS remote_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	device_name TEXT NOT NULL,
	app_name TEXT NOT NULL,
	bundle_id TEXT NOT NULL,
	window_title TEXT,
	start_time REAL NOT NULL,
	end_time REAL NOT NULL,
	is_idle INTEGER NOT NULL DEFAULT 0,
	tag_name TEXT
);

CREATE INDEX IF NOT EXISTS activity_logs_unsynced
ON activity_logs(synced) WHERE synced = 0;

CREATE INDEX IF NOT EXISTS remote_logs_start_time
ON remote_logs(start_time DESC);
`,
		DownSQL: `
-- SQLite cannot drop columns portably; rolling this migration back means
-- recreating the database. RollbackAll() stays safe because v1 DownSQL
-- drops full tables.
DROP INDEX IF EXISTS remote_logs_start_time;
DROP INDEX IF EXISTS activity_logs_unsynced;
DROP TABLE IF EXISTS remote_logs;
DROP TABLE IF EXISTS settings;
`,
	},
	{
		Version: 4,
		UpSQL: `
CREATE TABLE IF NOT EXISTS app_icons (
	app_id INTEGER PRIMARY KEY REFERENCES apps(id),
	icon BLOB NOT NULL
);

INSERT OR IGNORE INTO app_icons(app_id, icon)
SELECT id, icon FROM apps WHERE icon IS NOT NULL;

UPDATE apps SET icon = NULL WHERE icon IS NOT NULL;
`,
		DownSQL: `
DROP TABLE IF EXISTS app_icons;
`,
	},
}

func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.Version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func RollbackAll(ctx context.Context, db *sql.DB) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rollback tx %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("rollback migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit rollback %d: %w", m.Version, err)
		}
	}
	return nil
}
