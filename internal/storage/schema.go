package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createProjectsTable(ctx, db); err != nil {
		return err
	}
	return createKVTable(ctx, db)
}

func createProjectsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		application_period TEXT NOT NULL DEFAULT '',
		support1 TEXT NOT NULL DEFAULT '',
		support2 TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		etc TEXT NOT NULL DEFAULT '',
		notification_date TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 0,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		requirements TEXT NOT NULL DEFAULT '',
		imported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_position ON projects(position);
	CREATE INDEX IF NOT EXISTS idx_projects_category ON projects(category);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create projects table: %w", err)
	}

	return nil
}

func createKVTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}

	return nil
}
