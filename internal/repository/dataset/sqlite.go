// Package dataset persists dataset metadata and inferred columns in SQLite.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Repo is the SQLite-backed metadata store.
type Repo struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(ctx context.Context, dbPath string) (*Repo, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Repo{db: db}
	if err := r.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database connection.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping verifies the database is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		logical_name TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		byte_size INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		column_count INTEGER NOT NULL DEFAULT 0,
		raw_key TEXT NOT NULL DEFAULT '',
		columnar_key TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		parse_state TEXT NOT NULL DEFAULT 'pending',
		parse_progress INTEGER NOT NULL DEFAULT 0,
		parse_error TEXT NOT NULL DEFAULT '',
		chunk_state TEXT NOT NULL DEFAULT 'pending',
		chunk_progress INTEGER NOT NULL DEFAULT 0,
		chunk_error TEXT NOT NULL DEFAULT '',
		vectorize_state TEXT NOT NULL DEFAULT 'pending',
		vectorize_progress INTEGER NOT NULL DEFAULT 0,
		vectorize_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dataset_columns (
		dataset_id TEXT NOT NULL,
		column_index INTEGER NOT NULL,
		name TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		stats JSON NOT NULL,
		samples JSON NOT NULL,
		PRIMARY KEY (dataset_id, column_index),
		FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_hash ON datasets(content_hash);
	CREATE INDEX IF NOT EXISTS idx_datasets_created ON datasets(created_at);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
