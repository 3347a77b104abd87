// Package store keeps the console's small pieces of local state: page-size
// preferences, job run history and the snooze log. Everything business-level
// lives in the external backend; this file is only operator comfort across
// reloads.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		migrationPagePrefs,
		migrationJobRuns,
		migrationSnoozes,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationPagePrefs = `
CREATE TABLE IF NOT EXISTS page_prefs (
    group_key TEXT PRIMARY KEY,
    page_size INTEGER NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationJobRuns = `
CREATE TABLE IF NOT EXISTS job_runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    remote_id TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);
`

const migrationSnoozes = `
CREATE TABLE IF NOT EXISTS snoozes (
    id TEXT PRIMARY KEY,
    contact_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    queue_item_id TEXT,
    snooze_days INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
