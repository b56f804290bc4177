package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

func NewDB(dbPath string) (*DB, error) {
	err := os.MkdirAll(filepath.Dir(dbPath), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	slog.Info("Running database migrations")

	migrations := []string{
		createRemindersTable,
		createPreferencesTable,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

// Both tables hold full snapshots: every save rewrites them wholesale inside
// one transaction, so rows never accumulate history.
const createRemindersTable = `
CREATE TABLE IF NOT EXISTS reminders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	trigger_at_ms INTEGER NOT NULL,
	trigger_tz TEXT NOT NULL,
	message TEXT NOT NULL,
	interval TEXT -- JSON modifier sequence, NULL for one-off reminders
);`

const createPreferencesTable = `
CREATE TABLE IF NOT EXISTS preferences (
	user_id INTEGER PRIMARY KEY,
	timezone TEXT NOT NULL,
	time_format TEXT NOT NULL
);`
