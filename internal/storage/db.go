// ABOUTME: SQLite database connection and lifecycle management.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DBFileName is the SQLite file inside the data directory.
const DBFileName = "painlog.db"

// timeLayout is fixed-width so that text comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps the SQLite database connection.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the diary database at dbPath and brings its
// schema up to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d := &DB{db: sqlDB, dbPath: dbPath}

	steps := []struct {
		name string
		run  func() error
	}{
		{"configure pragmas", d.configurePragmas},
		{"initialize schema", d.initSchema},
		{"set database permissions", d.restrictFile},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return d, nil
}

// restrictFile keeps diary data readable by the owner only.
func (d *DB) restrictFile() error {
	if err := os.Chmod(d.dbPath, 0600); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DataDir returns the default data directory under XDG_DATA_HOME.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "painlog")
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// configurePragmas enables WAL and foreign keys. foreign_keys is per
// connection, so the pool is pinned to one connection.
func (d *DB) configurePragmas() error {
	d.db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := d.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or by older tools.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

// nullableID lets SQLite assign the rowid when id is zero.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// translateSQLiteError maps constraint violations to the package sentinels.
func translateSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.phone"):
		return fmt.Errorf("%w: %v", ErrPhoneTaken, err)
	case strings.Contains(msg, "UNIQUE constraint failed: pain_entries.user_id"):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
