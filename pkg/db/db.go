// Package db opens the local SQLite database holding the audio cache and the
// run history.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneCache removes cached audio older than the specified duration and
// returns the number of entries removed.
func (d *DB) PruneCache(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).Unix()
	res, err := d.Exec("DELETE FROM audio_cache WHERE created_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneRuns keeps only the most recent keep entries of the run history.
func (d *DB) PruneRuns(keep int) (int64, error) {
	res, err := d.Exec(`DELETE FROM sync_runs WHERE id NOT IN (
		SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	// Timestamps are unix seconds.
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audio_cache (
			fingerprint TEXT PRIMARY KEY,
			provider TEXT,
			data BLOB,
			size INTEGER,
			created_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			command TEXT,
			query TEXT,
			provider TEXT,
			started_at INTEGER,
			finished_at INTEGER,
			total INTEGER,
			processed INTEGER,
			skipped_fresh INTEGER,
			skipped_empty INTEGER,
			errors INTEGER,
			cache_hits INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}
	return nil
}
