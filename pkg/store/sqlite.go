// Package store persists cached audio and run history in SQLite.
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ankispeech/pkg/db"
)

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	AudioStore
	RunStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Audio ---

func (s *SQLiteStore) GetAudio(ctx context.Context, fingerprint string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM audio_cache WHERE fingerprint = ?", fingerprint).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Audio cache read failed", "fingerprint", fingerprint, "error", err)
		return nil, false
	}

	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err != nil {
			slog.Warn("Corrupt cached audio ignored", "fingerprint", fingerprint, "error", err)
			return nil, false
		}
		return decompressed, true
	}
	return val, len(val) > 0
}

func (s *SQLiteStore) HasAudio(ctx context.Context, fingerprint string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM audio_cache WHERE fingerprint = ?", fingerprint).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) PutAudio(ctx context.Context, fingerprint, provider string, data []byte) error {
	val := data
	if compressed, err := compress(data); err == nil && len(compressed) < len(data) {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO audio_cache (fingerprint, provider, data, size, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, fingerprint, provider, val, len(data), time.Now().Unix())
	return err
}

// --- Compression Pooling ---

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// buf goes back to the pool, so copy out.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- Runs ---

// RecordRun stores r, assigning an ID when it has none.
func (s *SQLiteStore) RecordRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query := `INSERT OR REPLACE INTO sync_runs
		(id, command, query, provider, started_at, finished_at, total, processed, skipped_fresh, skipped_empty, errors, cache_hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Command, r.Query, r.Provider,
		r.StartedAt.Unix(), r.FinishedAt.Unix(),
		r.Total, r.Processed, r.SkippedFresh, r.SkippedEmpty, r.Errors, r.CacheHits,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, command, query, provider, started_at, finished_at,
		total, processed, skipped_fresh, skipped_empty, errors, cache_hits
		FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var command, query, provider sql.NullString
		if err := rows.Scan(&r.ID, &command, &query, &provider, &started, &finished,
			&r.Total, &r.Processed, &r.SkippedFresh, &r.SkippedEmpty, &r.Errors, &r.CacheHits); err != nil {
			return nil, err
		}
		r.Command, r.Query, r.Provider = command.String, query.String, provider.String
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
