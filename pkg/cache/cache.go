// Package cache reuses previously encoded audio when the same fingerprint is
// requested again, for example after a note was reset or moved between decks.
package cache

import (
	"context"
	"log/slog"

	"ankispeech/pkg/store"
	"ankispeech/pkg/tracker"
)

// Cacher defines the audio caching interface.
type Cacher interface {
	GetAudio(ctx context.Context, fingerprint string) ([]byte, bool)
	PutAudio(ctx context.Context, fingerprint string, data []byte) error
}

// SQLiteCache implements Cacher on top of the SQLite audio store.
type SQLiteCache struct {
	store    store.AudioStore
	tracker  *tracker.Tracker
	provider string
}

// NewSQLiteCache creates a cache for one provider. Hits and misses are
// counted against that provider.
func NewSQLiteCache(s store.AudioStore, t *tracker.Tracker, provider string) *SQLiteCache {
	return &SQLiteCache{store: s, tracker: t, provider: provider}
}

func (c *SQLiteCache) GetAudio(ctx context.Context, fingerprint string) ([]byte, bool) {
	val, hit := c.store.GetAudio(ctx, fingerprint)
	if hit {
		c.tracker.TrackCacheHit(c.provider)
		slog.Debug("Cache Hit", "provider", c.provider, "fingerprint", fingerprint)
		return val, true
	}
	c.tracker.TrackCacheMiss(c.provider)
	return nil, false
}

func (c *SQLiteCache) PutAudio(ctx context.Context, fingerprint string, data []byte) error {
	return c.store.PutAudio(ctx, fingerprint, c.provider, data)
}

// Nop is a Cacher that never hits. Used when caching is disabled.
type Nop struct{}

func (Nop) GetAudio(context.Context, string) ([]byte, bool) { return nil, false }

func (Nop) PutAudio(context.Context, string, []byte) error { return nil }
