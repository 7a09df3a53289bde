package store

import (
	"context"
	"time"
)

// AudioStore caches encoded audio by content fingerprint.
type AudioStore interface {
	GetAudio(ctx context.Context, fingerprint string) ([]byte, bool)
	HasAudio(ctx context.Context, fingerprint string) (bool, error)
	PutAudio(ctx context.Context, fingerprint, provider string, data []byte) error
}

// Run is one recorded sync run.
type Run struct {
	ID           string
	Command      string
	Query        string
	Provider     string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Processed    int
	SkippedFresh int
	SkippedEmpty int
	Errors       int
	CacheHits    int
}

// RunStore persists the run history.
type RunStore interface {
	RecordRun(ctx context.Context, r *Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}
