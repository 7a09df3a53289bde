// Package maintenance keeps the local database bounded.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"ankispeech/pkg/db"
)

// KeepRuns is the number of run history entries retained.
const KeepRuns = 500

// Run prunes expired cache entries and old run history. Failures are logged
// and never stop a sync.
func Run(ctx context.Context, d *db.DB, maxAge time.Duration) {
	if ctx.Err() != nil {
		return
	}
	slog.Debug("Starting database maintenance...")

	if maxAge > 0 {
		n, err := d.PruneCache(maxAge)
		if err != nil {
			slog.Error("Cache pruning failed", "error", err)
		} else if n > 0 {
			slog.Info("Pruned cached audio", "entries", n, "older_than", maxAge)
		}
	}

	if n, err := d.PruneRuns(KeepRuns); err != nil {
		slog.Error("Run history pruning failed", "error", err)
	} else if n > 0 {
		slog.Debug("Pruned run history", "entries", n)
	}
}
