package tts

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retry calls fn up to attempts times, waiting delay between tries. Only
// throttle errors are retried; any other error is returned immediately.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsThrottle(err) {
			return zero, err
		}
		lastErr = err
		slog.Warn("Backend throttled, retrying", "attempt", attempt, "max", attempts, "delay", delay, "error", err)
	}
	return zero, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

// WaitBatch polls job every interval until it reaches a terminal state. A
// job that does not succeed returns ErrBatchFailed. Throttled polls are
// retried on the next tick, but more than maxThrottles in a row fail the
// wait.
func WaitBatch(ctx context.Context, bp BatchProvider, job Job, interval time.Duration, maxThrottles int) (JobStatus, error) {
	if maxThrottles < 1 {
		maxThrottles = 1
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	throttled := 0
	for {
		status, err := bp.Poll(ctx, job)
		switch {
		case err == nil:
			throttled = 0
			if status.State == JobSucceeded {
				return status, nil
			}
			if status.State.Terminal() {
				return status, fmt.Errorf("%w: %s ended %s: %s", ErrBatchFailed, job.Name, status.State, status.Message)
			}
			slog.Debug("Batch still running", "job", job.Name, "state", status.State)
		case IsThrottle(err):
			throttled++
			if throttled >= maxThrottles {
				return status, fmt.Errorf("poll batch %s: throttled %d times: %w", job.Name, throttled, err)
			}
			slog.Warn("Batch poll throttled", "job", job.Name, "attempt", throttled, "max", maxThrottles)
		default:
			return status, fmt.Errorf("poll batch %s: %w", job.Name, err)
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
