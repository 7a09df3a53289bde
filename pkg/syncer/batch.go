package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ankispeech/pkg/tts"
)

const defaultPollInterval = 30 * time.Second

// processBatch submits every pending card in one remote job and fans the
// results back out by position.
func (s *Syncer) processBatch(ctx context.Context, bp tts.BatchProvider, pending []*item, st *Stats) {
	reqs := make([]tts.Request, len(pending))
	for i, it := range pending {
		reqs[i] = tts.Request{
			Key:    fmt.Sprintf("card-%d", it.card.CardID),
			Prompt: it.prompt(),
			Voice:  it.persona.Voice,
		}
	}

	results, err := s.runBatch(ctx, bp, reqs)
	if err != nil {
		if tts.IsFatalError(err) {
			s.fatal = err
		}
		for _, it := range pending {
			st.fail(it, fmt.Errorf("%w: %w", ErrBackend, err))
		}
		return
	}

	if len(results) != len(pending) {
		st.anomaly("batch returned %d results for %d prompts", len(results), len(pending))
	}

	for i, it := range pending {
		if err := ctx.Err(); err != nil {
			st.fail(it, err)
			continue
		}
		if i >= len(results) {
			st.fail(it, fmt.Errorf("%w: no result at position %d", ErrBatchCountMismatch, i))
			continue
		}
		res := results[i]
		if res.Err != nil {
			st.fail(it, fmt.Errorf("%w: %w", ErrBackend, res.Err))
			continue
		}
		if err := tts.CheckAudio(res.Audio); err != nil {
			st.fail(it, fmt.Errorf("%w: %w", ErrBackend, err))
			continue
		}
		st.record(it, s.finish(ctx, it, res.Audio))
	}
}

func (s *Syncer) runBatch(ctx context.Context, bp tts.BatchProvider, reqs []tts.Request) ([]tts.Result, error) {
	job, err := tts.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryDelay, func(ctx context.Context) (tts.Job, error) {
		return bp.SubmitBatch(ctx, reqs)
	})
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	slog.Info("Batch submitted", "job", job.Name, "prompts", len(reqs))

	interval := s.opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	start := time.Now()
	if _, err := tts.WaitBatch(ctx, bp, job, interval, s.opts.RetryAttempts); err != nil {
		return nil, err
	}
	slog.Info("Batch finished", "job", job.Name, "took", time.Since(start).Round(time.Second))

	return tts.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryDelay, func(ctx context.Context) ([]tts.Result, error) {
		return bp.FetchResults(ctx, job)
	})
}
