// Package probe runs the startup checks that decide whether a run can start.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 10 * time.Second

// Probe is one startup check. A failing critical probe stops the run; other
// failures only degrade it.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Err      error
	Duration time.Duration
}

// Run executes the probes in order. Each check gets its own timeout so a hung
// dependency cannot stall startup.
func Run(ctx context.Context, timeout time.Duration, probes []Probe) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Check(cctx)
		cancel()
		results[i] = Result{Probe: p, Err: err, Duration: time.Since(start)}
	}
	return results
}

// Analyze logs every result and joins the errors of failed critical probes.
func Analyze(results []Result) error {
	var critical []error
	for _, r := range results {
		took := r.Duration.Round(time.Millisecond)
		switch {
		case r.Err == nil:
			slog.Debug("Startup check passed", "check", r.Probe.Name, "took", took)
		case r.Probe.Critical:
			slog.Error("Startup check failed", "check", r.Probe.Name, "took", took, "error", r.Err)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Err))
		default:
			slog.Warn("Startup check failed, continuing without it", "check", r.Probe.Name, "error", r.Err)
		}
	}
	return errors.Join(critical...)
}

// Check runs the probes and returns the critical failures.
func Check(ctx context.Context, probes ...Probe) error {
	return Analyze(Run(ctx, DefaultTimeout, probes))
}
