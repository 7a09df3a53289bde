package syncer

import (
	"fmt"
	"log/slog"
)

// Stats summarizes a run.
type Stats struct {
	Total        int
	Processed    int
	SkippedFresh int
	SkippedEmpty int
	Errors       int
	CacheHits    int
	// Anomalies are conditions worth reporting that are not tied to one card,
	// such as a batch returning fewer results than submitted.
	Anomalies []string
	Failures  []*RecordError
}

func (s *Stats) String() string {
	return fmt.Sprintf("total=%d processed=%d skipped_fresh=%d skipped_empty=%d errors=%d cache_hits=%d",
		s.Total, s.Processed, s.SkippedFresh, s.SkippedEmpty, s.Errors, s.CacheHits)
}

// record counts the outcome of one card that needed audio.
func (s *Stats) record(it *item, err error) {
	if err != nil {
		s.fail(it, err)
		return
	}
	s.Processed++
}

func (s *Stats) fail(it *item, err error) {
	re := &RecordError{CardID: it.card.CardID, NoteID: it.card.UpdateID(), Err: err}
	s.Errors++
	s.Failures = append(s.Failures, re)
	it.log().Error("Card failed", "error", err)
}

func (s *Stats) anomaly(msg string, args ...any) {
	s.Anomalies = append(s.Anomalies, fmt.Sprintf(msg, args...))
	slog.Warn("Anomaly", "detail", s.Anomalies[len(s.Anomalies)-1])
}
