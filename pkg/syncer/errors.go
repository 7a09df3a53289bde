package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContent marks a card without spoken text. It is counted as a skip.
	ErrNoContent = errors.New("card has no spoken text")
	// ErrConfig marks a card that cannot be handled with the current setup,
	// such as a note type lacking the audio field.
	ErrConfig = errors.New("configuration error")
	// ErrBackend wraps synthesis failures, including empty audio.
	ErrBackend = errors.New("synthesis failed")
	// ErrStore wraps record store failures.
	ErrStore = errors.New("record store error")
	// ErrTranscode wraps encoder failures.
	ErrTranscode = errors.New("transcode failed")
	// ErrBatchCountMismatch marks batch positions that received no result.
	ErrBatchCountMismatch = errors.New("batch result count mismatch")
)

// RecordError is a per-card failure. The run continues past it.
type RecordError struct {
	CardID int64
	NoteID int64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("card %d (note %d): %v", e.CardID, e.NoteID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
