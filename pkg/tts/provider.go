package tts

import (
	"context"
	"errors"
	"fmt"
)

// Format identifies the encoding of synthesized audio.
type Format string

const (
	// FormatPCM is raw signed 16-bit little-endian samples.
	FormatPCM Format = "pcm"
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// Audio is the raw output of a backend.
type Audio struct {
	Data       []byte
	Format     Format
	SampleRate int
	Channels   int
}

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// ID identifies the backend and model. It is part of the content
	// fingerprint, so changing it invalidates existing audio.
	ID() string

	// Synthesize renders prompt with the given voice.
	Synthesize(ctx context.Context, prompt, voice string) (*Audio, error)
}

// Request is a single entry of a batch submission.
type Request struct {
	Key    string
	Prompt string
	Voice  string
}

// Result is the outcome for one batch position. Exactly one of Audio and Err
// is set.
type Result struct {
	Audio *Audio
	Err   error
}

// Job is a handle to a submitted batch.
type Job struct {
	Name  string
	Count int
}

// JobState is the lifecycle of a remote batch.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
	JobExpired   JobState = "expired"
)

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled, JobExpired:
		return true
	}
	return false
}

// JobStatus is the result of polling a batch.
type JobStatus struct {
	State   JobState
	Message string
}

// BatchProvider is implemented by backends that accept many prompts in one
// remote job.
type BatchProvider interface {
	Provider
	SubmitBatch(ctx context.Context, reqs []Request) (Job, error)
	Poll(ctx context.Context, job Job) (JobStatus, error)
	FetchResults(ctx context.Context, job Job) ([]Result, error)
}

var (
	// ErrEmptyAudio means the backend answered successfully without audio.
	// It is never retried.
	ErrEmptyAudio = errors.New("backend returned no audio")
	// ErrBatchFailed means a batch job ended in a non-success state.
	ErrBatchFailed = errors.New("batch job failed")
)

// ThrottleError marks a rate-limit response. Retry treats it as transient.
type ThrottleError struct {
	Provider string
	Err      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("%s: rate limited: %v", e.Provider, e.Err)
}

func (e *ThrottleError) Unwrap() error { return e.Err }

// IsThrottle reports whether err is or wraps a ThrottleError.
func IsThrottle(err error) bool {
	var te *ThrottleError
	return errors.As(err, &te)
}

// FatalError represents a backend failure that retrying cannot fix, such as
// rejected credentials.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if an error is or wraps a FatalError.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
