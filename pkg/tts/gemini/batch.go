package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"ankispeech/pkg/tts"
)

// SubmitBatch implements tts.BatchProvider. All requests are inlined into a
// single job; results come back in submission order.
func (p *Provider) SubmitBatch(ctx context.Context, reqs []tts.Request) (tts.Job, error) {
	if len(reqs) == 0 {
		return tts.Job{}, fmt.Errorf("gemini batch: no requests")
	}

	inlined := make([]*genai.InlinedRequest, 0, len(reqs))
	for _, r := range reqs {
		inlined = append(inlined, &genai.InlinedRequest{
			Model:    p.model,
			Contents: genai.Text(r.Prompt),
			Config:   speechConfig(r.Voice),
		})
	}

	b, idx := p.pool.Current()
	displayName := "ankispeech-" + uuid.NewString()
	job, err := b.batches.Create(ctx, p.model, &genai.BatchJobSource{InlinedRequests: inlined},
		&genai.CreateBatchJobConfig{DisplayName: displayName})
	if err != nil {
		tts.Log("GEMINI-BATCH", "", fmt.Sprintf("%d requests (%s)", len(reqs), displayName), statusCode(err), err)
		return tts.Job{}, p.classify(err, idx)
	}

	p.mu.Lock()
	p.jobs[job.Name] = b
	p.mu.Unlock()

	tts.Log("GEMINI-BATCH", "", fmt.Sprintf("%d requests (%s) -> %s", len(reqs), displayName, job.Name), 200, nil)
	slog.Info("Gemini batch submitted", "job", job.Name, "requests", len(reqs))
	return tts.Job{Name: job.Name, Count: len(reqs)}, nil
}

// Poll implements tts.BatchProvider.
func (p *Provider) Poll(ctx context.Context, job tts.Job) (tts.JobStatus, error) {
	b, idx := p.backendFor(job)
	bj, err := b.batches.Get(ctx, job.Name, nil)
	if err != nil {
		return tts.JobStatus{}, p.classify(err, idx)
	}
	status := tts.JobStatus{State: mapState(string(bj.State))}
	if bj.Error != nil {
		status.Message = bj.Error.Message
	}
	return status, nil
}

// FetchResults implements tts.BatchProvider. Per-position failures are
// returned as Result.Err; the slice length is whatever the service returned.
func (p *Provider) FetchResults(ctx context.Context, job tts.Job) ([]tts.Result, error) {
	b, idx := p.backendFor(job)
	bj, err := b.batches.Get(ctx, job.Name, nil)
	if err != nil {
		return nil, p.classify(err, idx)
	}
	if bj.Dest == nil {
		return nil, fmt.Errorf("gemini batch %s: no inline destination", job.Name)
	}

	results := make([]tts.Result, 0, len(bj.Dest.InlinedResponses))
	for i, r := range bj.Dest.InlinedResponses {
		results = append(results, resultFrom(i, r))
	}

	p.mu.Lock()
	delete(p.jobs, job.Name)
	p.mu.Unlock()
	return results, nil
}

func resultFrom(pos int, r *genai.InlinedResponse) tts.Result {
	if r == nil {
		return tts.Result{Err: fmt.Errorf("position %d: %w", pos, tts.ErrEmptyAudio)}
	}
	if r.Error != nil {
		return tts.Result{Err: fmt.Errorf("position %d: %s", pos, r.Error.Message)}
	}
	audio, err := audioFromResponse(r.Response)
	if err != nil {
		return tts.Result{Err: fmt.Errorf("position %d: %w", pos, err)}
	}
	return tts.Result{Audio: audio}
}

func (p *Provider) backendFor(job tts.Job) (*backend, int) {
	p.mu.Lock()
	b, ok := p.jobs[job.Name]
	p.mu.Unlock()
	if ok {
		return b, -1
	}
	return p.pool.Current()
}

// mapState accepts both JOB_STATE_* and BATCH_STATE_* spellings.
func mapState(s string) tts.JobState {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "JOB_STATE_"), "BATCH_STATE_")
	switch s {
	case "SUCCEEDED":
		return tts.JobSucceeded
	case "FAILED":
		return tts.JobFailed
	case "CANCELLED":
		return tts.JobCancelled
	case "EXPIRED":
		return tts.JobExpired
	case "RUNNING":
		return tts.JobRunning
	default:
		return tts.JobPending
	}
}
