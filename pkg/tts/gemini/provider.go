// Package gemini synthesizes speech with the Gemini TTS models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash-preview-tts"

// modelsAPI is the subset of genai.Models used for synthesis.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// batchesAPI is the subset of genai.Batches used for batch jobs.
type batchesAPI interface {
	Create(ctx context.Context, model string, src *genai.BatchJobSource, config *genai.CreateBatchJobConfig) (*genai.BatchJob, error)
	Get(ctx context.Context, name string, config *genai.GetBatchJobConfig) (*genai.BatchJob, error)
}

// backend is one credentialed connection.
type backend struct {
	models  modelsAPI
	batches batchesAPI
}

// Provider implements tts.Provider and tts.BatchProvider for Gemini.
type Provider struct {
	model   string
	pool    *tts.KeyPool[*backend]
	tracker *tracker.Tracker

	mu   sync.Mutex
	jobs map[string]*backend // batch jobs are bound to the key that created them
}

// NewProvider creates one genai client per configured key.
func NewProvider(ctx context.Context, cfg config.GeminiConfig, t *tracker.Tracker) (*Provider, error) {
	keys := cfg.APIKeys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEYS or GEMINI_API_KEY)", tts.ErrNoKeys)
	}

	backends := make([]*backend, 0, len(keys))
	var first *genai.Client
	for _, key := range keys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		if first == nil {
			first = client
		}
		backends = append(backends, &backend{models: client.Models, batches: client.Batches})
	}

	p, err := newProvider(cfg.Model, t, backends...)
	if err != nil {
		return nil, err
	}

	if err := validateModel(ctx, first, p.model); err != nil {
		slog.Warn("Gemini model validation failed (proceeding anyway)", "error", err)
	}
	slog.Info("Gemini TTS ready", "model", p.model, "keys", len(keys))
	return p, nil
}

func newProvider(model string, t *tracker.Tracker, backends ...*backend) (*Provider, error) {
	pool, err := tts.NewKeyPool(backends...)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		model:   model,
		pool:    pool,
		tracker: t,
		jobs:    make(map[string]*backend),
	}, nil
}

// ID implements tts.Provider.
func (p *Provider) ID() string {
	return tts.ProviderID(config.EngineGemini, p.model)
}

// Synthesize implements tts.Provider. A throttled key is rotated out so the
// next attempt uses the following key.
func (p *Provider) Synthesize(ctx context.Context, prompt, voice string) (*tts.Audio, error) {
	b, idx := p.pool.Current()

	resp, err := b.models.GenerateContent(ctx, p.model, genai.Text(prompt), speechConfig(voice))
	if err != nil {
		tts.Log("GEMINI", voice, prompt, statusCode(err), err)
		return nil, p.classify(err, idx)
	}

	audio, err := audioFromResponse(resp)
	if err != nil {
		tts.Log("GEMINI", voice, prompt, http.StatusOK, err)
		p.tracker.TrackEmptyAudio(p.ID())
		return nil, err
	}

	tts.Log("GEMINI", voice, prompt, http.StatusOK, nil)
	p.tracker.TrackAPISuccess(p.ID())
	return audio, nil
}

func (p *Provider) classify(err error, idx int) error {
	code := statusCode(err)
	switch {
	case code == http.StatusTooManyRequests:
		p.tracker.TrackThrottle(p.ID())
		// idx < 0 means the call was pinned to a job's key, not the pool's.
		if idx >= 0 && p.pool.Len() > 1 {
			_, next := p.pool.Rotate()
			slog.Warn("Gemini key throttled, rotating", "from", idx, "to", next)
		}
		return &tts.ThrottleError{Provider: p.ID(), Err: err}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		p.tracker.TrackAPIFailure(p.ID())
		return tts.NewFatalError(code, fmt.Sprintf("gemini auth failed (key %d): %v", idx, err))
	default:
		p.tracker.TrackAPIFailure(p.ID())
		return fmt.Errorf("gemini generate: %w", err)
	}
}

func speechConfig(voice string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}
}

// audioFromResponse pulls the first inline audio part from resp.
func audioFromResponse(resp *genai.GenerateContentResponse) (*tts.Audio, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, tts.ErrEmptyAudio
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		format, rate := parseMIME(part.InlineData.MIMEType)
		return &tts.Audio{
			Data:       part.InlineData.Data,
			Format:     format,
			SampleRate: rate,
			Channels:   1,
		}, nil
	}
	return nil, tts.ErrEmptyAudio
}

// parseMIME reads formats like "audio/L16;codec=pcm;rate=24000".
func parseMIME(mime string) (tts.Format, int) {
	mime = strings.ToLower(mime)
	format := tts.FormatPCM
	switch {
	case strings.Contains(mime, "wav"):
		format = tts.FormatWAV
	case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
		format = tts.FormatMP3
	}

	rate := tts.DefaultSampleRate
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || k != "rate" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rate = n
		}
	}
	return format, rate
}

// statusCode extracts the HTTP status from a genai error, or 0.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	if err != nil && strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return http.StatusTooManyRequests
	}
	return 0
}

// validateModel checks if the configured model is available for the API key.
func validateModel(ctx context.Context, client *genai.Client, model string) error {
	name := model
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	_, err := client.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", model)
		return nil
	}

	slog.Warn("Gemini model validation failed, fetching available models...", "model", model, "error", err)

	page, listErr := client.Models.List(ctx, nil)
	if listErr != nil {
		return fmt.Errorf("list models: %w", listErr)
	}

	var available []string
	for {
		for _, m := range page.Items {
			if strings.Contains(strings.ToLower(m.Name), "tts") {
				available = append(available, m.Name)
			}
		}
		next, nextErr := page.Next(ctx)
		if nextErr == iterator.Done || nextErr != nil {
			break
		}
		page = next
	}

	slog.Error("Configured model not found", "configured", model)
	for _, m := range available {
		slog.Error("- " + m)
	}
	return nil
}
