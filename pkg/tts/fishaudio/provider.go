// Package fishaudio synthesizes speech with the Fish Audio HTTP API.
package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ankispeech/pkg/config"
	"ankispeech/pkg/prompt"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

const (
	apiURL = "https://api.fish.audio/v1/tts"
)

// Provider implements tts.Provider for Fish Audio.
type Provider struct {
	apiKey  string
	voiceID string // fallback reference_id
	modelID string
	url     string
	client  *http.Client
	tracker *tracker.Tracker
}

// NewProvider creates a new Fish Audio TTS provider.
func NewProvider(cfg config.FishAudioConfig, t *tracker.Tracker) *Provider {
	return &Provider{
		apiKey:  cfg.Key,
		voiceID: cfg.VoiceID,
		modelID: cfg.Model,
		url:     apiURL,
		client:  &http.Client{},
		tracker: t,
	}
}

type requestBody struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id"`
	Format      string `json:"format"`
	Mp3Bitrate  int    `json:"mp3_bitrate,omitempty"`
	Latency     string `json:"latency,omitempty"`
}

// ID implements tts.Provider.
func (p *Provider) ID() string {
	return tts.ProviderID(config.EngineFishAudio, p.modelID)
}

// Synthesize implements tts.Provider. The voice is a Fish Audio reference id;
// the configured voice is used when it is empty. Only the spoken body is
// sent, without phoneme hints.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*tts.Audio, error) {
	_, body := prompt.SplitDirective(text)
	spoken := prompt.PlainText(body)

	vid := p.voiceID
	if voice != "" {
		vid = voice
	}
	if vid == "" {
		return nil, fmt.Errorf("no voice ID configured for Fish Audio")
	}

	jsonData, err := json.Marshal(requestBody{
		Text:        spoken,
		ReferenceID: vid,
		Format:      "mp3",
		Mp3Bitrate:  128,
		Latency:     "normal",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := p.execute(ctx, jsonData, vid, spoken)
	if err != nil {
		return nil, err
	}
	p.tracker.TrackAPISuccess(p.ID())
	return &tts.Audio{Data: data, Format: tts.FormatMP3, Channels: 1}, nil
}

func (p *Provider) execute(ctx context.Context, jsonData []byte, voice, text string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if p.modelID != "" {
		req.Header.Set("model", p.modelID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		tts.Log("FISH", voice, text, 0, err)
		p.tracker.TrackAPIFailure(p.ID())
		return nil, fmt.Errorf("fish audio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		tts.Log("FISH", voice, text, resp.StatusCode, nil)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			p.tracker.TrackThrottle(p.ID())
			return nil, &tts.ThrottleError{Provider: p.ID(), Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			p.tracker.TrackAPIFailure(p.ID())
			return nil, tts.NewFatalError(resp.StatusCode, fmt.Sprintf("Fish Audio Auth Failed: %s", msg))
		default:
			p.tracker.TrackAPIFailure(p.ID())
			return nil, fmt.Errorf("fish audio api error (status %d): %s", resp.StatusCode, msg)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		tts.Log("FISH", voice, text, resp.StatusCode, err)
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		tts.Log("FISH", voice, "Received empty audio (0 bytes)", resp.StatusCode, nil)
		p.tracker.TrackEmptyAudio(p.ID())
		return nil, tts.ErrEmptyAudio
	}

	tts.Log("FISH", voice, text, resp.StatusCode, nil)
	return data, nil
}
