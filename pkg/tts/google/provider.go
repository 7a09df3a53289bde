// Package google synthesizes speech with Google Cloud Text-to-Speech.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ankispeech/pkg/config"
	"ankispeech/pkg/prompt"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

// synthesizer is the subset of the Cloud TTS client used here.
type synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *ttspb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*ttspb.SynthesizeSpeechResponse, error)
}

// Provider implements tts.Provider for Google Cloud Text-to-Speech.
type Provider struct {
	client   synthesizer
	closer   func() error
	language string
	rate     float64
	tracker  *tracker.Tracker
}

// NewProvider creates a Cloud TTS client using the credentials file, or
// application default credentials when none is configured.
func NewProvider(ctx context.Context, cfg config.GoogleConfig, t *tracker.Tracker) (*Provider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := gctts.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google tts: create client: %w", err)
	}
	p := newProvider(c, cfg, t)
	p.closer = c.Close
	return p, nil
}

func newProvider(c synthesizer, cfg config.GoogleConfig, t *tracker.Tracker) *Provider {
	return &Provider{client: c, language: Language(cfg), rate: cfg.SpeakingRate, tracker: t}
}

// Language returns the configured language code, defaulting to en-US.
func Language(cfg config.GoogleConfig) string {
	if cfg.LanguageCode == "" {
		return "en-US"
	}
	return cfg.LanguageCode
}

// Close releases the underlying connection.
func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// ID implements tts.Provider.
func (p *Provider) ID() string {
	return tts.ProviderID(config.EngineGoogle, p.language)
}

// Synthesize implements tts.Provider. The voice is a Cloud TTS voice name
// such as "en-US-Neural2-C"; the language is derived from it when possible.
// Phoneme hints are sent as SSML; the style directive is not spoken.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*tts.Audio, error) {
	_, body := prompt.SplitDirective(text)
	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: "<speak>" + prompt.SSML(body) + "</speak>"}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: languageOf(voice, p.language),
			Name:         voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  p.rate,
		},
	}

	started := time.Now()
	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		tts.Log("GOOGLE", voice, text, 0, err)
		return nil, p.classify(err)
	}
	slog.Debug("Google TTS synthesize completed", "took", time.Since(started).String())

	audio := &tts.Audio{Data: resp.GetAudioContent(), Format: tts.FormatMP3, Channels: 1}
	if err := tts.CheckAudio(audio); err != nil {
		tts.Log("GOOGLE", voice, text, 200, err)
		p.tracker.TrackEmptyAudio(p.ID())
		return nil, err
	}

	tts.Log("GOOGLE", voice, text, 200, nil)
	p.tracker.TrackAPISuccess(p.ID())
	return audio, nil
}

func (p *Provider) classify(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		p.tracker.TrackThrottle(p.ID())
		return &tts.ThrottleError{Provider: p.ID(), Err: err}
	case codes.Unauthenticated, codes.PermissionDenied:
		p.tracker.TrackAPIFailure(p.ID())
		return tts.NewFatalError(403, fmt.Sprintf("google tts auth failed: %v", err))
	default:
		p.tracker.TrackAPIFailure(p.ID())
		return fmt.Errorf("google tts: %w", err)
	}
}

// languageOf returns the "xx-YY" prefix of a voice name, or fallback.
func languageOf(voice, fallback string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	return fallback
}
