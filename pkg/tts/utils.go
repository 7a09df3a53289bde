package tts

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSampleRate is the PCM rate produced by the Gemini speech models.
	DefaultSampleRate = 24000
	// MinAudioSize is the smallest encoded payload accepted from a backend.
	// Anything shorter is treated as a failed synthesis.
	MinAudioSize = 64
)

// CheckAudio rejects missing or truncated payloads with ErrEmptyAudio.
func CheckAudio(a *Audio) error {
	if a == nil || len(a.Data) == 0 {
		return ErrEmptyAudio
	}
	if a.Format != FormatPCM && len(a.Data) < MinAudioSize {
		return fmt.Errorf("%w: %d bytes of %s", ErrEmptyAudio, len(a.Data), a.Format)
	}
	return nil
}

// PCMDuration returns the playback length of 16-bit PCM audio.
func PCMDuration(a *Audio) time.Duration {
	if a == nil || a.Format != FormatPCM || a.SampleRate <= 0 {
		return 0
	}
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}
	samples := len(a.Data) / (2 * ch)
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// ProviderID joins a backend name and model into the identifier used for
// fingerprints.
func ProviderID(engine, model string) string {
	engine = strings.ToLower(strings.TrimSpace(engine))
	model = strings.TrimSpace(model)
	if model == "" {
		return engine
	}
	return engine + "/" + model
}
