package syncer

import (
	"context"
	"fmt"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
	"ankispeech/pkg/tts/azure"
	"ankispeech/pkg/tts/edgetts"
	"ankispeech/pkg/tts/fishaudio"
	"ankispeech/pkg/tts/gemini"
	"ankispeech/pkg/tts/google"
)

// NewTTSProvider returns a TTS provider based on configuration.
func NewTTSProvider(ctx context.Context, cfg *config.TTSConfig, t *tracker.Tracker) (tts.Provider, error) {
	switch cfg.Engine {
	case config.EngineGemini, "":
		return gemini.NewProvider(ctx, cfg.Gemini, t)
	case config.EngineGoogle:
		return google.NewProvider(ctx, cfg.Google, t)
	case config.EngineAzure, "azure":
		return azure.NewProvider(cfg.AzureSpeech, t), nil
	case config.EngineFishAudio, "fishaudio":
		return fishaudio.NewProvider(cfg.FishAudio, t), nil
	case config.EngineEdgeTTS, "edge":
		return edgetts.NewProvider(cfg.EdgeTTS, t), nil
	default:
		return nil, fmt.Errorf("%w: unknown tts engine: %s", ErrConfig, cfg.Engine)
	}
}

// ProviderID returns the identifier an engine will report without creating
// a client. Preview uses it so no credentials are needed.
func ProviderID(cfg *config.TTSConfig) string {
	switch cfg.Engine {
	case config.EngineGemini, "":
		model := cfg.Gemini.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		return tts.ProviderID(config.EngineGemini, model)
	case config.EngineGoogle:
		return tts.ProviderID(config.EngineGoogle, google.Language(cfg.Google))
	case config.EngineAzure, "azure":
		return tts.ProviderID(config.EngineAzure, cfg.AzureSpeech.Region)
	case config.EngineFishAudio, "fishaudio":
		return tts.ProviderID(config.EngineFishAudio, cfg.FishAudio.Model)
	case config.EngineEdgeTTS, "edge":
		return tts.ProviderID(config.EngineEdgeTTS, "")
	}
	return cfg.Engine
}
