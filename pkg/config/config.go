package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"ankispeech/pkg/model"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Engines lists the supported TTS backends.
var Engines = []string{EngineGemini, EngineGoogle, EngineAzure, EngineFishAudio, EngineEdgeTTS}

const (
	EngineGemini    = "gemini"
	EngineGoogle    = "google"
	EngineAzure     = "azure-speech"
	EngineFishAudio = "fish-audio"
	EngineEdgeTTS   = "edge-tts"
)

// Bitrates lists the accepted MP3 bitrates.
var Bitrates = []string{"64k", "128k", "192k", "320k"}

// Config holds the application configuration.
type Config struct {
	Anki    AnkiConfig     `yaml:"anki"`
	Fields  model.FieldMap `yaml:"fields"`
	TTS     TTSConfig      `yaml:"tts"`
	Audio   AudioConfig    `yaml:"audio"`
	Files   FilesConfig    `yaml:"files"`
	Cache   CacheConfig    `yaml:"cache"`
	Log     LogConfig      `yaml:"log"`
	Request RequestConfig  `yaml:"request"`
}

// AnkiConfig holds the AnkiConnect endpoint.
type AnkiConfig struct {
	URL     string `yaml:"url" env:"ANKI_CONNECT_URL"`
	Version int    `yaml:"version"`
}

// TTSConfig selects and configures the speech backend.
type TTSConfig struct {
	Engine      string            `yaml:"engine" env:"TTS_ENGINE"`
	Retry       RetryConfig       `yaml:"retry"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Google      GoogleConfig      `yaml:"google"`
	AzureSpeech AzureSpeechConfig `yaml:"azure_speech"`
	FishAudio   FishAudioConfig   `yaml:"fish_audio"`
	EdgeTTS     EdgeTTSConfig     `yaml:"edge_tts"`
}

// RetryConfig bounds throttle retries with a fixed delay.
type RetryConfig struct {
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

// GeminiConfig holds Gemini speech settings. Keys rotate on throttling.
type GeminiConfig struct {
	Keys         []string `yaml:"keys" env:"GEMINI_API_KEYS" envSeparator:","`
	Key          string   `yaml:"key" env:"GEMINI_API_KEY"`
	Model        string   `yaml:"model"`
	Batch        bool     `yaml:"batch"`
	PollInterval Duration `yaml:"poll_interval"`
}

// APIKeys returns the de-duplicated, non-empty keys with Keys first.
func (g GeminiConfig) APIKeys() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range append(append([]string{}, g.Keys...), g.Key) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// GoogleConfig holds Google Cloud Text-to-Speech settings.
type GoogleConfig struct {
	CredentialsFile string  `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	LanguageCode    string  `yaml:"language_code"`
	SpeakingRate    float64 `yaml:"speaking_rate"`
}

// AzureSpeechConfig holds Azure Speech settings.
type AzureSpeechConfig struct {
	Key      string `yaml:"key" env:"AZURE_SPEECH_KEY"`
	Region   string `yaml:"region" env:"AZURE_SPEECH_REGION"`
	VoiceID  string `yaml:"voice_id"`
	Language string `yaml:"language"`
}

// FishAudioConfig holds Fish Audio settings.
type FishAudioConfig struct {
	Key     string `yaml:"key" env:"FISH_AUDIO_API_KEY"`
	Model   string `yaml:"model"`
	VoiceID string `yaml:"voice_id"`
}

// EdgeTTSConfig holds Edge TTS settings.
type EdgeTTSConfig struct {
	VoiceID string `yaml:"voice_id"`
}

// AudioConfig controls transcoding and local copies.
type AudioConfig struct {
	Bitrate        string  `yaml:"bitrate"`
	Speed          float64 `yaml:"speed"`
	FFmpeg         string  `yaml:"ffmpeg" env:"FFMPEG_PATH"`
	OutputDir      string  `yaml:"output_dir"`
	KeepLocalFiles bool    `yaml:"keep_local_files"`
}

// FilesConfig points at the JSON tables.
type FilesConfig struct {
	Personas  string `yaml:"personas"`
	Overrides string `yaml:"overrides"`
}

// CacheConfig controls the local audio cache.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path"`
	MaxAge  Duration `yaml:"max_age"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	App      LogSettings `yaml:"app"`
	Requests LogSettings `yaml:"requests"`
	TTS      LogSettings `yaml:"tts"`
	Runs     LogSettings `yaml:"runs"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Anki: AnkiConfig{
			URL:     "http://localhost:8765",
			Version: 6,
		},
		Fields: model.DefaultFieldMap(),
		TTS: TTSConfig{
			Engine: EngineGemini,
			Retry: RetryConfig{
				Attempts: 3,
				Delay:    Duration(10 * time.Second),
			},
			Gemini: GeminiConfig{
				Model:        "gemini-2.5-flash-preview-tts",
				PollInterval: Duration(30 * time.Second),
			},
			Google: GoogleConfig{
				LanguageCode: "en-US",
				SpeakingRate: 1.0,
			},
			AzureSpeech: AzureSpeechConfig{
				VoiceID:  "en-US-AvaMultilingualNeural",
				Language: "en-US",
			},
			FishAudio: FishAudioConfig{
				Model: "s1",
			},
			EdgeTTS: EdgeTTSConfig{
				VoiceID: "en-US-AvaMultilingualNeural",
			},
		},
		Audio: AudioConfig{
			Bitrate:   "64k",
			Speed:     1.0,
			FFmpeg:    "ffmpeg",
			OutputDir: "audio",
		},
		Files: FilesConfig{
			Personas:  "configs/characters.json",
			Overrides: "configs/pronunciation.json",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "data/ankispeech.db",
			MaxAge:  Duration(30 * Day),
		},
		Log: LogConfig{
			App:      LogSettings{Path: "logs/ankispeech.log", Level: "INFO"},
			Requests: LogSettings{Path: "logs/requests.log", Level: "INFO"},
			TTS:      LogSettings{Path: "logs/tts.log", Level: "INFO"},
			Runs:     LogSettings{Path: "logs/runs.log", Level: "INFO"},
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment variables override file values but are never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum and range settings.
func (c *Config) Validate() error {
	if !contains(Bitrates, c.Audio.Bitrate) {
		return fmt.Errorf("%w: bitrate %q must be one of %s", ErrInvalid, c.Audio.Bitrate, strings.Join(Bitrates, ", "))
	}
	if c.Audio.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalid, c.Audio.Speed)
	}
	if !contains(Engines, c.TTS.Engine) {
		return fmt.Errorf("%w: engine %q must be one of %s", ErrInvalid, c.TTS.Engine, strings.Join(Engines, ", "))
	}
	if c.TTS.Retry.Attempts < 1 {
		return fmt.Errorf("%w: tts.retry.attempts must be at least 1", ErrInvalid)
	}
	if c.Fields.Sentence == "" || c.Fields.Audio == "" {
		return fmt.Errorf("%w: sentence and audio field names are required", ErrInvalid)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ankispeech configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Secrets may be supplied via .env or the environment:
#   GEMINI_API_KEYS (comma separated), GEMINI_API_KEY, FISH_AUDIO_API_KEY,
#   AZURE_SPEECH_KEY, AZURE_SPEECH_REGION, ANKI_CONNECT_URL, TTS_ENGINE

`)
	data = append(header, data...)

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(Engines, ", ")+"\n${1}engine:"))

	reBitrate := regexp.MustCompile(`(?m)^(\s+)bitrate:`)
	data = reBitrate.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(Bitrates, ", ")+"\n${1}bitrate:"))

	reSpeed := regexp.MustCompile(`(?m)^(\s+)speed:`)
	data = reSpeed.ReplaceAll(data, []byte("${1}# Playback speed multiplier applied with ffmpeg atempo (1.0 = unchanged)\n${1}speed:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
