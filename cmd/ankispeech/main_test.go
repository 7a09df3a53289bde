package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ankispeech/pkg/config"
	"ankispeech/pkg/model"
	"ankispeech/pkg/persona"
	"ankispeech/pkg/store"
	"ankispeech/pkg/syncer"
)

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	g := &globalFlags{}
	bindGlobalFlags(fs, g)
	require.NoError(t, fs.Parse([]string{"--bitrate", "128k", "--speed", "1.25", "--audio-field", "Sound", "--keep-local-files"}))

	cfg := config.DefaultConfig()
	applyFlags(cfg, g, fs)

	assert.Equal(t, "128k", cfg.Audio.Bitrate)
	assert.Equal(t, 1.25, cfg.Audio.Speed)
	assert.Equal(t, "Sound", cfg.Fields.Audio)
	assert.True(t, cfg.Audio.KeepLocalFiles)

	// Flags that were not given leave the config alone.
	assert.Equal(t, config.EngineGemini, cfg.TTS.Engine)
	assert.Equal(t, "Expression", cfg.Fields.Sentence)
	assert.Equal(t, "INFO", cfg.Log.App.Level)
}

func TestApplyFlags_TraceLowersLogLevel(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	g := &globalFlags{}
	bindGlobalFlags(fs, g)
	require.NoError(t, fs.Parse([]string{"--trace"}))

	cfg := config.DefaultConfig()
	applyFlags(cfg, g, fs)
	assert.Equal(t, "DEBUG", cfg.Log.App.Level)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Go?"), "input %q", tt.input)
		assert.Equal(t, "Go? [y/N]: ", out.String())
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "ankispeech.yaml")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"init-config", "--config", path})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine:")
	assert.Contains(t, out.String(), path)
}

func TestAddPersona(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Files.Personas = filepath.Join(t.TempDir(), "characters.json")

	var out bytes.Buffer
	require.NoError(t, addPersona(&out, cfg, model.Persona{Name: "Tutor", Voice: "Kore", PromptPrefix: "Say warmly:"}))
	assert.NotContains(t, out.String(), "Warning")

	out.Reset()
	require.NoError(t, addPersona(&out, cfg, model.Persona{Name: "Robot", Voice: "HAL"}))
	assert.Contains(t, out.String(), `"HAL" is not a known Gemini voice`)

	tbl, err := persona.Load(cfg.Files.Personas)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	err = addPersona(&out, cfg, model.Persona{Name: "Nobody"})
	assert.ErrorIs(t, err, persona.ErrInvalid)
}

func TestAddPersona_NoVoiceCheckForOtherEngines(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TTS.Engine = config.EngineAzure
	cfg.Files.Personas = filepath.Join(t.TempDir(), "characters.json")

	var out bytes.Buffer
	require.NoError(t, addPersona(&out, cfg, model.Persona{Name: "Ava", Voice: "en-US-AvaMultilingualNeural"}))
	assert.NotContains(t, out.String(), "Warning")
}

func TestPrintSummary(t *testing.T) {
	st := &syncer.Stats{
		Total: 4, Processed: 2, SkippedFresh: 1, Errors: 1, CacheHits: 1,
		Anomalies: []string{"batch returned 1 results for 2 prompts"},
		Failures:  []*syncer.RecordError{{CardID: 7, NoteID: 70, Err: errors.New("boom")}},
	}
	var out bytes.Buffer
	printSummary(&out, st)

	s := out.String()
	assert.Contains(t, s, "Processed:      2")
	assert.Contains(t, s, "From cache:     1")
	assert.Contains(t, s, "Warning: batch returned 1 results for 2 prompts")
	assert.Contains(t, s, "Failed: card 7 (note 70): boom")
}

func TestPrintPreview(t *testing.T) {
	items := []syncer.PreviewItem{
		{CardID: 1, State: syncer.Stale, Speaker: "Tutor", Voice: "Kore", Text: "a foo b",
			Overrides: []model.OverridePair{{Original: "foo", Replacement: "bar"}},
			Reference: "[sound:speech_0123456789abcdef.mp3]", Prompt: "Say warmly:\na foo b"},
		{CardID: 2, State: syncer.SkipEmpty},
	}

	var out bytes.Buffer
	printPreview(&out, items, true)
	s := out.String()
	assert.Contains(t, s, "foo=bar")
	assert.Contains(t, s, "2 cards: 1 stale, 0 forced, 0 up to date, 1 without text")
	assert.Contains(t, s, "--- card 1 -> [sound:speech_0123456789abcdef.mp3]")
	assert.NotContains(t, s, "--- card 2")

	out.Reset()
	printPreview(&out, nil, false)
	assert.Equal(t, "No cards found.\n", out.String())
}

func TestPrintRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printRuns(&out, []store.Run{{
		Query: `deck:"Spanish"`, Provider: "gemini/gemini-2.5-flash-preview-tts",
		StartedAt: start, FinishedAt: start.Add(90 * time.Second), Total: 10, Processed: 3,
	}})
	assert.Contains(t, out.String(), `deck:"Spanish"`)
	assert.Contains(t, out.String(), "1m30s")

	out.Reset()
	printRuns(&out, nil)
	assert.Equal(t, "No runs recorded.\n", out.String())
}
