package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ankispeech/pkg/config"
	"ankispeech/pkg/logging"
	"ankispeech/pkg/version"
)

const defaultConfigPath = "configs/ankispeech.yaml"

// globalFlags are the persistent flags shared by every command. Values only
// override the config file when the flag was given.
type globalFlags struct {
	config    string
	bitrate   string
	speed     float64
	engine    string
	keepLocal bool
	trace     bool
	fields    struct {
		sentence, speaker, emotion, source, audio, regenerate string
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "ankispeech",
		Short: "Keep Anki card audio in sync with card text",
		Long: `ankispeech generates spoken audio for Anki notes through AnkiConnect.

Audio is only regenerated when something that shapes it changes: the text,
the speaker persona, the emotion, pronunciation overrides or audio settings.

Examples:
  ankispeech process "Spanish::Sentences"
  ankispeech preview "Spanish::Sentences" --limit 5
  ankispeech persona add Tutor Kore "Say in a warm, patient voice:"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindGlobalFlags(root.PersistentFlags(), g)

	root.AddCommand(
		newProcessCmd(g),
		newPreviewCmd(g),
		newDecksCmd(g),
		newPersonaCmd(g),
		newHistoryCmd(g),
		newSayCmd(g),
		newInitConfigCmd(g),
	)
	return root
}

func bindGlobalFlags(pf *pflag.FlagSet, g *globalFlags) {
	pf.StringVar(&g.config, "config", defaultConfigPath, "config file")
	pf.StringVar(&g.bitrate, "bitrate", "", "MP3 bitrate (64k, 128k, 192k, 320k)")
	pf.Float64Var(&g.speed, "speed", 0, "playback speed multiplier")
	pf.StringVar(&g.engine, "engine", "", "speech backend")
	pf.BoolVar(&g.keepLocal, "keep-local-files", false, "keep a copy of every MP3 in the output directory")
	pf.BoolVar(&g.trace, "trace", false, "log the full plan for every card")
	pf.StringVar(&g.fields.sentence, "sentence-field", "", "note field holding the text to speak")
	pf.StringVar(&g.fields.speaker, "speaker-field", "", "note field naming the speaker")
	pf.StringVar(&g.fields.emotion, "emotion-field", "", "note field holding the emotion")
	pf.StringVar(&g.fields.source, "source-field", "", "note field holding the source citation")
	pf.StringVar(&g.fields.audio, "audio-field", "", "note field receiving the audio reference")
	pf.StringVar(&g.fields.regenerate, "regenerate-field", "", "note field that forces regeneration when set")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(g *globalFlags, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, g, flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.EnableTrace = g.trace
	return cfg, nil
}

func applyFlags(cfg *config.Config, g *globalFlags, flags *pflag.FlagSet) {
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("bitrate", &cfg.Audio.Bitrate, g.bitrate)
	set("engine", &cfg.TTS.Engine, g.engine)
	set("sentence-field", &cfg.Fields.Sentence, g.fields.sentence)
	set("speaker-field", &cfg.Fields.Speaker, g.fields.speaker)
	set("emotion-field", &cfg.Fields.Emotion, g.fields.emotion)
	set("source-field", &cfg.Fields.Source, g.fields.source)
	set("audio-field", &cfg.Fields.Audio, g.fields.audio)
	set("regenerate-field", &cfg.Fields.Regenerate, g.fields.regenerate)
	if flags.Changed("speed") {
		cfg.Audio.Speed = g.speed
	}
	if flags.Changed("keep-local-files") {
		cfg.Audio.KeepLocalFiles = g.keepLocal
	}
	// Trace lines are DEBUG records.
	if g.trace {
		cfg.Log.App.Level = "DEBUG"
	}
}

func newInitConfigCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.GenerateDefault(g.config); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", g.config)
			return nil
		},
	}
}
