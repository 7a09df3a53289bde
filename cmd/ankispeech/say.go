package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ankispeech/pkg/audio"
	"ankispeech/pkg/cache"
	"ankispeech/pkg/config"
	"ankispeech/pkg/override"
	"ankispeech/pkg/persona"
	"ankispeech/pkg/probe"
	"ankispeech/pkg/syncer"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/transcode"
)

type sayFlags struct {
	speaker  string
	emotion  string
	citation string
	out      string
	noPlay   bool
	volume   float64
}

func newSayCmd(g *globalFlags) *cobra.Command {
	f := &sayFlags{}

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Speak one line with a persona and play it",
		Long: `Synthesizes a single line the same way process would for a card with
that text, speaker, emotion and citation. Useful to audition personas and
pronunciation overrides before running a deck. Anki is not contacted.

Examples:
  ankispeech say "Hola, ¿qué tal?" --speaker Tutor --emotion cheerful
  ankispeech say "Durin's folk" --citation "FUR V1 P13" --out durin.mp3 --no-play`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			cleanup, err := startLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			s, closeStore, err := newSpeaker(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			start := time.Now()
			data, fp, err := s.Speak(ctx, syncer.Line{
				Text:     strings.Join(args, " "),
				Speaker:  f.speaker,
				Emotion:  f.emotion,
				Citation: f.citation,
			})
			if err != nil {
				return err
			}

			length, err := transcode.MP3Duration(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint %s, %s of audio in %s\n",
				fp, length.Round(time.Millisecond), time.Since(start).Round(time.Millisecond))

			if f.out != "" {
				if err := os.MkdirAll(filepath.Dir(f.out), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(f.out, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", f.out)
			}
			if f.noPlay {
				return nil
			}
			return audio.NewPlayer(f.volume).PlayMP3(ctx, data)
		},
	}

	cmd.Flags().StringVar(&f.speaker, "speaker", "", "persona name")
	cmd.Flags().StringVar(&f.emotion, "emotion", "", "emotion to speak with")
	cmd.Flags().StringVar(&f.citation, "citation", "", `source citation for scoped overrides, e.g. "FUR V1 P12"`)
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the MP3 to this file")
	cmd.Flags().BoolVar(&f.noPlay, "no-play", false, "do not play the audio")
	cmd.Flags().Float64Var(&f.volume, "volume", 1.0, "playback volume from 0 to 1")
	return cmd
}

// newSpeaker wires a Syncer for single lines: personas, overrides, backend,
// encoder and the audio cache when enabled.
func newSpeaker(ctx context.Context, cfg *config.Config) (*syncer.Syncer, func(), error) {
	closeStore := func() {}

	var personas *persona.Table
	encoder := transcode.New(cfg.Audio.FFmpeg)
	err := probe.Check(ctx,
		probe.Probe{Name: "Personas", Critical: true, Check: func(context.Context) error {
			var err error
			personas, err = persona.Load(cfg.Files.Personas)
			return err
		}},
		probe.Probe{Name: "ffmpeg", Critical: true, Check: encoder.AssertReady},
	)
	if err != nil {
		return nil, closeStore, err
	}

	t := tracker.New()
	backend, err := syncer.NewTTSProvider(ctx, &cfg.TTS, t)
	if err != nil {
		return nil, closeStore, err
	}

	deps := syncer.Deps{
		Backend:  backend,
		Encoder:  encoder,
		Personas: personas,
		Resolver: override.NewResolver(override.LoadOrEmpty(cfg.Files.Overrides)),
		Fields:   cfg.Fields,
	}
	if cfg.Cache.Enabled {
		st, err := openStore(ctx, cfg.Cache)
		if err != nil {
			slog.Warn("Audio cache unavailable", "path", cfg.Cache.Path, "error", err)
		} else {
			deps.Cache = cache.NewSQLiteCache(st, t, backend.ID())
			closeStore = func() { _ = st.Close() }
		}
	}

	s := syncer.New(deps, syncer.Options{
		Bitrate:       cfg.Audio.Bitrate,
		Speed:         cfg.Audio.Speed,
		RetryAttempts: cfg.TTS.Retry.Attempts,
		RetryDelay:    cfg.TTS.Retry.Delay.Std(),
	})
	return s, closeStore, nil
}
