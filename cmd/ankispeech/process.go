package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"ankispeech/pkg/anki"
	"ankispeech/pkg/cache"
	"ankispeech/pkg/logging"
	"ankispeech/pkg/override"
	"ankispeech/pkg/probe"
	"ankispeech/pkg/syncer"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/transcode"
)

func newProcessCmd(g *globalFlags) *cobra.Command {
	var force, batch, yes bool

	cmd := &cobra.Command{
		Use:   "process <deck>",
		Short: "Generate missing or outdated audio for a deck",
		Long: `Generates audio for every note in the deck whose stored audio no longer
matches its text, speaker, emotion, overrides or audio settings.

Examples:
  ankispeech process "Spanish::Sentences"
  ankispeech process "Spanish::Sentences" --force --yes
  ankispeech process "Spanish::Sentences" --batch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}

			encoder := transcode.New(cfg.Audio.FFmpeg)
			a, err := openApp(ctx, cfg, probe.Probe{Name: "ffmpeg", Critical: true, Check: encoder.AssertReady})
			if err != nil {
				return err
			}
			defer a.Close()

			backend, err := syncer.NewTTSProvider(ctx, &cfg.TTS, a.tracker)
			if err != nil {
				return err
			}

			query := anki.DeckQuery(args[0])
			ids, err := a.anki.Find(ctx, query)
			if err != nil {
				return fmt.Errorf("failed to search deck: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No cards found in deck %q.\n", args[0])
				return nil
			}

			if !yes {
				q := fmt.Sprintf("Check %d cards in %q with %s (bitrate %s, speed %gx, force %t)?",
					len(ids), args[0], backend.ID(), cfg.Audio.Bitrate, cfg.Audio.Speed, force)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), q) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			deps := syncer.Deps{
				Store:    a.anki,
				Backend:  backend,
				Encoder:  encoder,
				Personas: a.personas,
				Resolver: override.NewResolver(a.overrides),
				Fields:   cfg.Fields,
			}
			if a.store != nil {
				deps.Cache = cache.NewSQLiteCache(a.store, a.tracker, backend.ID())
				deps.Runs = a.store
			}

			s := syncer.New(deps, syncer.Options{
				Force:          force,
				Batch:          batch || cfg.TTS.Gemini.Batch,
				Bitrate:        cfg.Audio.Bitrate,
				Speed:          cfg.Audio.Speed,
				RetryAttempts:  cfg.TTS.Retry.Attempts,
				RetryDelay:     cfg.TTS.Retry.Delay.Std(),
				PollInterval:   cfg.TTS.Gemini.PollInterval.Std(),
				OutputDir:      cfg.Audio.OutputDir,
				KeepLocalFiles: cfg.Audio.KeepLocalFiles,
			})

			st, err := s.Process(ctx, query)
			logging.LogRun(logging.RunEvent{Time: time.Now(), Command: "process", Query: query, Summary: st.String()})
			printSummary(cmd.OutOrStdout(), &st)
			printUsage(cmd.OutOrStdout(), a.tracker)
			if err != nil {
				return err
			}
			if st.Errors > 0 {
				slog.Warn("Run finished with errors", "errors", st.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "regenerate audio even when it is up to date")
	cmd.Flags().BoolVar(&batch, "batch", false, "submit all cards as one batch job (Gemini only)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func printSummary(w io.Writer, st *syncer.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "=======")
	fmt.Fprintf(w, "  Total:          %d\n", st.Total)
	fmt.Fprintf(w, "  Processed:      %d\n", st.Processed)
	fmt.Fprintf(w, "  Up to date:     %d\n", st.SkippedFresh)
	fmt.Fprintf(w, "  Without text:   %d\n", st.SkippedEmpty)
	fmt.Fprintf(w, "  Errors:         %d\n", st.Errors)
	if st.CacheHits > 0 {
		fmt.Fprintf(w, "  From cache:     %d\n", st.CacheHits)
	}
	for _, a := range st.Anomalies {
		fmt.Fprintf(w, "  Warning: %s\n", a)
	}
	for _, f := range st.Failures {
		fmt.Fprintf(w, "  Failed: %v\n", f)
	}
}

func printUsage(w io.Writer, t *tracker.Tracker) {
	snap := t.Snapshot()
	if len(snap) == 0 {
		return
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Requests")
	fmt.Fprintln(w, "========")
	for _, name := range names {
		s := snap[name]
		fmt.Fprintf(w, "  %-32s ok=%d failed=%d throttled=%d empty=%d cache=%d/%d\n",
			name, s.APISuccess, s.APIFailures, s.APIThrottle, s.EmptyAudio, s.CacheHits, s.CacheHits+s.CacheMisses)
	}
}
