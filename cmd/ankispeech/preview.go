package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ankispeech/pkg/anki"
	"ankispeech/pkg/model"
	"ankispeech/pkg/override"
	"ankispeech/pkg/syncer"
)

func newPreviewCmd(g *globalFlags) *cobra.Command {
	var limit int
	var prompts bool

	cmd := &cobra.Command{
		Use:   "preview <deck>",
		Short: "Show what process would do without synthesizing anything",
		Long: `Plans every card in the deck and shows its state, speaker, voice and
pronunciation overrides. Nothing is synthesized and no note is changed.

Examples:
  ankispeech preview "Spanish::Sentences"
  ankispeech preview "Spanish::Sentences" --limit 10 --prompts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			s := syncer.New(syncer.Deps{
				Store:    a.anki,
				Personas: a.personas,
				Resolver: override.NewResolver(a.overrides),
				Fields:   cfg.Fields,
			}, syncer.Options{Bitrate: cfg.Audio.Bitrate, Speed: cfg.Audio.Speed})

			items, err := s.Preview(ctx, anki.DeckQuery(args[0]), syncer.ProviderID(&cfg.TTS), limit)
			if err != nil {
				return err
			}
			printPreview(cmd.OutOrStdout(), items, prompts)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of cards to show (0 for all)")
	cmd.Flags().BoolVar(&prompts, "prompts", false, "also print the full prompt for each card")
	return cmd
}

func printPreview(w io.Writer, items []syncer.PreviewItem, prompts bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No cards found.")
		return
	}

	counts := map[syncer.State]int{}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CARD\tSTATE\tSPEAKER\tVOICE\tEMOTION\tOVERRIDES\tTEXT")
	for _, it := range items {
		counts[it.State]++
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.CardID, it.State, it.Speaker, it.Voice, it.Emotion, overrideList(it.Overrides), model.Truncate(it.Text, 50))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d cards: %d stale, %d forced, %d up to date, %d without text\n",
		len(items), counts[syncer.Stale], counts[syncer.Forced], counts[syncer.Fresh], counts[syncer.SkipEmpty])

	if !prompts {
		return
	}
	for _, it := range items {
		if it.Prompt == "" {
			continue
		}
		fmt.Fprintf(w, "\n--- card %d -> %s\n%s\n", it.CardID, it.Reference, it.Prompt)
	}
}

func overrideList(pairs []model.OverridePair) string {
	if len(pairs) == 0 {
		return "-"
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Original + "=" + p.Replacement
	}
	return strings.Join(parts, ", ")
}
