package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ankispeech/pkg/tracker"
)

func newDecksCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List the decks in the Anki collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			c, err := connectAnki(ctx, cfg, tracker.New())
			if err != nil {
				return err
			}
			names, err := c.DeckNames(ctx)
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
