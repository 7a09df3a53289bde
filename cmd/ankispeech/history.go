package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ankispeech/pkg/store"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			if !cfg.Cache.Enabled {
				return fmt.Errorf("run history is kept in the cache database, which is disabled")
			}
			st, err := openStore(ctx, cfg.Cache)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTOOK\tPROVIDER\tQUERY\tTOTAL\tPROCESSED\tFRESH\tEMPTY\tERRORS\tCACHE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Provider, r.Query, r.Total, r.Processed, r.SkippedFresh, r.SkippedEmpty, r.Errors, r.CacheHits)
	}
	tw.Flush()
}
