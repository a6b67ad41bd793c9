package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/bucketsync/internal/history"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pull and push runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(cmd)
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINISHED\tDIRECTION\tSTATUS\tFILES\tBYTES\tDURATION\tRUN")
			for _, run := range runs {
				status := green("ok")
				if !run.Success {
					status = red(fmt.Sprintf("%d errors", len(run.Errors)))
				}
				if run.DryRun {
					status += " (dry run)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					humanize.Time(run.FinishedAt),
					run.Direction,
					status,
					run.Downloaded+run.Uploaded+run.Deleted,
					humanize.Bytes(uint64(max(run.Bytes, 0))),
					time.Duration(run.DurationMs)*time.Millisecond,
					run.ID,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntP("limit", "n", history.DefaultLimit, "number of runs to show")
	cmd.Flags().Bool("json", false, "print runs as JSON")
	return cmd
}
