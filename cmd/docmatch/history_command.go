package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docmatch/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		prune  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history [pipeline]",
		Short: "List recorded runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline := ""
			if len(args) == 1 {
				pipeline = args[0]
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				out := cmd.OutOrStdout()
				if prune > 0 {
					removed, err := store.DeleteBefore(cmd.Context(), time.Now().Add(-prune))
					if err != nil {
						return err
					}
					if !asJSON {
						fmt.Fprintf(out, "Pruned %d run(s) older than %s\n", removed, prune)
					}
				}
				runs, err := store.ListRuns(cmd.Context(), pipeline, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRuns(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete runs older than this before listing (e.g. 720h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}
