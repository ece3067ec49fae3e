package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docmatch/internal/ledger"
	"docmatch/internal/reconcile"
	"docmatch/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		settle  time.Duration
		initial bool
	)

	cmd := &cobra.Command{
		Use:   "watch <pipeline>",
		Short: "Re-run a pipeline whenever its input directories change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline(args[0])
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				runner, err := ctx.newRunner(store)
				if err != nil {
					return err
				}
				w := &watch.Watcher{
					Dirs:    []string{p.PrimaryDir, p.SupportDir},
					Settle:  settle,
					Initial: initial,
					Logger:  logger,
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Watching %s and %s (Ctrl-C to stop)\n", p.PrimaryDir, p.SupportDir)
				return w.Run(cmd.Context(), func(runCtx context.Context) error {
					summary, err := runner.Run(runCtx, p, reconcile.Options{})
					if summary != nil {
						writeSummary(out, summary, colorize)
						fmt.Fprintln(out)
					}
					return err
				})
			})
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "Quiet period after the last change before running")
	cmd.Flags().BoolVar(&initial, "initial", true, "Run once at startup before waiting for changes")
	return cmd
}
