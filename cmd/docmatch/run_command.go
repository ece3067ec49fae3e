package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docmatch/internal/ledger"
	"docmatch/internal/reconcile"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run [pipeline...]",
		Short: "Run pipelines once (all configured pipelines when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := ctx.pipelineNames(args)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			return ctx.withLedger(func(store *ledger.Store) error {
				runner, err := ctx.newRunner(store)
				if err != nil {
					return err
				}
				summaries := make([]*reconcile.Summary, 0, len(names))
				var errs []error
				for _, name := range names {
					p, err := ctx.pipeline(name)
					if err != nil {
						return err
					}
					summary, runErr := runner.Run(runCtx, p, reconcile.Options{DryRun: dryRun})
					if summary != nil {
						summaries = append(summaries, summary)
					}
					if runErr != nil {
						errs = append(errs, fmt.Errorf("pipeline %s: %w", name, runErr))
						if runCtx.Err() != nil {
							break
						}
					}
				}

				if asJSON {
					if err := writeJSON(cmd, summaries); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					for i, s := range summaries {
						if i > 0 {
							fmt.Fprintln(out)
						}
						writeSummary(out, s, colorize)
					}
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute pairs and orphans without writing any file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop after this long; outputs already written are kept")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print run summaries as JSON")
	return cmd
}
