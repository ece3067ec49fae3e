package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docmatch/internal/attributes"
	"docmatch/internal/config"
	"docmatch/internal/documents"
)

type scoreOutput struct {
	Primary   attributes.Record `json:"primary"`
	Support   attributes.Record `json:"support"`
	Score     int               `json:"score"`
	Rejected  bool              `json:"rejected"`
	Reason    string            `json:"reason,omitempty"`
	Satisfied []string          `json:"satisfied"`
	MinScore  int               `json:"min_score"`
	Accepted  bool              `json:"accepted"`
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var (
		pipelineName string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "score <primary-file> <support-file>",
		Short: "Explain how a single primary and support document score against each other",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline(pipelineName)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts := p.ListOptions(logger)
			primaryDoc, err := documents.Open(args[0], opts)
			if err != nil {
				return err
			}
			supportDoc, err := documents.Open(args[1], opts)
			if err != nil {
				return err
			}
			primary, support := p.Record(primaryDoc), p.Record(supportDoc)
			candidate := p.Policy.Score(primary, support)

			result := scoreOutput{
				Primary:   primary,
				Support:   support,
				Score:     candidate.Score,
				Rejected:  candidate.Rejected,
				Reason:    candidate.Reason,
				Satisfied: append([]string{}, candidate.Satisfied...),
				MinScore:  p.Policy.MinScore,
				Accepted:  !candidate.Rejected && candidate.Score >= p.Policy.MinScore,
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderRecords([]attributes.Record{primary, support}))
			switch {
			case result.Rejected:
				fmt.Fprintln(out, renderStatusLine("Result", statusError, "rejected: "+result.Reason, colorize))
			case result.Accepted:
				fmt.Fprintln(out, renderStatusLine("Result", statusOK,
					fmt.Sprintf("score %d >= %d, would pair", result.Score, result.MinScore), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Result", statusWarn,
					fmt.Sprintf("score %d < %d, would not pair", result.Score, result.MinScore), colorize))
			}
			for _, c := range result.Satisfied {
				fmt.Fprintln(out, renderStatusLine("Criterion", statusInfo, c, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Policy", statusInfo,
				string(p.Policy.Dates)+" dates, min score "+strconv.Itoa(p.Policy.MinScore), colorize))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipelineName, "pipeline", "p", config.PipelineInvoices, "Pipeline whose scoring policy applies")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the score as JSON")
	return cmd
}
