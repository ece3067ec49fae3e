package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docmatch/internal/attributes"
)

type inspectOutput struct {
	Pipeline  string              `json:"pipeline"`
	Primaries []attributes.Record `json:"primaries"`
	Supports  []attributes.Record `json:"supports"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <pipeline>",
		Short: "Show the attributes extracted from every input document",
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
			primaries, supports, err := p.Collect(cmd.Context(), logger)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, inspectOutput{Pipeline: p.Name, Primaries: primaries, Supports: supports})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, section := range []struct {
				title   string
				dir     string
				records []attributes.Record
			}{
				{"Primaries", p.PrimaryDir, primaries},
				{"Supports", p.SupportDir, supports},
			} {
				for _, line := range renderSectionHeader(fmt.Sprintf("%s: %s (%d)", section.title, section.dir, len(section.records)), colorize) {
					fmt.Fprintln(out, line)
				}
				if len(section.records) == 0 {
					fmt.Fprintln(out, "  (no documents)")
				} else {
					fmt.Fprintln(out, renderRecords(section.records))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}
