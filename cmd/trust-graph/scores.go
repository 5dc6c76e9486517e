package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/trust-graph/pkg/csvio"
	"github.com/ritzau/trust-graph/pkg/cycles"
	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/output"
	"github.com/ritzau/trust-graph/pkg/scores"
	"github.com/ritzau/trust-graph/pkg/trust"
)

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores [file.csv]",
		Short: "Compute trust scores for a CSV edge list and print them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			input := cfg.Input
			if len(args) == 1 {
				input = args[0]
			}
			if input == "" {
				return fmt.Errorf("no input file given")
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}

			result, err := csvio.Parse(string(data), trust.NewEngine)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			logging.Debug("parsed edge list", "path", input, "accepted", result.Accepted, "skipped", result.Skipped)

			reference := cfg.Reference
			if !result.Graph.HasNode(reference) && !cmd.Flags().Changed("reference") && result.FirstNode != "" {
				logging.Info("reference node not in graph, using first node", "reference", reference, "first", result.FirstNode)
				reference = result.FirstNode
			}

			table, err := scores.Project(result.Graph.Engine(), reference)
			if err != nil {
				return err
			}

			report := output.NewReport(table, len(result.Graph.Nodes()), result.Graph.Len())
			report.Cycles = cycles.FindTrustCycles(result.Graph.Edges())
			if cfg.Format == "yaml" {
				return output.WriteYAML(cmd.OutOrStdout(), report)
			}
			output.PrintScoreReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "CSV edge list to score")
	flags.StringP("format", "f", "table", "Output format: table or yaml")
	return cmd
}
