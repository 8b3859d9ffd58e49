package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run a module pipeline and archive the resulting system",
		Long: `Runs the stages of a pipeline file in order. Every stage reads the
snapshot produced by the previous one. When the file configures an archive the
final system is saved to the blob store and its key is printed.

Persistence falls back to the SIMCORE_PERSIST_* environment when the file has
no persistence section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			res, err := a.execute(cmd.Context(), p, reg)
			if err != nil {
				return err
			}
			sys := res.System
			fmt.Fprintf(cmd.OutOrStdout(), "system %s generation %d: %d nodes, %d edges, %d faces\n",
				sys.ID(), sys.Generation(), len(sys.Nodes()), len(sys.Edges()), len(sys.Faces()))
			if res.ArchiveKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archived %s (%d bytes)\n", res.ArchiveKey, res.Archive.Size)
			}
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	return cmd
}
