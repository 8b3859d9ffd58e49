package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules pipelines can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODULE\tPLUGIN\tDESCRIPTION")
			for _, d := range svc.Modules() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Plugin, d.Description)
			}
			return tw.Flush()
		},
	}
}
