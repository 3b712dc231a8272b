package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:     "state",
	Short:   "Show the current vigilance state",
	GroupID: "client",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := apiClient.State(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printState(cmd.OutOrStdout(), st)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:     "report",
	Short:   "Print the Markdown vigilance report",
	GroupID: "client",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := apiClient.Report(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"report": report})
		}
		fmt.Fprint(cmd.OutOrStdout(), report)
		return nil
	},
}
