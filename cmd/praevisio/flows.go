package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:     "flows",
	Short:   "Start or stop the periodic flows",
	GroupID: "client",
}

var flowsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the flows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleFlows(cmd, apiClient.StartFlows)
	},
}

var flowsStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the flows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleFlows(cmd, apiClient.StopFlows)
	},
}

func init() {
	flowsCmd.AddCommand(flowsStartCmd)
	flowsCmd.AddCommand(flowsStopCmd)
}

func toggleFlows(cmd *cobra.Command, toggle func(context.Context) (bool, error)) error {
	running, err := toggle(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]bool{"running": running})
	}
	if running {
		fmt.Fprintln(cmd.OutOrStdout(), "Flows running")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Flows stopped")
	}
	return nil
}
