package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:     "emit <message>",
	Short:   "Record an operator event and broadcast it",
	GroupID: "client",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := apiClient.Emit(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		if len(st.Events) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Emitted: %s\n", st.Events[0])
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Stop the flows and reset the vigilance state",
	GroupID: "client",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := apiClient.Clear(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vigilance state cleared; flows stopped")
		return nil
	},
}
