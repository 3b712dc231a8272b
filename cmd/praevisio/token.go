package main

import (
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Issue an ephemeral stream token",
	GroupID: "client",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var ttlArg *time.Duration
		if cmd.Flags().Changed("ttl") {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			ttlArg = &ttl
		}

		tok, err := apiClient.IssueToken(cmd.Context(), ttlArg)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), tok)
		}
		printToken(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default: server default)")
}
