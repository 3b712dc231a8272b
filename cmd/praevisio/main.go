package main

import (
	"os"

	"github.com/alfredjeanlab/praevisio/internal/client"
	"github.com/alfredjeanlab/praevisio/internal/config"
	"github.com/alfredjeanlab/praevisio/internal/ui"
	"github.com/spf13/cobra"
)

var (
	baseURL    string
	authToken  string
	jsonOutput bool

	apiClient client.VigilanceClient
)

func defaultURL() string {
	if s := os.Getenv("PRAEVISIO_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if s := os.Getenv("PRAEVISIO_SSE_TOKEN"); s != "" {
		return s
	}
	return config.DefaultStaticToken
}

var rootCmd = &cobra.Command{
	Use:   "praevisio <command>",
	Short: "Real-time vigilance broadcast server and client",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Configure(cmd.OutOrStdout())
		apiClient = client.NewHTTPClient(baseURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if apiClient != nil {
			apiClient.Close()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", defaultURL(), "server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "static token (admin bearer and stream credential)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "client", Title: "Client:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Server
	rootCmd.AddCommand(serveCmd)

	// Client
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(flowsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
