package main

import (
	"github.com/spf13/cobra"

	"github.com/2005lakshya/prodoc/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running prodoc server via HTTP.

These commands require a running server (prodoc serve).
Use --server to specify a custom server URL.

Examples:
  prodoc api health                 # Check server health
  prodoc api analyze invoice.pdf    # Analyze a document
  prodoc api config                 # Show active server configuration`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	for _, ep := range endpoints.All() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	rootCmd.AddCommand(apiCmd)
}
