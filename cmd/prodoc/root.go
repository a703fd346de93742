package main

import (
	"github.com/spf13/cobra"

	"github.com/2005lakshya/prodoc/internal/api"
	"github.com/2005lakshya/prodoc/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "prodoc",
	Short: "Document analysis service for fraud and quality triage",
	Long: `Prodoc analyzes uploaded documents (images and PDFs) for fraud and
quality triage.

Each analysis:
  - Normalizes the upload into raster pages plus a text layer
  - Extracts the configured target fields with per-field confidence
  - Runs quality and authenticity detectors concurrently
  - Aggregates a risk score, decision, and justification report`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.prodoc/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
