package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/podscribe/podscribe-api/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podscribe-api",
	Short: "Podcast transcription and indexing API server",
	Long: `Podscribe API - podcast management with an asynchronous processing pipeline.

Subscribed podcast feeds are ingested via RSS; episodes are processed in
the background: audio download, chunked transcription, vector indexing,
term extraction, and summarization. Processing is resumable and
deduplicating, and every run is trackable through a polled task record.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadEnv)
}

// loadEnv pulls a local .env file into the environment before viper reads
// it. Missing .env is fine; the environment may already be populated.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
}

// loadConfig initializes configuration for commands that need it
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	return config.GetConfig()
}
