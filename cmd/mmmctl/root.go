// Command mmmctl is the developer-facing CLI for the regression engine,
// per SPEC_FULL.md §5.3: serve starts the HTTP server, run/preview replay
// a JSON-encoded wire request from disk and print the sanitized response,
// following the cobra+viper wiring of penny-vault-pv-data's cmd/root.go.
package main

import (
	"fmt"
	"os"

	"github.com/modelhub/mmm-engine/internal/config"
	"github.com/modelhub/mmm-engine/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mmmctl",
	Short: "mmmctl operates the marketing-mix regression engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config.yaml")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(serveCmd, runCmd, previewCmd)
}

func initLogging() {
	cfg, err := config.Load(rootCmd.PersistentFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log.Logger = logging.New(cfg.LogLevel, os.Stderr)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(rootCmd.PersistentFlags())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
