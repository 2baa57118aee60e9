// Package cmd defines the CLI commands for the pacer executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/racekit/pacer/internal/config"
)

var cfgFile string

// newRootCmd creates the root command. Configuration is loaded once here
// and handed to the subcommands through their constructors.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pacer",
		Short: "Supervises cancellable progress runners",
		Long: `pacer hosts progress runners: small state machines that advance a
counter on a fixed interval until they reach a configured maximum. Runners
can be paused mid-run and resumed from their preserved progress. The serve
command exposes them over an HTTP API with Prometheus metrics and optional
Postgres history and Pub/Sub finish notifications.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses PACER_* environment variables)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSimulateCmd())
	return cmd
}

// loadConfig reads configuration from the --config file, if given, plus the
// PACER_* environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// Execute is the entry point for the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
