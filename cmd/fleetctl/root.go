package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dronefleet/internal/api"
	"dronefleet/internal/config"
	"dronefleet/internal/logging"
)

var (
	configPath string
	schemaPath string
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "fleetctl",
	Short:         "Drone fleet operator client",
	Long:          "fleetctl follows a drone fleet backend over REST and its live push feed, and sends operator commands.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to client configuration YAML (defaults plus env when empty)")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "schemas/client.cue", "Path to CUE schema file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(dronesCmd)
	rootCmd.AddCommand(droneCmd)
	rootCmd.AddCommand(missionsCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(missionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// setup loads the configuration and builds the logger.
func setup() (*config.ClientConfig, *slog.Logger, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return cfg, logging.New(level), nil
}

// newAPI returns a bare REST client for one-shot reads.
func newAPI() (*api.Client, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, err
	}
	return api.New(cfg.APIBaseURL, cfg.RequestTimeout.Std())
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
