package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/williamstus/AAR-Reporting-sub000/internal/config"
	"github.com/williamstus/AAR-Reporting-sub000/internal/observability"
)

// Global flag values, bound in init.
var (
	flagConfig    string
	flagHomeDir   string
	flagLogLevel  string
	flagLogFormat string
)

// cfg and logger are populated by loadConfig before a command runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aar",
	Short: "AAR analysis service - concurrent exercise telemetry analysis",
	Long: `aar schedules exercise telemetry analysis across pluggable domain
engines: tasks run on a bounded worker pool in priority order, lifecycle
changes publish through an asynchronous event bus, and session reports
aggregate the outcomes.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal-aware cancellation.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the config file, loads it (falling back to
// defaults when absent), and builds the logger. Flags override file
// values for logging so a one-off --log-level debug needs no edit.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "init" {
		return nil
	}

	path := flagConfig
	if path == "" {
		home := flagHomeDir
		if home == "" {
			home = os.Getenv("AAR_HOME")
		}
		if home == "" {
			home = config.DefaultConfig().Core.HomeDir
		}
		path = filepath.Join(home, "config.yaml")
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	logger = observability.NewLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to config file (default $AAR_HOME/config.yaml)")
	pf.StringVar(&flagHomeDir, "home", "", "Service home directory (default ~/.aar)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(demoCmd)
}
