package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	logText  bool

	appConfig *config.AppConfig
	log       *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "weather-etl",
		Short: "Weather ETL pipeline",
		Long: `Loads current weather for a fixed set of cities into dim_location/fact_weather.

Without a subcommand the one-shot pipeline runs:
recreate schema -> seed locations -> back-fill history -> one live fetch.`,
		Version:           "1.0.0",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		RunE:              runPipelineCmd,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or /etc/weather-etl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&logText, "log-text", false, "human-readable log output instead of JSON")

	addPipelineFlags(rootCmd)
}

// initConfig loads configuration and builds the process logger.
func initConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	appConfig = cfg
	log = logger.New(&logger.Config{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.LogLevel),
		Text:   logText,
	})
	slog.SetDefault(log)
	return nil
}
