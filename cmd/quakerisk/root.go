package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-risk/internal/config"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "quakerisk",
	Short: "Earthquake risk ranking and insurance assessment",
	Long: `Fetches recent earthquakes from the USGS event service, ranks US states by
event frequency and scores client properties for insurability based on nearby
seismic activity.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("command", cmd.Name())
		slog.SetDefault(logger)
		metrics = observability.NewMetrics()
		return nil
	},
}

// addWindowFlags registers --start and --end on cmd.
func addWindowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("start", "", "window start date YYYY-MM-DD (default: LOOKBACK_DAYS before end)")
	f.String("end", "", "window end date YYYY-MM-DD (default: today, UTC)")
}

// addOutputFlags registers --format and --output on cmd.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "text", "report format: text, json or xlsx")
	f.StringP("output", "o", "", "output file path (default: stdout)")
}
