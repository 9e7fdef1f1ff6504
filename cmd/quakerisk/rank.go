package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-risk/internal/report"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank US regions by earthquake count",
	Long: `Fetch earthquakes in the date window and rank regions by event count,
highest first, with the summed magnitude of each region's events.

Examples:
  # Last LOOKBACK_DAYS days as a table
  quakerisk rank

  # A fixed window as JSON
  quakerisk rank --start 2025-03-01 --end 2025-03-08 --format json`,
	RunE: runRank,
}

func init() {
	addWindowFlags(rankCmd)
	addOutputFlags(rankCmd)
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window, err := windowFromFlags(cmd)
	if err != nil {
		return err
	}
	format, out, closeOut, err := reportTarget(cmd)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // closed explicitly below on success

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.pipeline.Rank(ctx, window)
	if err != nil {
		return err
	}
	if err := report.WriteRankings(out, format, run); err != nil {
		return err
	}
	return closeOut()
}
