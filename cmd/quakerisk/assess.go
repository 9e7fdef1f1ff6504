package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-risk/internal/report"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess client locations for earthquake insurance",
	Long: `Geocode every client location, count the earthquakes within the risk radius
and decide whether each property should be insured.

The client file is a CSV with the columns "Building Name", "Location" and
"Full Address"; Location must be "City, Region". A malformed row or a failed
geocode aborts the run.

Examples:
  # Configured CLIENT_LOCATIONS_FILE, last LOOKBACK_DAYS days
  quakerisk assess

  # Another file, 30 day window, spreadsheet output
  quakerisk assess --clients buildings.csv --start 2025-02-15 --format xlsx -o risk.xlsx`,
	RunE: runAssess,
}

func init() {
	addWindowFlags(assessCmd)
	addOutputFlags(assessCmd)
	assessCmd.Flags().String("clients", "", "client locations CSV (default: CLIENT_LOCATIONS_FILE)")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window, err := windowFromFlags(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("clients")
	if path == "" {
		path = cfg.ClientLocationsFile
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open client locations: %w", err)
	}
	defer in.Close()

	format, out, closeOut, err := reportTarget(cmd)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // closed explicitly below on success

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.pipeline.AssessFile(ctx, window, in)
	if err != nil {
		return err
	}
	if err := report.WriteAssessments(out, format, run); err != nil {
		return err
	}
	return closeOut()
}
