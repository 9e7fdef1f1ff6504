package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
	"github.com/couchcryptid/quake-risk/internal/report"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single coordinate",
	Long: `Score one latitude/longitude against the earthquakes in the window without
geocoding.

Example:
  quakerisk score --lat 37.7749 --lon -122.4194`,
	RunE: runScore,
}

func init() {
	addWindowFlags(scoreCmd)
	addOutputFlags(scoreCmd)
	f := scoreCmd.Flags()
	f.Float64("lat", 0, "latitude in degrees")
	f.Float64("lon", 0, "longitude in degrees")
	_ = scoreCmd.MarkFlagRequired("lat")
	_ = scoreCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window, err := windowFromFlags(cmd)
	if err != nil {
		return err
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")

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

	assessed, err := a.pipeline.ScorePoint(ctx, window, lat, lon)
	if err != nil {
		return err
	}
	run := pipeline.AssessmentRun{Window: window, Params: a.pipeline.Params(), Assessments: []domain.AssessedLocation{assessed}}
	if err := report.WriteAssessments(out, format, run); err != nil {
		return err
	}
	return closeOut()
}
