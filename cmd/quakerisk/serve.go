package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/quake-risk/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-risk/internal/adapter/kafka"
	"github.com/couchcryptid/quake-risk/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled assessment refresh",
	Long: `Serve /healthz, /readyz, /metrics and the /v1 risk API on HTTP_ADDR, and
re-assess CLIENT_LOCATIONS_FILE on REFRESH_SCHEDULE. The first assessment runs
at startup; /readyz reports ready once it has completed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.KafkaEnabled {
		if err := kafkaadapter.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, 1); err != nil {
			logger.Warn("kafka topic not ensured", "topic", cfg.KafkaTopic, "error", err)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.pipeline, cfg.LookbackDays, logger)

	sched := scheduler.New(logger)
	refresh := scheduler.NewRefreshJob(a.pipeline, a.repo, cfg.ClientLocationsFile, cfg.LookbackDays, logger)
	if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
		return err
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Initial assessment, then the schedule.
	go func() {
		if err := sched.RunNow(ctx, refresh); err != nil && ctx.Err() == nil {
			logger.Error("initial assessment failed", "error", err)
		}
	}()
	sched.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
