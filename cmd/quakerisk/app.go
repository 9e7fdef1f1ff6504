package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/quake-risk/internal/adapter/kafka"
	"github.com/couchcryptid/quake-risk/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-risk/internal/adapter/nominatim"
	"github.com/couchcryptid/quake-risk/internal/adapter/usgs"
	"github.com/couchcryptid/quake-risk/internal/config"
	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/geocoding"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
	"github.com/couchcryptid/quake-risk/internal/report"
	"github.com/couchcryptid/quake-risk/internal/retry"
)

// app holds the wired components shared by the subcommands.
type app struct {
	repo      *usgs.Repository
	pipeline  *pipeline.Pipeline
	publisher *kafkaadapter.Writer
	closers   []io.Closer
}

// newApp builds the component graph from cfg.
func newApp(ctx context.Context, withGeocoder bool) (*app, error) {
	regions, err := loadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("region table loaded", "regions", regions.Len())

	policy := retry.USGSPolicy()
	policy.MaxAttempts = cfg.USGSMaxAttempts
	policy.InitialInterval = cfg.USGSBackoffBase
	client := usgs.NewClient(cfg.USGSURL, cfg.USGSTimeout, policy, logger, metrics)

	a := &app{repo: usgs.NewRepository(client, regions, logger, metrics, usgs.WithMaxWindows(cfg.SeismicCacheWindows))}

	var geocoder domain.Geocoder
	if withGeocoder {
		g, closer, err := newGeocoder(ctx)
		if err != nil {
			return nil, err
		}
		geocoder = g
		a.closers = append(a.closers, closer)
	}

	params := domain.DefaultRiskParams()
	params.RadiusKm = cfg.RiskRadiusKm
	params.InsureThreshold = cfg.RiskThreshold

	opts := []pipeline.Option{pipeline.WithGeocodeConcurrency(cfg.GeocodeConcurrency)}
	if cfg.KafkaEnabled {
		a.publisher = kafkaadapter.NewWriter(cfg, logger)
		a.closers = append(a.closers, a.publisher)
		opts = append(opts, pipeline.WithPublisher(a.publisher))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.pipeline = pipeline.New(a.repo, geocoder, params, logger, metrics, opts...)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}

func loadRegions(path string) (*domain.RegionTable, error) {
	if path == "" {
		return domain.DefaultRegionTable()
	}
	regions, err := domain.LoadRegionTable(path)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	return regions, nil
}

func newGeocoder(ctx context.Context) (domain.Geocoder, io.Closer, error) {
	var provider domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderMapbox:
		provider = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
	default:
		provider = nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout, logger, metrics)
	}

	g, closer, err := geocoding.Wrap(ctx, provider, geocoding.Options{
		RatePerSecond: cfg.GeocodeRateLimit,
		MaxElapsed:    cfg.GeocodeMaxElapsed,
		CacheSize:     cfg.GeocodeCacheSize,
		CachePath:     cfg.GeocodeCachePath,
	}, logger, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("geocoder: %w", err)
	}
	logger.Info("geocoder ready",
		"provider", cfg.GeocoderProvider,
		"rate_limit", cfg.GeocodeRateLimit,
		"cache_size", cfg.GeocodeCacheSize,
		"cache_path", cfg.GeocodeCachePath,
	)
	return g, closer, nil
}

// windowFromFlags reads --start and --end.
func windowFromFlags(cmd *cobra.Command) (domain.DateWindow, error) {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	return domain.ParseDateWindow(start, end, cfg.LookbackDays)
}

// reportTarget resolves --format and --output. The returned close func must be called.
func reportTarget(cmd *cobra.Command) (report.Format, io.Writer, func() error, error) {
	raw, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(raw)
	if err != nil {
		return "", nil, nil, err
	}
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		if format == report.FormatXLSX {
			return "", nil, nil, errors.New("xlsx output requires --output")
		}
		return format, cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("create output: %w", err)
	}
	return format, f, f.Close, nil
}
