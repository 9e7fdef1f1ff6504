package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

// EventSource returns parsed seismic events for a window.
type EventSource interface {
	Events(ctx context.Context, window domain.DateWindow) ([]domain.SeismicEvent, error)
}

// Publisher delivers run results downstream.
type Publisher interface {
	PublishRankings(ctx context.Context, run RankingRun) error
	PublishAssessments(ctx context.Context, run AssessmentRun) error
}

// RankingRun is the result of one ranking run.
type RankingRun struct {
	RunID       string              `json:"run_id"`
	Window      domain.DateWindow   `json:"window"`
	GeneratedAt time.Time           `json:"generated_at"`
	EventCount  int                 `json:"event_count"`
	Rankings    []domain.RegionRank `json:"rankings"`
}

// AssessmentRun is the result of one assessment run.
type AssessmentRun struct {
	RunID       string                    `json:"run_id"`
	Window      domain.DateWindow         `json:"window"`
	GeneratedAt time.Time                 `json:"generated_at"`
	EventCount  int                       `json:"event_count"`
	Params      domain.RiskParams         `json:"params"`
	Assessments []domain.AssessedLocation `json:"assessments"`
}

// Pipeline orchestrates ranking and assessment runs.
type Pipeline struct {
	events      EventSource
	geocoder    domain.Geocoder
	params      domain.RiskParams
	concurrency int
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics

	ready  atomic.Bool
	mu     sync.RWMutex
	latest *AssessmentRun
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes every successful run.
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithGeocodeConcurrency sets the number of concurrent target lookups.
func WithGeocodeConcurrency(n int) Option {
	return func(pl *Pipeline) { pl.concurrency = n }
}

// New creates a Pipeline.
func New(events EventSource, geocoder domain.Geocoder, params domain.RiskParams, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		events:      events,
		geocoder:    geocoder,
		params:      params,
		concurrency: 1,
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Params returns the scoring parameters.
func (p *Pipeline) Params() domain.RiskParams {
	return p.params
}

// CheckReadiness returns nil once an assessment run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no assessment run has completed yet")
	}
	return nil
}

// Latest returns the most recent successful assessment run.
func (p *Pipeline) Latest() (AssessmentRun, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return AssessmentRun{}, false
	}
	return *p.latest, true
}

// Rank ranks regions by event frequency within window.
func (p *Pipeline) Rank(ctx context.Context, window domain.DateWindow) (run RankingRun, err error) {
	defer p.track(observability.RunRank, p.begin(), &err)

	events, err := p.events.Events(ctx, window)
	if err != nil {
		return RankingRun{}, fmt.Errorf("load events: %w", err)
	}

	run = RankingRun{
		RunID:       uuid.NewString(),
		Window:      window,
		GeneratedAt: domain.Clock().Now().UTC(),
		EventCount:  len(events),
		Rankings:    domain.RankRegionsByEventFrequency(events),
	}
	p.logger.Info("regions ranked",
		"run_id", run.RunID,
		"window", window.String(),
		"events", run.EventCount,
		"regions", len(run.Rankings),
	)

	if p.publisher != nil {
		if err := p.publisher.PublishRankings(ctx, run); err != nil {
			return run, fmt.Errorf("publish rankings: %w", err)
		}
	}
	return run, nil
}

// AssessFile parses and geocodes the client locations in r and assesses them.
func (p *Pipeline) AssessFile(ctx context.Context, window domain.DateWindow, r io.Reader) (AssessmentRun, error) {
	targets, err := LoadTargets(ctx, r, p.geocoder, p.concurrency, p.logger)
	if err != nil {
		p.metrics.RunFailures.WithLabelValues(observability.RunAssess).Inc()
		return AssessmentRun{}, err
	}
	return p.Assess(ctx, window, targets)
}

// Assess scores already located targets against the events in window.
func (p *Pipeline) Assess(ctx context.Context, window domain.DateWindow, targets []domain.TargetLocation) (run AssessmentRun, err error) {
	defer p.track(observability.RunAssess, p.begin(), &err)

	events, err := p.events.Events(ctx, window)
	if err != nil {
		return AssessmentRun{}, fmt.Errorf("load events: %w", err)
	}
	idx := domain.NewEventIndex(events)

	assessed := make([]domain.AssessedLocation, len(targets))
	for i, t := range targets {
		a := domain.AssessIndexed(t, idx, p.params)
		assessed[i] = a
		p.recordDecision(a)
		p.logger.Debug("target assessed",
			"target", t.Name,
			"address", t.FullAddress,
			"nearby_events", a.Risk.NearbyEventCount,
			"total_risk_factor", a.Risk.TotalRiskFactor,
			"should_insure", a.Risk.ShouldInsure,
			"status", a.Risk.Status,
		)
	}

	run = AssessmentRun{
		RunID:       uuid.NewString(),
		Window:      window,
		GeneratedAt: domain.Clock().Now().UTC(),
		EventCount:  len(events),
		Params:      p.params,
		Assessments: assessed,
	}
	p.logger.Info("targets assessed", "run_id", run.RunID, "window", window.String(), "targets", len(assessed), "events", len(events))

	if p.publisher != nil {
		if err := p.publisher.PublishAssessments(ctx, run); err != nil {
			return run, fmt.Errorf("publish assessments: %w", err)
		}
	}

	p.mu.Lock()
	p.latest = &run
	p.mu.Unlock()
	p.ready.Store(true)
	return run, nil
}

// ScorePoint assesses an arbitrary coordinate against the events in window.
func (p *Pipeline) ScorePoint(ctx context.Context, window domain.DateWindow, lat, lon float64) (domain.AssessedLocation, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.AssessedLocation{}, fmt.Errorf("coordinate out of range: %v,%v", lat, lon)
	}
	events, err := p.events.Events(ctx, window)
	if err != nil {
		return domain.AssessedLocation{}, fmt.Errorf("load events: %w", err)
	}
	target := domain.TargetLocation{Latitude: lat, Longitude: lon}
	return domain.Assess(target, events, p.params), nil
}

func (p *Pipeline) recordDecision(a domain.AssessedLocation) {
	decision := observability.DecisionDecline
	if a.Risk.ShouldInsure {
		decision = observability.DecisionInsure
	}
	p.metrics.Assessments.WithLabelValues(decision).Inc()
}

func (p *Pipeline) begin() time.Time {
	p.metrics.PipelineRunning.Inc()
	return time.Now()
}

func (p *Pipeline) track(kind string, start time.Time, err *error) {
	p.metrics.PipelineRunning.Dec()
	p.metrics.RunDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if *err != nil {
		p.metrics.RunFailures.WithLabelValues(kind).Inc()
		p.logger.Error("run failed", "kind", kind, "error", *err)
	}
}
