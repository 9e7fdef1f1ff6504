package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_risk"

// Label values shared by the instrumented components.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNoMatch  = "no_match"
	OutcomeDegraded = "degraded"

	ResultHit  = "hit"
	ResultMiss = "miss"

	DropExcluded = "excluded_region"
	DropUnknown  = "unknown_region"
	DropInvalid  = "invalid_record"

	DecisionInsure  = "insure"
	DecisionDecline = "decline"

	RunRank   = "rank"
	RunAssess = "assess"
)

// Metrics holds the Prometheus collectors for fetches, geocoding, and scoring runs.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Seismic event repository.
	SeismicFetches   *prometheus.CounterVec // labels: outcome={success,degraded,error}
	SeismicCache     *prometheus.CounterVec // labels: result={hit,miss}
	RecordsDropped   *prometheus.CounterVec // labels: reason={excluded_region,unknown_region,invalid_record}
	EventsParsed     prometheus.Counter
	SeismicFetchTime prometheus.Histogram

	// Geocoding.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,no_match}
	GeocodeCache       *prometheus.CounterVec   // labels: layer={memory,sqlite}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	// Scoring runs.
	Assessments *prometheus.CounterVec   // labels: decision={insure,decline}
	RunDuration *prometheus.HistogramVec // labels: kind={rank,assess}
	RunFailures *prometheus.CounterVec   // labels: kind
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a rank or assess run is in progress.",
		}),
		SeismicFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seismic_fetches_total",
			Help:      "USGS event queries by outcome.",
		}, []string{"outcome"}),
		SeismicCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seismic_cache_total",
			Help:      "Seismic repository cache lookups by result.",
		}, []string{"result"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "USGS records discarded during parsing, by reason.",
		}, []string{"reason"}),
		EventsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_parsed_total",
			Help:      "USGS records converted into seismic events.",
		}),
		SeismicFetchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seismic_fetch_duration_seconds",
			Help:      "Duration of a USGS query including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Scored target locations by decision.",
		}, []string{"decision"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete rank or assess run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Rank or assess runs that ended with an error.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.SeismicFetches,
		m.SeismicCache,
		m.RecordsDropped,
		m.EventsParsed,
		m.SeismicFetchTime,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.Assessments,
		m.RunDuration,
		m.RunFailures,
	}
}
