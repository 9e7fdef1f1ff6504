package usgs

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/lru"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

// RawFetcher retrieves raw USGS rows for a date window.
type RawFetcher interface {
	FetchRaw(ctx context.Context, window domain.DateWindow) ([]domain.RawQuakeRecord, error)
}

// DefaultMaxWindows bounds how many date windows a Repository keeps cached.
const DefaultMaxWindows = 32

// Repository serves raw records and parsed events per date window. The most recently
// used windows are cached; concurrent requests for the same window share one fetch.
// An unavailable service yields an empty result that is not cached.
type Repository struct {
	fetcher RawFetcher
	regions *domain.RegionTable
	logger  *slog.Logger
	metrics *observability.Metrics

	windows *lru.Cache[windowEntry]
	group   singleflight.Group
}

// windowEntry is the cached state of one window. events is nil until first parsed.
type windowEntry struct {
	raw    []domain.RawQuakeRecord
	events []domain.SeismicEvent
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	maxWindows int
}

// WithMaxWindows caps the number of cached windows. The least recently used window
// is evicted first.
func WithMaxWindows(n int) RepositoryOption {
	return func(o *repositoryOptions) {
		if n > 0 {
			o.maxWindows = n
		}
	}
}

// NewRepository creates a repository over fetcher using regions for place resolution.
func NewRepository(fetcher RawFetcher, regions *domain.RegionTable, logger *slog.Logger, metrics *observability.Metrics, opts ...RepositoryOption) *Repository {
	o := repositoryOptions{maxWindows: DefaultMaxWindows}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository{
		fetcher: fetcher,
		regions: regions,
		logger:  logger,
		metrics: metrics,
		windows: lru.New[windowEntry](o.maxWindows),
	}
}

// Raw returns the raw rows for window.
func (r *Repository) Raw(ctx context.Context, window domain.DateWindow) ([]domain.RawQuakeRecord, error) {
	recs, _, err := r.rawCached(ctx, window)
	return recs, err
}

// Events returns the parsed events for window, in feed order. Rows whose place lies
// outside the supported regions or that fail to parse are dropped and logged.
func (r *Repository) Events(ctx context.Context, window domain.DateWindow) ([]domain.SeismicEvent, error) {
	if e, ok := r.windows.Get(window.String()); ok && e.events != nil {
		return e.events, nil
	}

	recs, cached, err := r.rawCached(ctx, window)
	if err != nil {
		return nil, err
	}

	evs := r.parse(recs)
	if cached {
		r.store(window, windowEntry{raw: recs, events: evs})
	}
	return evs, nil
}

// Forget evicts window so the next call refetches it.
func (r *Repository) Forget(window domain.DateWindow) {
	r.windows.Remove(window.String())
}

// CachedWindows returns the number of windows currently cached.
func (r *Repository) CachedWindows() int {
	return r.windows.Len()
}

func (r *Repository) store(window domain.DateWindow, e windowEntry) {
	if evicted, ok := r.windows.Put(window.String(), e); ok {
		r.logger.Debug("evicted cached window", "window", evicted)
	}
}

type rawResult struct {
	records []domain.RawQuakeRecord
	cached  bool
}

// rawCached returns the raw rows for window. The shared fetch is detached from any
// single caller's cancellation; each caller stops waiting when its own ctx is done.
func (r *Repository) rawCached(ctx context.Context, window domain.DateWindow) ([]domain.RawQuakeRecord, bool, error) {
	key := window.String()
	if e, ok := r.windows.Get(key); ok {
		r.metrics.SeismicCache.WithLabelValues(observability.ResultHit).Inc()
		return e.raw, true, nil
	}
	r.metrics.SeismicCache.WithLabelValues(observability.ResultMiss).Inc()

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		recs, err := r.fetcher.FetchRaw(fetchCtx, window)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return nil, err
			}
			r.logger.Error("seismic data unavailable, continuing with no events",
				"window", key,
				"error", err,
			)
			return rawResult{}, nil
		}

		r.store(window, windowEntry{raw: recs})
		return rawResult{records: recs, cached: true}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		v := res.Val.(rawResult)
		return v.records, v.cached, nil
	}
}

func (r *Repository) parse(recs []domain.RawQuakeRecord) []domain.SeismicEvent {
	out := make([]domain.SeismicEvent, 0, len(recs))
	for _, rec := range recs {
		ev, err := domain.ParseQuakeRecord(rec, r.regions)
		switch {
		case err == nil:
			out = append(out, ev)
		case errors.Is(err, domain.ErrExcludedRegion):
			r.logger.Debug("skipping event outside supported territory", "place", rec.Place, "id", rec.ID)
			r.metrics.RecordsDropped.WithLabelValues(observability.DropExcluded).Inc()
		case errors.Is(err, domain.ErrUnknownRegion):
			r.logger.Info("region not found for place", "place", rec.Place, "id", rec.ID)
			r.metrics.RecordsDropped.WithLabelValues(observability.DropUnknown).Inc()
		default:
			r.logger.Warn("skipping malformed event", "id", rec.ID, "error", err)
			r.metrics.RecordsDropped.WithLabelValues(observability.DropInvalid).Inc()
		}
	}
	r.metrics.EventsParsed.Add(float64(len(out)))
	return out
}
