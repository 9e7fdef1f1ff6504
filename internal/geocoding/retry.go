package geocoding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/retry"
)

// Retrying retries failed lookups with exponential backoff until the policy's
// elapsed budget is spent. A no-match answer is final.
type Retrying struct {
	inner  domain.Geocoder
	policy retry.Policy
	logger *slog.Logger
}

// NewRetrying wraps inner with policy.
func NewRetrying(inner domain.Geocoder, policy retry.Policy, logger *slog.Logger) *Retrying {
	return &Retrying{inner: inner, policy: policy, logger: logger}
}

// Geocode returns a *domain.GeocodeError when the lookup ultimately fails.
func (r *Retrying) Geocode(ctx context.Context, city, countryCode string) (domain.Coordinates, error) {
	query := domain.GeocodeQuery(city, countryCode)
	coords, err := retry.Do(ctx, r.policy, func(ctx context.Context) (domain.Coordinates, error) {
		c, err := r.inner.Geocode(ctx, city, countryCode)
		if errors.Is(err, domain.ErrNoMatch) {
			return c, retry.Permanent(err)
		}
		return c, err
	}, func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("geocode attempt failed, backing off",
			"query", query,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		var gerr *domain.GeocodeError
		if errors.As(err, &gerr) {
			return domain.Coordinates{}, err
		}
		return domain.Coordinates{}, &domain.GeocodeError{Query: query, Err: err}
	}
	return coords, nil
}

// RateLimited spaces provider requests to at most perSecond per second.
type RateLimited struct {
	inner   domain.Geocoder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. A non-positive perSecond disables limiting.
func NewRateLimited(inner domain.Geocoder, perSecond float64) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

func (r *RateLimited) Geocode(ctx context.Context, city, countryCode string) (domain.Coordinates, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, err
	}
	return r.inner.Geocode(ctx, city, countryCode)
}
