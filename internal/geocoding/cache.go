// Package geocoding decorates a domain.Geocoder with retries, rate limiting and caching.
package geocoding

import (
	"context"
	"strings"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/lru"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

// Cache layer label values.
const (
	layerMemory = "memory"
	layerSQLite = "sqlite"
)

// Cached wraps a Geocoder with an in-memory LRU cache. Only successful lookups are
// cached, so a failed city is retried on the next request.
type Cached struct {
	inner   domain.Geocoder
	cache   *lru.Cache[domain.Coordinates]
	metrics *observability.Metrics
}

// NewCached creates a cache decorator holding at most maxEntries cities.
func NewCached(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   lru.New[domain.Coordinates](maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) Geocode(ctx context.Context, city, countryCode string) (domain.Coordinates, error) {
	key := cacheKey(city, countryCode)
	if coords, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues(layerMemory, observability.ResultHit).Inc()
		return coords, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(layerMemory, observability.ResultMiss).Inc()

	coords, err := c.inner.Geocode(ctx, city, countryCode)
	if err != nil {
		return coords, err
	}
	c.cache.Put(key, coords)
	return coords, nil
}

// cacheKey normalizes a query so "Austin" and " austin " share an entry.
func cacheKey(city, countryCode string) string {
	return strings.ToLower(strings.TrimSpace(domain.GeocodeQuery(strings.TrimSpace(city), strings.ToUpper(countryCode))))
}
