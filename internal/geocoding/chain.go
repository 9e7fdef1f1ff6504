package geocoding

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
	"github.com/couchcryptid/quake-risk/internal/retry"
)

// Options configures the decorator chain built by Wrap.
type Options struct {
	RatePerSecond float64       // provider requests per second; 0 disables limiting
	MaxElapsed    time.Duration // total retry budget per lookup
	CacheSize     int           // in-memory LRU entries; 0 disables the LRU
	CachePath     string        // SQLite cache file; empty disables persistence
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Wrap decorates provider as memory cache → SQLite cache → retry → rate limit → provider.
// The returned Closer releases the SQLite cache, if any.
func Wrap(ctx context.Context, provider domain.Geocoder, opts Options, logger *slog.Logger, metrics *observability.Metrics) (domain.Geocoder, io.Closer, error) {
	var g domain.Geocoder = NewRateLimited(provider, opts.RatePerSecond)
	g = NewRetrying(g, retry.GeocodePolicy(opts.MaxElapsed), logger)

	var closer io.Closer = nopCloser{}
	if opts.CachePath != "" {
		sc, err := OpenSQLiteCache(ctx, opts.CachePath, g, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		g, closer = sc, sc
	}
	if opts.CacheSize > 0 {
		g = NewCached(g, opts.CacheSize, metrics)
	}
	return g, closer, nil
}
