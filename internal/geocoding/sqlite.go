package geocoding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

const createCacheTable = `CREATE TABLE IF NOT EXISTS geocode_cache (
	query      TEXT PRIMARY KEY,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteCache persists successful lookups across runs in a SQLite file.
type SQLiteCache struct {
	inner   domain.Geocoder
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// OpenSQLiteCache opens (creating if needed) the cache database at path.
func OpenSQLiteCache(ctx context.Context, path string, inner domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createCacheTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init geocode cache %s: %w", path, err)
	}
	return &SQLiteCache{inner: inner, db: db, logger: logger, metrics: metrics}, nil
}

func (c *SQLiteCache) Geocode(ctx context.Context, city, countryCode string) (domain.Coordinates, error) {
	key := cacheKey(city, countryCode)

	var coords domain.Coordinates
	err := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM geocode_cache WHERE query = ?`, key,
	).Scan(&coords.Latitude, &coords.Longitude)
	switch {
	case err == nil:
		c.metrics.GeocodeCache.WithLabelValues(layerSQLite, observability.ResultHit).Inc()
		return coords, nil
	case !errors.Is(err, sql.ErrNoRows):
		c.logger.Warn("geocode cache read failed", "query", key, "error", err)
	}
	c.metrics.GeocodeCache.WithLabelValues(layerSQLite, observability.ResultMiss).Inc()

	coords, err = c.inner.Geocode(ctx, city, countryCode)
	if err != nil {
		return coords, err
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocode_cache (query, latitude, longitude, created_at) VALUES (?, ?, ?, ?)`,
		key, coords.Latitude, coords.Longitude, domain.Clock().Now().UTC().Format(time.RFC3339),
	); err != nil {
		c.logger.Warn("geocode cache write failed", "query", key, "error", err)
	}
	return coords, nil
}

// Close releases the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
