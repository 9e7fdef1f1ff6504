//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-risk/internal/geocoding"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_Geocode(t *testing.T) {
	c := smokeClient(t)

	coords, err := c.Geocode(context.Background(), "Austin", "US")
	require.NoError(t, err)

	assert.InDelta(t, 30.27, coords.Latitude, 0.1, "lat should be near Austin")
	assert.InDelta(t, -97.74, coords.Longitude, 0.1, "lon should be near Austin")
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := geocoding.NewCached(c, 10, observability.NewMetricsForTesting())

	// First call: cache miss, real API call.
	r1, err := cached.Geocode(context.Background(), "Dallas", "US")
	require.NoError(t, err)

	// Second call: cache hit, no API call.
	r2, err := cached.Geocode(context.Background(), "Dallas", "US")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
