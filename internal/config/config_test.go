package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

// inTempDir keeps a developer's .env file out of the test.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "https://earthquake.usgs.gov/fdsnws/event/1/query", cfg.USGSURL)
	assert.Equal(t, 30*time.Second, cfg.USGSTimeout)
	assert.Equal(t, 5, cfg.USGSMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.USGSBackoffBase)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, 32, cfg.SeismicCacheWindows)

	assert.Empty(t, cfg.RegionsFile)
	assert.Equal(t, "data/client_locations.csv", cfg.ClientLocationsFile)

	assert.Equal(t, ProviderNominatim, cfg.GeocoderProvider)
	assert.Equal(t, "quake-risk/1.0", cfg.NominatimUserAgent)
	assert.Equal(t, 60*time.Second, cfg.GeocodeMaxElapsed)
	assert.Equal(t, 1.0, cfg.GeocodeRateLimit)
	assert.Equal(t, 1, cfg.GeocodeConcurrency)
	assert.Equal(t, 1000, cfg.GeocodeCacheSize)
	assert.Empty(t, cfg.GeocodeCachePath)

	assert.Equal(t, 200.0, cfg.RiskRadiusKm)
	assert.Equal(t, 0.22, cfg.RiskThreshold)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "quake-risk-assessments", cfg.KafkaTopic)
	assert.Equal(t, "@every 1h", cfg.RefreshSchedule)
}

func TestLoad_CustomEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("USGS_MAX_ATTEMPTS", "3")
	t.Setenv("LOOKBACK_DAYS", "30")
	t.Setenv("SEISMIC_CACHE_WINDOWS", "4")
	t.Setenv("GEOCODER_PROVIDER", "Mapbox")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("GEOCODE_RATE_LIMIT", "0")
	t.Setenv("GEOCODE_CONCURRENCY", "4")
	t.Setenv("GEOCODE_CACHE_PATH", "/tmp/geocode.db")
	t.Setenv("RISK_RADIUS_KM", "150.5")
	t.Setenv("RISK_THRESHOLD", "0.3")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "risk")
	t.Setenv("REFRESH_SCHEDULE", "0 6 * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.USGSMaxAttempts)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 4, cfg.SeismicCacheWindows)
	assert.Equal(t, ProviderMapbox, cfg.GeocoderProvider)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 0.0, cfg.GeocodeRateLimit)
	assert.Equal(t, 4, cfg.GeocodeConcurrency)
	assert.Equal(t, "/tmp/geocode.db", cfg.GeocodeCachePath)
	assert.Equal(t, 150.5, cfg.RiskRadiusKm)
	assert.Equal(t, 0.3, cfg.RiskThreshold)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "risk", cfg.KafkaTopic)
	assert.Equal(t, "0 6 * * *", cfg.RefreshSchedule)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOOKBACK_DAYS=14\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LOOKBACK_DAYS") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.LookbackDays)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"SHUTDOWN_TIMEOUT":      "not-a-duration",
		"USGS_TIMEOUT":          "-1s",
		"USGS_MAX_ATTEMPTS":     "0",
		"LOOKBACK_DAYS":         "week",
		"SEISMIC_CACHE_WINDOWS": "0",
		"GEOCODE_MAX_ELAPSED":   "bad",
		"GEOCODE_RATE_LIMIT":    "-2",
		"GEOCODE_CONCURRENCY":   "-1",
		"RISK_RADIUS_KM":        "0",
		"RISK_THRESHOLD":        "high",
		"MAPBOX_TIMEOUT":        "bad",
		"GEOCODER_PROVIDER":     "google",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			inTempDir(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_MapboxWithoutToken(t *testing.T) {
	inTempDir(t)
	t.Setenv("GEOCODER_PROVIDER", "mapbox")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_KafkaEnabledWithoutTopic(t *testing.T) {
	inTempDir(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_TOPIC", "")
	cfg, err := Load()
	// An empty KAFKA_TOPIC falls back to the default.
	require.NoError(t, err)
	assert.Equal(t, "quake-risk-assessments", cfg.KafkaTopic)
}
