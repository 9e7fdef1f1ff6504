package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Geocoder providers.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS event service.
	USGSURL         string
	USGSTimeout     time.Duration
	USGSMaxAttempts int
	USGSBackoffBase time.Duration
	LookbackDays    int

	// Most recently used date windows kept in the seismic cache.
	SeismicCacheWindows int

	// Input files. An empty RegionsFile selects the embedded table.
	RegionsFile         string
	ClientLocationsFile string

	// Geocoding.
	GeocoderProvider   string
	NominatimURL       string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeMaxElapsed  time.Duration
	GeocodeRateLimit   float64
	GeocodeConcurrency int
	GeocodeCacheSize   int
	GeocodeCachePath   string
	MapboxToken        string
	MapboxTimeout      time.Duration

	// Scoring.
	RiskRadiusKm  float64
	RiskThreshold float64

	// Publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Cron expression for serve-mode refresh.
	RefreshSchedule string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; variables that
// are already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSURL:         sharedcfg.EnvOrDefault("USGS_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		USGSTimeout:     p.duration("USGS_TIMEOUT", "30s"),
		USGSMaxAttempts: p.positiveInt("USGS_MAX_ATTEMPTS", 5),
		USGSBackoffBase: p.duration("USGS_BACKOFF_BASE", "100ms"),
		LookbackDays:    p.positiveInt("LOOKBACK_DAYS", 7),

		SeismicCacheWindows: p.positiveInt("SEISMIC_CACHE_WINDOWS", 32),

		RegionsFile:         os.Getenv("REGIONS_FILE"),
		ClientLocationsFile: sharedcfg.EnvOrDefault("CLIENT_LOCATIONS_FILE", "data/client_locations.csv"),

		GeocoderProvider:   strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "quake-risk/1.0"),
		GeocodeTimeout:     p.duration("GEOCODE_TIMEOUT", "10s"),
		GeocodeMaxElapsed:  p.duration("GEOCODE_MAX_ELAPSED", "60s"),
		GeocodeRateLimit:   p.nonNegativeFloat("GEOCODE_RATE_LIMIT", 1),
		GeocodeConcurrency: p.positiveInt("GEOCODE_CONCURRENCY", 1),
		GeocodeCacheSize:   p.positiveInt("GEOCODE_CACHE_SIZE", 1000),
		GeocodeCachePath:   os.Getenv("GEOCODE_CACHE_PATH"),
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:      p.duration("MAPBOX_TIMEOUT", "5s"),

		RiskRadiusKm:  p.positiveFloat("RISK_RADIUS_KM", 200),
		RiskThreshold: p.positiveFloat("RISK_THRESHOLD", 0.22),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "quake-risk-assessments"),

		RefreshSchedule: sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@every 1h"),
	}
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.GeocoderProvider {
	case ProviderNominatim:
		if cfg.NominatimUserAgent == "" {
			return nil, errors.New("NOMINATIM_USER_AGENT is required")
		}
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q", cfg.GeocoderProvider)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required")
		}
	}

	return cfg, nil
}

// parser records the first invalid variable and returns defaults afterwards.
type parser struct {
	err error
}

func (p *parser) fail(key, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %q", key, value)
	}
}

func (p *parser) duration(key, def string) time.Duration {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		p.fail(key, s)
		return 0
	}
	return d
}

func (p *parser) positiveInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		p.fail(key, s)
		return def
	}
	return n
}

func (p *parser) positiveFloat(key string, def float64) float64 {
	f, ok := p.float(key, def)
	if ok && f <= 0 {
		p.fail(key, os.Getenv(key))
		return def
	}
	return f
}

func (p *parser) nonNegativeFloat(key string, def float64) float64 {
	f, ok := p.float(key, def)
	if ok && f < 0 {
		p.fail(key, os.Getenv(key))
		return def
	}
	return f
}

func (p *parser) float(key string, def float64) (float64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return def, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s)
		return def, false
	}
	return f, true
}
