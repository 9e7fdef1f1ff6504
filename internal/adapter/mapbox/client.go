// Package mapbox implements domain.Geocoder using the Mapbox forward geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
)

// DefaultURL is the Mapbox places endpoint.
const DefaultURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

const provider = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode converts a city name to coordinates, restricted to countryCode.
func (c *Client) Geocode(ctx context.Context, city, countryCode string) (domain.Coordinates, error) {
	if countryCode == "" {
		countryCode = domain.DefaultCountryCode
	}
	query := domain.GeocodeQuery(city, countryCode)

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
		"country":      {strings.ToLower(countryCode)},
	}

	start := time.Now()
	coords, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, observability.OutcomeSuccess).Inc()
	case errors.Is(err, domain.ErrNoMatch):
		c.metrics.GeocodeRequests.WithLabelValues(provider, observability.OutcomeNoMatch).Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, observability.OutcomeError).Inc()
		c.logger.Debug("mapbox request failed", "query", query, "error", err)
	}
	return coords, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 || len(mapboxResp.Features[0].Center) != 2 {
		return domain.Coordinates{}, domain.ErrNoMatch
	}

	// Mapbox uses lon,lat order.
	center := mapboxResp.Features[0].Center
	return domain.Coordinates{Latitude: center[1], Longitude: center[0]}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Relevance float64   `json:"relevance"`
}
