// Package usgs fetches earthquake records from the USGS FDSN event service.
package usgs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
	"github.com/couchcryptid/quake-risk/internal/retry"
)

// DefaultURL is the FDSN event query endpoint.
const DefaultURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// Bounding box covering the contiguous US and Alaska.
const (
	MinLatitude  = "24.6"
	MaxLatitude  = "71.2"
	MinLongitude = "-168.7"
	MaxLongitude = "-65"
)

// ErrUnavailable is returned when the service could not be reached after retries.
var ErrUnavailable = errors.New("usgs service unavailable")

// Client queries the USGS event API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a USGS client. An empty baseURL selects DefaultURL.
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
		logger:     logger,
		metrics:    metrics,
	}
}

type fetchResult struct {
	status int
	body   []byte
}

// FetchRaw returns the raw CSV rows for the window.
//
// Transport failures are retried per the policy and then reported as ErrUnavailable.
// A non-success status that survives the retries is logged and its body is still
// decoded, which normally yields no rows. Context cancellation is returned as is.
func (c *Client) FetchRaw(ctx context.Context, window domain.DateWindow) ([]domain.RawQuakeRecord, error) {
	start := time.Now()
	defer func() { c.metrics.SeismicFetchTime.Observe(time.Since(start).Seconds()) }()

	fullURL := c.baseURL + "?" + queryParams(window).Encode()

	res, err := retry.Do(ctx, c.policy, func(ctx context.Context) (fetchResult, error) {
		return c.get(ctx, fullURL)
	}, func(attempt int, err error, wait time.Duration) {
		c.logger.Debug("retrying usgs query", "attempt", attempt, "wait", wait, "error", err)
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.metrics.SeismicFetches.WithLabelValues(observability.OutcomeError).Inc()
			return nil, ctxErr
		}
		var se *retry.StatusError
		if !errors.As(err, &se) {
			c.metrics.SeismicFetches.WithLabelValues(observability.OutcomeError).Inc()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		c.logger.Error("usgs query failed",
			"window", window.String(),
			"status", se.Code,
			"attempts", c.policy.MaxAttempts,
		)
		c.metrics.SeismicFetches.WithLabelValues(observability.OutcomeDegraded).Inc()
	} else {
		c.metrics.SeismicFetches.WithLabelValues(observability.OutcomeSuccess).Inc()
	}

	records := c.decode(res.body)
	c.logger.Debug("usgs query complete", "window", window.String(), "status", res.status, "records", len(records))
	return records, nil
}

func (c *Client) get(ctx context.Context, fullURL string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fetchResult{}, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("usgs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{}, fmt.Errorf("read usgs response: %w", err)
	}

	res := fetchResult{status: resp.StatusCode, body: body}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return res, nil
	}
	statusErr := &retry.StatusError{Code: resp.StatusCode}
	if c.policy.ShouldRetryStatus(resp.StatusCode) {
		return res, statusErr
	}
	return res, retry.Permanent(statusErr)
}

// decode reads CSV rows leniently: rows that fail to decode are logged and skipped.
func (c *Client) decode(body []byte) []domain.RawQuakeRecord {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.logger.Error("usgs response is not csv", "error", err)
		}
		return nil
	}

	var out []domain.RawQuakeRecord
	for {
		var rec domain.RawQuakeRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && !errors.Is(perr.Err, csv.ErrFieldCount) {
				c.logger.Error("usgs csv unreadable, truncating", "error", err, "records", len(out))
				return out
			}
			c.logger.Warn("skipping undecodable usgs row", "error", err)
			c.metrics.RecordsDropped.WithLabelValues(observability.DropInvalid).Inc()
			continue
		}
		out = append(out, rec)
	}
}

func queryParams(window domain.DateWindow) url.Values {
	return url.Values{
		"format":       {"csv"},
		"eventtype":    {"earthquake"},
		"minlatitude":  {MinLatitude},
		"maxlatitude":  {MaxLatitude},
		"minlongitude": {MinLongitude},
		"maxlongitude": {MaxLongitude},
		"starttime":    {window.Start},
		"endtime":      {window.End},
	}
}
