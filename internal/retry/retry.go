// Package retry runs operations under bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how an operation is retried. Zero fields take the defaults
// applied by withDefaults; MaxElapsed of zero means no elapsed-time budget.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// Multiplier scales the delay after each retry.
	Multiplier float64

	// MaxInterval caps a single delay.
	MaxInterval time.Duration

	// MaxElapsed bounds the total time spent retrying.
	MaxElapsed time.Duration

	// Jitter randomizes each delay by ±Jitter of its value.
	Jitter float64

	// RetryStatuses lists HTTP status codes that count as transient.
	RetryStatuses []int
}

// DefaultRetryStatuses are the HTTP statuses retried when fetching seismic data.
var DefaultRetryStatuses = []int{400, 401, 403, 500, 502, 503, 504}

// USGSPolicy is the seismic fetch policy: five attempts, 100ms base doubling.
func USGSPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     5 * time.Second,
		RetryStatuses:   DefaultRetryStatuses,
	}
}

// DefaultGeocodeBudget bounds the time spent retrying one geocode lookup.
const DefaultGeocodeBudget = 60 * time.Second

// GeocodePolicy retries provider lookups until maxElapsed has passed.
func GeocodePolicy(maxElapsed time.Duration) Policy {
	if maxElapsed <= 0 {
		maxElapsed = DefaultGeocodeBudget
	}
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     15 * time.Second,
		MaxElapsed:      maxElapsed,
		Jitter:          0.25,
	}
}

func (p Policy) withDefaults() Policy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = 100 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 30 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// ShouldRetryStatus reports whether code is in the policy's retry set.
func (p Policy) ShouldRetryStatus(code int) bool {
	return slices.Contains(p.RetryStatuses, code)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = p.Multiplier
	exp.MaxInterval = p.MaxInterval
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = p.MaxElapsed
	exp.Reset()

	var b backoff.BackOff = exp
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Notify is called after a failed attempt that will be retried.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns a Permanent error, the policy is exhausted,
// or ctx is done. On exhaustion it returns the last value and error produced by op.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify Notify) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		return op(ctx)
	}
	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) { notify(attempt, err, wait) }
	}
	return backoff.RetryNotifyWithData(operation, p.backOff(ctx), onRetry)
}

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// StatusError reports an HTTP response whose status is not a success.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// IsStatus reports whether err carries an HTTP status error with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
