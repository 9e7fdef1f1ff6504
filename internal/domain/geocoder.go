package domain

import (
	"context"
	"errors"
	"fmt"
)

// DefaultCountryCode scopes city lookups to the United States.
const DefaultCountryCode = "US"

// ErrNoMatch is returned when the provider has no result for a query.
var ErrNoMatch = errors.New("no geocoding match")

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	// Geocode looks up "<city>, <countryCode>". It returns an error wrapping
	// ErrNoMatch when the provider has no result.
	Geocode(ctx context.Context, city, countryCode string) (Coordinates, error)
}

// GeocodeError reports a lookup that failed after any retries.
type GeocodeError struct {
	Query string
	Err   error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode %q: %v", e.Query, e.Err)
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// GeocodeQuery renders the provider query string for a city.
func GeocodeQuery(city, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return city + ", " + countryCode
}
