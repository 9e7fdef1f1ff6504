package domain

import (
	"context"
	"errors"
	"log/slog"
)

// LocateTarget geocodes the target's city and returns a copy with coordinates set.
// Failures are returned as *GeocodeError; a target without coordinates cannot be scored.
func LocateTarget(ctx context.Context, target TargetLocation, geocoder Geocoder, logger *slog.Logger) (TargetLocation, error) {
	if geocoder == nil {
		return target, &GeocodeError{Query: GeocodeQuery(target.City, DefaultCountryCode), Err: errors.New("no geocoder configured")}
	}

	coords, err := geocoder.Geocode(ctx, target.City, DefaultCountryCode)
	if err != nil {
		logger.Warn("target geocoding failed",
			"target", target.Name,
			"city", target.City,
			"region", target.Region,
			"error", err,
		)
		var gerr *GeocodeError
		if errors.As(err, &gerr) {
			return target, err
		}
		return target, &GeocodeError{Query: GeocodeQuery(target.City, DefaultCountryCode), Err: err}
	}

	target.Latitude = coords.Latitude
	target.Longitude = coords.Longitude
	logger.Debug("target located",
		"target", target.Name,
		"lat", coords.Latitude,
		"lon", coords.Longitude,
	)
	return target, nil
}
