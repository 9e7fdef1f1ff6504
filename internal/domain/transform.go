package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuakeTimeLayout matches USGS timestamps such as "2025-03-17T10:31:08.290Z".
// Fractional seconds are optional and the zone may be "Z" or an offset.
const QuakeTimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// ErrInvalidRecord marks raw rows that cannot be turned into an event.
var ErrInvalidRecord = errors.New("invalid quake record")

// ParseQuakeRecord converts a raw USGS row into a SeismicEvent. Place resolution errors
// are returned unchanged (wrapping ErrExcludedRegion or ErrUnknownRegion) so callers
// can tell "outside territory" from "malformed".
func ParseQuakeRecord(rec RawQuakeRecord, regions *RegionTable) (SeismicEvent, error) {
	place, err := regions.ResolvePlaceText(rec.Place)
	if err != nil {
		return SeismicEvent{}, err
	}

	t, err := time.Parse(QuakeTimeLayout, strings.TrimSpace(rec.Time))
	if err != nil {
		return SeismicEvent{}, fmt.Errorf("%w: time %q: %w", ErrInvalidRecord, rec.Time, err)
	}
	mag, err := parseFloat(rec.Mag)
	if err != nil {
		return SeismicEvent{}, fmt.Errorf("%w: mag %q: %w", ErrInvalidRecord, rec.Mag, err)
	}
	lat, err := parseFloat(rec.Latitude)
	if err != nil || lat < -90 || lat > 90 {
		return SeismicEvent{}, fmt.Errorf("%w: latitude %q", ErrInvalidRecord, rec.Latitude)
	}
	lon, err := parseFloat(rec.Longitude)
	if err != nil || lon < -180 || lon > 180 {
		return SeismicEvent{}, fmt.Errorf("%w: longitude %q", ErrInvalidRecord, rec.Longitude)
	}
	depth, _ := parseFloat(rec.Depth)

	return SeismicEvent{
		ID:        strings.TrimSpace(rec.ID),
		Time:      t,
		Magnitude: normalizeMagnitude(mag),
		Latitude:  lat,
		Longitude: lon,
		Depth:     depth,
		Place:     place,
	}, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// normalizeMagnitude clamps negative magnitudes (reported for micro-quakes) to zero.
func normalizeMagnitude(mag float64) float64 {
	if mag < 0 {
		return 0
	}
	return mag
}
