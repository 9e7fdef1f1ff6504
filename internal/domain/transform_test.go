package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPlaceCA = "10 km NNE of Lake Pillsbury, CA"
	testQuakeID = "nc75150006"
)

func mustDefaultRegions(t *testing.T) *RegionTable {
	t.Helper()
	regions, err := DefaultRegionTable()
	require.NoError(t, err)
	return regions
}

func TestParseQuakeRecord(t *testing.T) {
	regions := mustDefaultRegions(t)

	t.Run("state code place", func(t *testing.T) {
		rec := RawQuakeRecord{
			Time:      "2025-03-17T10:31:08.290Z",
			Latitude:  "39.4998321533203",
			Longitude: "-122.950164794922",
			Depth:     "4.46999979019165",
			Mag:       "2.54",
			ID:        testQuakeID,
			Place:     testPlaceCA,
			Type:      "earthquake",
		}
		event, err := ParseQuakeRecord(rec, regions)

		require.NoError(t, err)
		assert.Equal(t, testQuakeID, event.ID)
		assert.Equal(t, time.Date(2025, 3, 17, 10, 31, 8, 290_000_000, time.UTC), event.Time.UTC())
		assert.Equal(t, 2.54, event.Magnitude)
		assert.Equal(t, 39.4998321533203, event.Latitude)
		assert.Equal(t, -122.950164794922, event.Longitude)
		assert.InDelta(t, 4.47, event.Depth, 0.001)
		assert.Equal(t, Region{Name: "California", Code: "CA"}, event.Region())
		assert.Equal(t, "10 km NNE of Lake Pillsbury", event.Place.Description)
	})

	t.Run("state name place", func(t *testing.T) {
		rec := RawQuakeRecord{
			Time:      "2025-03-17T09:35:00.123Z",
			Latitude:  "39.0627",
			Longitude: "-98.7019",
			Mag:       "3",
			Place:     "5 km SSW of Luray, Kansas",
		}
		event, err := ParseQuakeRecord(rec, regions)

		require.NoError(t, err)
		assert.Equal(t, Region{Name: "Kansas", Code: "KS"}, event.Region())
		assert.Equal(t, 3.0, event.Magnitude)
	})

	t.Run("zone offset timestamp", func(t *testing.T) {
		rec := RawQuakeRecord{
			Time:      "2025-03-17T02:31:08.290-08:00",
			Latitude:  "39.5",
			Longitude: "-122.9",
			Mag:       "1.1",
			Place:     testPlaceCA,
		}
		event, err := ParseQuakeRecord(rec, regions)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 17, 10, 31, 8, 290_000_000, time.UTC), event.Time.UTC())
	})

	t.Run("negative magnitude clamped", func(t *testing.T) {
		rec := RawQuakeRecord{
			Time:      "2025-03-17T10:31:08.290Z",
			Latitude:  "61.2",
			Longitude: "-149.9",
			Mag:       "-0.4",
			Place:     "12 km N of Anchorage, Alaska",
		}
		event, err := ParseQuakeRecord(rec, regions)

		require.NoError(t, err)
		assert.Zero(t, event.Magnitude)
	})

	t.Run("excluded region", func(t *testing.T) {
		rec := RawQuakeRecord{Time: "2025-03-17T10:31:08.290Z", Mag: "4.1", Place: "30 km W of Ensenada, B.C., MX"}
		_, err := ParseQuakeRecord(rec, regions)
		assert.ErrorIs(t, err, ErrExcludedRegion)
	})

	t.Run("unknown region", func(t *testing.T) {
		rec := RawQuakeRecord{Time: "2025-03-17T10:31:08.290Z", Mag: "4.1", Place: "Gulf of Alaska"}
		_, err := ParseQuakeRecord(rec, regions)
		assert.ErrorIs(t, err, ErrUnknownRegion)
	})

	t.Run("invalid magnitude", func(t *testing.T) {
		rec := RawQuakeRecord{Time: "2025-03-17T10:31:08.290Z", Latitude: "39", Longitude: "-98", Mag: "", Place: testPlaceCA}
		_, err := ParseQuakeRecord(rec, regions)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("invalid time", func(t *testing.T) {
		rec := RawQuakeRecord{Time: "17/03/2025", Latitude: "39", Longitude: "-98", Mag: "2", Place: testPlaceCA}
		_, err := ParseQuakeRecord(rec, regions)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("latitude out of range", func(t *testing.T) {
		rec := RawQuakeRecord{Time: "2025-03-17T10:31:08.290Z", Latitude: "91", Longitude: "-98", Mag: "2", Place: testPlaceCA}
		_, err := ParseQuakeRecord(rec, regions)
		assert.True(t, errors.Is(err, ErrInvalidRecord))
	})
}

func TestNormalizeMagnitude(t *testing.T) {
	assert.Equal(t, 0.0, normalizeMagnitude(-1.2))
	assert.Equal(t, 0.0, normalizeMagnitude(0))
	assert.Equal(t, 4.5, normalizeMagnitude(4.5))
}
