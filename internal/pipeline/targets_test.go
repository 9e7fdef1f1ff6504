package pipeline_test

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

func TestParseTargets(t *testing.T) {
	targets, err := pipeline.ParseTargets(strings.NewReader(clientCSV))
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, domain.TargetLocation{
		Name:        "Embarcadero Center",
		Location:    "San Francisco, CA",
		City:        "San Francisco",
		Region:      "CA",
		FullAddress: "4 Embarcadero Center, San Francisco, CA 94111",
	}, targets[0])
}

func TestParseTargets_MalformedLocation(t *testing.T) {
	tests := []string{"Portland", "Portland, OR, USA", ", OR", "Portland, "}
	for _, loc := range tests {
		t.Run(loc, func(t *testing.T) {
			input := "Building Name,Location,Full Address\n" +
				"Good,\"Austin, TX\",1 Main St\n" +
				"Bad,\"" + loc + "\",2 Main St\n"

			_, err := pipeline.ParseTargets(strings.NewReader(input))

			var merr *pipeline.MalformedLocationError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, 3, merr.Line)
			assert.Equal(t, "Bad", merr.Building)
			assert.Equal(t, loc, merr.Location)
		})
	}
}

func TestParseTargets_MissingColumns(t *testing.T) {
	_, err := pipeline.ParseTargets(strings.NewReader("Name,Location\nx,\"Austin, TX\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Building Name")
	assert.Contains(t, err.Error(), "Full Address")
}

func TestParseTargets_Empty(t *testing.T) {
	_, err := pipeline.ParseTargets(strings.NewReader(""))
	require.Error(t, err)

	targets, err := pipeline.ParseTargets(strings.NewReader("Building Name,Location,Full Address\n"))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestParseTargetsFile_SampleData(t *testing.T) {
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "data", "client_locations.csv")

	targets, err := pipeline.ParseTargetsFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, targets)
	for _, tgt := range targets {
		assert.NotEmpty(t, tgt.Name)
		assert.NotEmpty(t, tgt.City)
		assert.Len(t, tgt.Region, 2, "sample regions are state codes")
	}
}

func TestLocateTargets_PreservesOrderUnderConcurrency(t *testing.T) {
	geo := sampleGeocoder()
	targets, err := pipeline.ParseTargets(strings.NewReader(clientCSV))
	require.NoError(t, err)

	located, err := pipeline.LocateTargets(context.Background(), targets, geo, 3, discardLogger())
	require.NoError(t, err)

	require.Len(t, located, 3)
	assert.Equal(t, 37.7749, located[0].Latitude)
	assert.Equal(t, 34.0522, located[1].Latitude)
	assert.Equal(t, 40.7128, located[2].Latitude)
	assert.ElementsMatch(t, []string{"San Francisco", "Los Angeles", "New York"}, geo.calls)
}
