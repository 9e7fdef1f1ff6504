package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func eventIn(name, code string, mag float64) SeismicEvent {
	return SeismicEvent{Magnitude: mag, Place: Place{Region: Region{Name: name, Code: code}}}
}

func TestRankRegionsByEventFrequency(t *testing.T) {
	events := []SeismicEvent{
		eventIn("Nevada", "NV", 1.0),
		eventIn("California", "CA", 2.5),
		eventIn("Alaska", "AK", 3.0),
		eventIn("California", "CA", 1.5),
		eventIn("Alaska", "AK", 1.0),
		eventIn("California", "CA", 0.5),
		eventIn("Texas", "TX", 2.0),
	}

	want := []RegionRank{
		{Name: "California", Code: "CA", Count: 3, TotalMagnitude: 4.5},
		{Name: "Alaska", Code: "AK", Count: 2, TotalMagnitude: 4.0},
		{Name: "Nevada", Code: "NV", Count: 1, TotalMagnitude: 1.0},
		{Name: "Texas", Code: "TX", Count: 1, TotalMagnitude: 2.0},
	}

	got := RankRegionsByEventFrequency(events)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRankRegionsByEventFrequency_TiesKeepFirstOccurrence(t *testing.T) {
	events := []SeismicEvent{
		eventIn("Washington", "WA", 1),
		eventIn("Alabama", "AL", 1),
		eventIn("Oklahoma", "OK", 1),
		eventIn("Alabama", "AL", 1),
		eventIn("Washington", "WA", 1),
		eventIn("Oklahoma", "OK", 1),
	}

	got := RankRegionsByEventFrequency(events)

	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Name
	}
	if diff := cmp.Diff([]string{"Washington", "Alabama", "Oklahoma"}, names); diff != "" {
		t.Fatalf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestRankRegionsByEventFrequency_Empty(t *testing.T) {
	if got := RankRegionsByEventFrequency(nil); len(got) != 0 {
		t.Fatalf("expected no ranks, got %v", got)
	}
}
