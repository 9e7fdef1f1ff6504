package domain

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
)

// pointTolerance gives event points a non-degenerate rectangle in the R-tree.
const pointTolerance = 1e-9

// indexedEvent adapts a SeismicEvent to rtreego.Spatial. seq preserves input order.
type indexedEvent struct {
	seq   int
	event SeismicEvent
	rect  rtreego.Rect
}

func (e *indexedEvent) Bounds() rtreego.Rect {
	return e.rect
}

// EventIndex answers radius queries over a fixed set of events. Coordinates are stored
// as (lon, lat) points; candidate boxes are conservative and every candidate is checked
// with IsWithin, so Within returns exactly what a linear filter would, in input order.
type EventIndex struct {
	events []SeismicEvent
	tree   *rtreego.Rtree
}

// NewEventIndex builds an index over events. The slice is copied.
func NewEventIndex(events []SeismicEvent) *EventIndex {
	idx := &EventIndex{
		events: slices.Clone(events),
		tree:   rtreego.NewTree(2, 25, 50),
	}
	for i, e := range idx.events {
		idx.tree.Insert(&indexedEvent{
			seq:   i,
			event: e,
			rect:  rtreego.Point{e.Longitude, e.Latitude}.ToRect(pointTolerance),
		})
	}
	return idx
}

// Len reports the number of indexed events.
func (idx *EventIndex) Len() int {
	return len(idx.events)
}

// Events returns a copy of the indexed events in input order.
func (idx *EventIndex) Events() []SeismicEvent {
	return slices.Clone(idx.events)
}

// Within returns the events at most radiusKm from (lat, lon), in input order.
func (idx *EventIndex) Within(lat, lon, radiusKm float64) []SeismicEvent {
	box, ok := boundingBox(lat, lon, radiusKm)
	if !ok {
		return FilterNearby(idx.events, lat, lon, radiusKm)
	}

	var hits []*indexedEvent
	for _, s := range idx.tree.SearchIntersect(box) {
		ie := s.(*indexedEvent)
		if IsWithin(ie.event.Latitude, ie.event.Longitude, lat, lon, radiusKm) {
			hits = append(hits, ie)
		}
	}
	slices.SortFunc(hits, func(a, b *indexedEvent) int { return a.seq - b.seq })

	var out []SeismicEvent
	for _, h := range hits {
		out = append(out, h.event)
	}
	return out
}

// FilterNearby is the linear reference filter: events at most radiusKm from (lat, lon).
func FilterNearby(events []SeismicEvent, lat, lon, radiusKm float64) []SeismicEvent {
	var out []SeismicEvent
	for _, e := range events {
		if IsWithin(e.Latitude, e.Longitude, lat, lon, radiusKm) {
			out = append(out, e)
		}
	}
	return out
}

// boxMargin widens the candidate box to absorb floating point error at its edges.
const boxMargin = 1e-6

// boundingBox returns a lon/lat rectangle containing every point within radiusKm of
// (lat, lon). It reports false when the circle reaches a pole or crosses the
// antimeridian; callers then fall back to a linear scan.
func boundingBox(lat, lon, radiusKm float64) (rtreego.Rect, bool) {
	if radiusKm < 0 {
		radiusKm = 0
	}
	angular := radiusKm / EarthRadiusKm
	latRad := toRadians(lat)

	minLat := latRad - angular
	maxLat := latRad + angular
	if minLat <= -math.Pi/2 || maxLat >= math.Pi/2 {
		return rtreego.Rect{}, false
	}

	dLon := math.Asin(math.Sin(angular) / math.Cos(latRad))
	if math.IsNaN(dLon) {
		return rtreego.Rect{}, false
	}
	lonRad := toRadians(lon)
	minLon := lonRad - dLon
	maxLon := lonRad + dLon
	if minLon <= -math.Pi || maxLon >= math.Pi {
		return rtreego.Rect{}, false
	}

	deg := 180 / math.Pi
	origin := rtreego.Point{minLon*deg - boxMargin, minLat*deg - boxMargin}
	rect, err := rtreego.NewRect(origin, []float64{
		(maxLon-minLon)*deg + 2*boxMargin,
		(maxLat-minLat)*deg + 2*boxMargin,
	})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}
