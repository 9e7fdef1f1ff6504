package domain

import "time"

// RawQuakeRecord is one row of the USGS CSV feed. Only the columns the pipeline
// reads are mapped; the feed carries many more.
type RawQuakeRecord struct {
	Time      string `csv:"time" json:"time"`
	Latitude  string `csv:"latitude" json:"latitude"`
	Longitude string `csv:"longitude" json:"longitude"`
	Depth     string `csv:"depth" json:"depth,omitempty"`
	Mag       string `csv:"mag" json:"mag"`
	MagType   string `csv:"magType" json:"mag_type,omitempty"`
	ID        string `csv:"id" json:"id,omitempty"`
	Place     string `csv:"place" json:"place"`
	Type      string `csv:"type" json:"type,omitempty"`
}

// Region is a top-level jurisdiction (a US state) known to the RegionTable.
type Region struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Place is a resolved USGS place text.
type Place struct {
	Description string `json:"description,omitempty"` // local part, e.g. "5 km WNW of Dublin"
	Region      Region `json:"region"`
}

// SeismicEvent is a parsed earthquake inside a supported region.
type SeismicEvent struct {
	ID        string    `json:"id,omitempty"`
	Time      time.Time `json:"time"`
	Magnitude float64   `json:"magnitude"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Depth     float64   `json:"depth,omitempty"`
	Place     Place     `json:"place"`
}

// Region returns the region the event was attributed to.
func (e SeismicEvent) Region() Region {
	return e.Place.Region
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TargetLocation is a client property to assess.
type TargetLocation struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"` // "City, Region" as supplied
	City        string  `json:"city"`
	Region      string  `json:"region"`
	FullAddress string  `json:"full_address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Assessment status values.
const (
	StatusScored         = "scored"
	StatusNoNearbyEvents = "no_nearby_events"
	StatusSaturated      = "saturated"
)

// RiskAssessment is the outcome of scoring one target against a set of events.
type RiskAssessment struct {
	NearbyEventCount     int     `json:"nearby_event_count"`
	NearbyTotalMagnitude float64 `json:"nearby_total_magnitude"`
	AverageMagnitude     float64 `json:"average_magnitude"`
	MagnitudeFactor      float64 `json:"magnitude_factor"`
	CountFactor          float64 `json:"count_factor"`
	TotalRiskFactor      float64 `json:"total_risk_factor"`
	ShouldInsure         bool    `json:"should_insure"`
	Status               string  `json:"status"`
}

// AssessedLocation pairs a target with its assessment. Targets are never mutated
// by scoring; each run produces new AssessedLocation values.
type AssessedLocation struct {
	Target TargetLocation `json:"target"`
	Risk   RiskAssessment `json:"risk"`
}

// RegionRank is one row of the event-frequency ranking.
type RegionRank struct {
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Count          int     `json:"count"`
	TotalMagnitude float64 `json:"total_magnitude"`
}
