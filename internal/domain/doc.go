// Package domain models USGS earthquake data and the property risk derived from it.
//
// # Data Source
//
// Seismic events come from the USGS FDSN event web service
// (https://earthquake.usgs.gov/fdsnws/event/1/query), queried as CSV for a fixed bounding
// box covering the conterminous US plus Alaska and the Canada-adjacent longitudes:
//
//	latitude  24.6 .. 71.2
//	longitude -168.7 .. -65
//
// # USGS Data Conventions
//
// Place format:
//
//	"<distance> km <compass> of <locality>, <designator>"  →  e.g. "5 km WNW of Dublin, CA"
//	The designator is either a two-letter state code ("CA") or a full name ("Texas").
//	Events offshore or outside the US use country names ("Canada", "Mexico", "MX"); those
//	fall inside the bounding box but are outside the insured territory and are dropped.
//	Some places carry no comma at all ("Gulf of Alaska"); the whole text is the designator.
//
// Time format:
//
//	RFC 3339 with fractional seconds and a zone, e.g. "2025-03-17T10:31:08.290Z".
//
// Magnitude:
//
//	Decimal on the reported magType scale. Small events may be reported as negative
//	values; they are clamped to zero because the risk model only accumulates positive
//	energy. Empty magnitudes make the record unusable and it is dropped.
//
// # Regions
//
// A [RegionTable] maps two-letter codes to region names and back. It is built once from a
// pipe-delimited reference file ("code|...|name") and injected wherever places are
// resolved. The embedded default covers the US states served by the insurer; Hawaii is
// intentionally absent.
//
// # Risk Model
//
// Each target location is scored against events within [DefaultRadiusKm] of it:
//
//	averageMagnitude = totalMagnitude / count
//	magnitudeFactor  = 1 / (MaxMagnitude - averageMagnitude)
//	countFactor      = 100 / (MaxEventCount - count)
//	totalRiskFactor  = magnitudeFactor + countFactor
//	shouldInsure     = totalRiskFactor < InsureThreshold
//
// Zero nearby events score as zero risk. Each factor is clamped to [SaturatedFactor],
// which also covers a denominator of zero or below, and a clamped target is declined.
// See [ScoreNearby].
package domain
