package domain

import "gonum.org/v1/gonum/floats"

// Scoring defaults.
const (
	DefaultRadiusKm        = 200.0
	DefaultMaxMagnitude    = 10.0 // assumed ceiling of the Richter scale
	DefaultMaxEventCount   = 1000
	DefaultInsureThreshold = 0.22

	// SaturatedFactor is the ceiling of each factor. A factor whose denominator is
	// zero or negative, or whose value would reach the ceiling, is clamped to it.
	SaturatedFactor = 1.0
)

// RiskParams tunes the scoring model.
type RiskParams struct {
	RadiusKm        float64 `json:"radius_km"`
	MaxMagnitude    float64 `json:"max_magnitude"`
	MaxEventCount   int     `json:"max_event_count"`
	InsureThreshold float64 `json:"insure_threshold"`
}

// DefaultRiskParams returns the production scoring parameters.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		RadiusKm:        DefaultRadiusKm,
		MaxMagnitude:    DefaultMaxMagnitude,
		MaxEventCount:   DefaultMaxEventCount,
		InsureThreshold: DefaultInsureThreshold,
	}
}

// Score filters events to those within params.RadiusKm of the target and scores them.
func Score(target TargetLocation, events []SeismicEvent, params RiskParams) RiskAssessment {
	return ScoreNearby(FilterNearby(events, target.Latitude, target.Longitude, params.RadiusKm), params)
}

// Assess scores the target and returns a new AssessedLocation.
func Assess(target TargetLocation, events []SeismicEvent, params RiskParams) AssessedLocation {
	return AssessedLocation{Target: target, Risk: Score(target, events, params)}
}

// AssessIndexed is Assess over a prebuilt EventIndex.
func AssessIndexed(target TargetLocation, idx *EventIndex, params RiskParams) AssessedLocation {
	nearby := idx.Within(target.Latitude, target.Longitude, params.RadiusKm)
	return AssessedLocation{Target: target, Risk: ScoreNearby(nearby, params)}
}

// ScoreNearby scores events already known to be nearby.
//
// With no events the assessment is zero risk and insurable. A factor that would reach
// SaturatedFactor, including when the average magnitude reaches MaxMagnitude or the
// count reaches MaxEventCount, is clamped to it and the target is declined. Each
// factor is therefore non-decreasing in its input. The result never holds NaN
// or infinities.
func ScoreNearby(nearby []SeismicEvent, params RiskParams) RiskAssessment {
	n := len(nearby)
	if n == 0 {
		return RiskAssessment{ShouldInsure: true, Status: StatusNoNearbyEvents}
	}

	mags := make([]float64, n)
	for i, e := range nearby {
		mags[i] = e.Magnitude
	}
	total := floats.Sum(mags)
	avg := total / float64(n)

	magnitudeFactor, magOK := saturate(params.MaxMagnitude-avg, 1)
	countFactor, countOK := saturate(float64(params.MaxEventCount-n), 100)

	status := StatusScored
	if !magOK || !countOK {
		status = StatusSaturated
	}

	totalFactor := magnitudeFactor + countFactor
	insure := status == StatusScored && totalFactor < params.InsureThreshold

	return RiskAssessment{
		NearbyEventCount:     n,
		NearbyTotalMagnitude: total,
		AverageMagnitude:     avg,
		MagnitudeFactor:      magnitudeFactor,
		CountFactor:          countFactor,
		TotalRiskFactor:      totalFactor,
		ShouldInsure:         insure,
		Status:               status,
	}
}

// saturate returns scale/denom, or SaturatedFactor and false when denom is not
// positive or the quotient reaches SaturatedFactor.
func saturate(denom, scale float64) (float64, bool) {
	if denom <= 0 {
		return SaturatedFactor, false
	}
	f := (1 / denom) * scale
	if f >= SaturatedFactor {
		return SaturatedFactor, false
	}
	return f, true
}
