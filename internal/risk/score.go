// Package risk computes the bounded risk value attached to each candidate.
package risk

import "math"

const (
	chronicMultiplier = 1.2
	ageThreshold      = 50
	ageDivisor        = 200.0
	rankWeight        = 0.6
	severityWeight    = 0.4
)

// Score combines the ranking confidence and condition severity, scaled up for
// chronic conditions and for ages above 50. The result is clamped to [0,1]
// and rounded to 3 decimals. It has no side effects.
func Score(finalScore, severityScore float64, age int, hasChronicConditions bool) float64 {
	chronicFactor := 1.0
	if hasChronicConditions {
		chronicFactor = chronicMultiplier
	}
	ageFactor := 1.0 + math.Max(0, float64(age-ageThreshold)/ageDivisor)

	base := rankWeight*finalScore + severityWeight*severityScore
	r := math.Min(1.0, base*chronicFactor*ageFactor)
	if r < 0 || math.IsNaN(r) {
		r = 0
	}
	return Round3(r)
}

// Round3 rounds v to 3 decimal places, half away from zero.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
