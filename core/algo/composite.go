package algo

import (
	"math"

	"github.com/huangsam/leadscore/schema"
)

// ClampScore bounds a score to [0, 100].
func ClampScore(score int) int {
	return min(max(score, schema.MinScore), schema.MaxScore)
}

// WeightedContribution is raw * weight / 100, kept fractional until the
// composite is rounded.
func WeightedContribution(raw, weight int) float64 {
	return float64(raw) * float64(weight) / float64(schema.WeightTotal)
}

// Composite sums the weighted contributions and rounds half away from zero.
func Composite(contributions []float64) int {
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	return ClampScore(int(math.Round(sum)))
}
