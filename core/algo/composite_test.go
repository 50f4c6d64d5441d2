package algo

import (
	"testing"

	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
)

func TestComposite(t *testing.T) {
	tests := []struct {
		name          string
		contributions []float64
		expected      int
	}{
		{name: "empty", contributions: nil, expected: 0},
		{name: "rounds half up", contributions: []float64{7.5, 20, 5, 25}, expected: 58},
		{name: "rounds down", contributions: []float64{10.2, 10.2}, expected: 20},
		{name: "clamped high", contributions: []float64{80, 40}, expected: 100},
		{name: "clamped low", contributions: []float64{-5}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Composite(tt.contributions))
		})
	}
}

func TestWeightedContribution(t *testing.T) {
	assert.InDelta(t, 7.5, WeightedContribution(30, 25), 1e-9)
	assert.InDelta(t, 0, WeightedContribution(100, 0), 1e-9)
	assert.InDelta(t, 100, WeightedContribution(100, 100), 1e-9)
}

func TestRankResults(t *testing.T) {
	results := []schema.ScoreResult{
		{ContactID: "c-3", Composite: 40},
		{ContactID: "c-2", Composite: 90},
		{ContactID: "c-1", Composite: 40},
		{ContactID: "c-4", Composite: 10},
	}

	ranked := RankResults(results, 3)
	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ContactID)
	}
	assert.Equal(t, []string{"c-2", "c-1", "c-3"}, ids)
	assert.Len(t, RankResults(results, 0), 4)
}

func TestCountTiers(t *testing.T) {
	counts := CountTiers([]schema.ScoreResult{
		{Tier: schema.HotTier},
		{Tier: schema.ColdTier},
		{Tier: schema.ColdTier},
	})
	assert.Equal(t, map[schema.Tier]int{schema.HotTier: 1, schema.WarmTier: 0, schema.ColdTier: 2}, counts)
}
