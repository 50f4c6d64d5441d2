package algo

import (
	"sort"

	"github.com/huangsam/leadscore/schema"
)

// RankResults sorts results by composite score in descending order and
// returns the top 'limit' results. Ties keep contact id order so rankings are
// stable across runs. A non-positive limit returns everything.
func RankResults(results []schema.ScoreResult, limit int) []schema.ScoreResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		return results[i].ContactID < results[j].ContactID
	})
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// CountTiers tallies results per tier.
func CountTiers(results []schema.ScoreResult) map[schema.Tier]int {
	counts := map[schema.Tier]int{schema.HotTier: 0, schema.WarmTier: 0, schema.ColdTier: 0}
	for _, r := range results {
		counts[r.Tier]++
	}
	return counts
}
