package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ThresholdSet holds the minimum composite scores for the Hot and Warm tiers.
// Anything below WarmMin is Cold.
type ThresholdSet struct {
	HotMin  int `json:"hot_min" yaml:"hot_min"`
	WarmMin int `json:"warm_min" yaml:"warm_min"`
}

// DefaultThresholdProfile names the profile used when none is configured.
const DefaultThresholdProfile = "standard"

// ThresholdProfiles are the named threshold pairs new framework
// configurations can be seeded from.
var ThresholdProfiles = map[string]ThresholdSet{
	"standard":     {HotMin: 71, WarmMin: 40},
	"strict":       {HotMin: 80, WarmMin: 60},
	"conservative": {HotMin: 85, WarmMin: 65},
}

// ThresholdProfileNames returns the profile names sorted.
func ThresholdProfileNames() []string {
	names := make([]string, 0, len(ThresholdProfiles))
	for name := range ThresholdProfiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupThresholdProfile returns the thresholds for a named profile.
func LookupThresholdProfile(name string) (ThresholdSet, error) {
	ts, ok := ThresholdProfiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ThresholdSet{}, fmt.Errorf("unknown threshold profile %q (must be one of %s)", name, strings.Join(ThresholdProfileNames(), ", "))
	}
	return ts, nil
}

// Validate requires 0 <= WarmMin < HotMin <= 100.
func (t ThresholdSet) Validate() error {
	if t.WarmMin < MinScore || t.HotMin > MaxScore || t.WarmMin >= t.HotMin {
		return fmt.Errorf("%w: need 0 <= warm_min < hot_min <= 100, got warm_min=%d hot_min=%d", ErrInvalidThresholds, t.WarmMin, t.HotMin)
	}
	return nil
}

// Classify maps a composite score to its tier.
func (t ThresholdSet) Classify(composite int) Tier {
	switch {
	case composite >= t.HotMin:
		return HotTier
	case composite >= t.WarmMin:
		return WarmTier
	default:
		return ColdTier
	}
}

func (t ThresholdSet) String() string {
	return fmt.Sprintf("hot>=%d warm>=%d", t.HotMin, t.WarmMin)
}
