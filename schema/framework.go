package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/multierr"
)

// TitleTier is one seniority bucket for the title tier evaluator.
type TitleTier struct {
	Name     string       `json:"name" yaml:"name"`
	Score    int          `json:"score" yaml:"score"`
	Keywords []string     `json:"keywords" yaml:"keywords"`
	Match    KeywordMatch `json:"match,omitempty" yaml:"match,omitempty"`
}

// DimensionOptions are the auxiliary inputs of a dimension's evaluator.
// Only the fields relevant to the evaluator kind are read.
type DimensionOptions struct {
	Fields     []PayloadField `json:"fields,omitempty" yaml:"fields,omitempty"`           // Payload fields read, in priority order
	Keywords   []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`       // keyword_presence
	Match      KeywordMatch   `json:"match,omitempty" yaml:"match,omitempty"`             // keyword_presence, substring unless "word"
	TitleTiers []TitleTier    `json:"title_tiers,omitempty" yaml:"title_tiers,omitempty"` // title_tier, highest first
	Min        float64        `json:"min,omitempty" yaml:"min,omitempty"`                 // numeric_range lower bound
	Max        float64        `json:"max,omitempty" yaml:"max,omitempty"`                 // numeric_range upper bound
	Steps      []int          `json:"steps,omitempty" yaml:"steps,omitempty"`             // numeric_range bucket scores
	WindowDays int            `json:"window_days,omitempty" yaml:"window_days,omitempty"` // recency_window
	Floor      int            `json:"floor" yaml:"floor"`                                 // Score when nothing qualifies
}

// Clone returns a deep copy of the options.
func (o DimensionOptions) Clone() DimensionOptions {
	out := o
	out.Fields = slices.Clone(o.Fields)
	out.Keywords = slices.Clone(o.Keywords)
	out.Steps = slices.Clone(o.Steps)
	if o.TitleTiers != nil {
		out.TitleTiers = make([]TitleTier, len(o.TitleTiers))
		for i, t := range o.TitleTiers {
			out.TitleTiers[i] = TitleTier{Name: t.Name, Score: t.Score, Keywords: slices.Clone(t.Keywords), Match: t.Match}
		}
	}
	return out
}

// Validate checks the options against what the evaluator kind needs.
func (o DimensionOptions) Validate(kind EvaluatorKind) error {
	var err error
	if o.Floor < MinScore || o.Floor > MaxScore {
		err = multierr.Append(err, fmt.Errorf("floor %d is outside 0..100", o.Floor))
	}
	if len(o.Fields) == 0 {
		err = multierr.Append(err, errors.New("no payload fields configured"))
	}
	for _, f := range o.Fields {
		if _, ok := ValidPayloadFields[f]; !ok {
			err = multierr.Append(err, fmt.Errorf("unknown payload field %q", f))
		}
	}
	switch kind {
	case TitleTierEvaluator:
		if len(o.TitleTiers) == 0 {
			err = multierr.Append(err, errors.New("no title tiers configured"))
		}
		for _, t := range o.TitleTiers {
			if t.Score < MinScore || t.Score > MaxScore {
				err = multierr.Append(err, fmt.Errorf("title tier %s score %d is outside 0..100", t.Name, t.Score))
			}
			if len(t.Keywords) == 0 {
				err = multierr.Append(err, fmt.Errorf("title tier %s has no keywords", t.Name))
			}
			if !t.Match.Valid() {
				err = multierr.Append(err, fmt.Errorf("title tier %s has unknown match %q", t.Name, t.Match))
			}
		}
	case NumericRangeEvaluator:
		if o.Max <= o.Min {
			err = multierr.Append(err, fmt.Errorf("numeric range max %g must exceed min %g", o.Max, o.Min))
		}
		if len(o.Steps) == 0 {
			err = multierr.Append(err, errors.New("no numeric range steps configured"))
		}
		for _, s := range o.Steps {
			if s < MinScore || s > MaxScore {
				err = multierr.Append(err, fmt.Errorf("numeric range step %d is outside 0..100", s))
			}
		}
	case KeywordPresenceEvaluator:
		if len(o.Keywords) == 0 {
			err = multierr.Append(err, errors.New("no keywords configured"))
		}
		if !o.Match.Valid() {
			err = multierr.Append(err, fmt.Errorf("unknown keyword match %q", o.Match))
		}
	case RecencyWindowEvaluator:
		if o.WindowDays <= 0 {
			err = multierr.Append(err, fmt.Errorf("window_days %d must be positive", o.WindowDays))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown evaluator kind %q", kind))
	}
	return err
}

// DimensionSpec is one row of a framework's declarative definition.
type DimensionSpec struct {
	Key         DimensionKey
	Kind        EvaluatorKind
	Weight      int
	Description string
	Options     DimensionOptions
}

// FrameworkConfig is a tenant's scoring configuration for one framework.
// Treat it as a value: edits go through the With* methods which copy.
type FrameworkConfig struct {
	Framework  FrameworkID                       `json:"framework_id" yaml:"framework_id"`
	Weights    WeightSet                         `json:"weights" yaml:"-"`
	Thresholds ThresholdSet                      `json:"thresholds" yaml:"thresholds"`
	Dimensions map[DimensionKey]DimensionOptions `json:"dimensions" yaml:"dimensions"`
	Version    int                               `json:"version" yaml:"version"`
	UpdatedAt  time.Time                         `json:"updated_at,omitzero" yaml:"-"`
}

// Clone returns a deep copy of the configuration.
func (c FrameworkConfig) Clone() FrameworkConfig {
	out := c
	out.Weights = NewWeightSet(c.Weights.entries...)
	if c.Dimensions != nil {
		out.Dimensions = make(map[DimensionKey]DimensionOptions, len(c.Dimensions))
		for k, v := range c.Dimensions {
			out.Dimensions[k] = v.Clone()
		}
	}
	return out
}

// WithWeights returns a copy using ws.
func (c FrameworkConfig) WithWeights(ws WeightSet) FrameworkConfig {
	out := c.Clone()
	out.Weights = NewWeightSet(ws.entries...)
	return out
}

// WithThresholds returns a copy using ts.
func (c FrameworkConfig) WithThresholds(ts ThresholdSet) FrameworkConfig {
	out := c.Clone()
	out.Thresholds = ts
	return out
}

// WithDimension returns a copy with key's options replaced.
func (c FrameworkConfig) WithDimension(key DimensionKey, opts DimensionOptions) FrameworkConfig {
	out := c.Clone()
	if out.Dimensions == nil {
		out.Dimensions = make(map[DimensionKey]DimensionOptions)
	}
	out.Dimensions[key] = opts.Clone()
	return out
}

// IsValid reports whether the configuration may be used for scoring.
func (c FrameworkConfig) IsValid() bool {
	return c.Validate() == nil
}

// Validate returns an *InvalidConfigurationError listing every violation.
func (c FrameworkConfig) Validate() error {
	specs, ok := frameworkTable[c.Framework]
	if !ok {
		return &InvalidConfigurationError{Framework: c.Framework, Err: fmt.Errorf("%w: %q", ErrUnknownFramework, c.Framework)}
	}

	err := c.Weights.Validate()
	err = multierr.Append(err, c.Thresholds.Validate())

	want := make([]DimensionKey, 0, len(specs))
	for _, s := range specs {
		want = append(want, s.Key)
	}
	got := c.Weights.Keys()
	for _, k := range got {
		if !slices.Contains(want, k) {
			err = multierr.Append(err, fmt.Errorf("%w: %s has no dimension %q", ErrUnknownDimension, c.Framework, k))
		}
	}
	for _, s := range specs {
		if !slices.Contains(got, s.Key) {
			err = multierr.Append(err, fmt.Errorf("missing weight for %s", s.Key))
		}
		opts, ok := c.Dimensions[s.Key]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("missing options for %s", s.Key))
			continue
		}
		for _, e := range multierr.Errors(opts.Validate(s.Kind)) {
			err = multierr.Append(err, fmt.Errorf("%s: %w", s.Key, e))
		}
	}

	if err != nil {
		return &InvalidConfigurationError{Framework: c.Framework, Err: err}
	}
	return nil
}

// Canonical returns a copy whose weights follow the framework's dimension
// order. Unknown keys are kept at the end so Validate can report them.
func (c FrameworkConfig) Canonical() FrameworkConfig {
	specs, ok := frameworkTable[c.Framework]
	if !ok {
		return c.Clone()
	}
	current := c.Weights.Map()
	entries := make([]WeightEntry, 0, c.Weights.Len())
	for _, s := range specs {
		if v, ok := current[s.Key]; ok {
			entries = append(entries, WeightEntry{Key: s.Key, Value: v})
			delete(current, s.Key)
		}
	}
	rest := slices.Sorted(maps.Keys(current))
	for _, k := range rest {
		entries = append(entries, WeightEntry{Key: k, Value: current[k]})
	}
	return c.WithWeights(NewWeightSet(entries...))
}
