package contract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// FrameworkRawInput holds one framework's overrides from the YAML config file.
// Weights are loose values coerced with cast so "40" and 40 both work.
type FrameworkRawInput struct {
	Weights    map[string]any               `mapstructure:"weights"`
	Thresholds ThresholdsRawInput           `mapstructure:"thresholds"`
	Dimensions map[string]DimensionRawInput `mapstructure:"dimensions" validate:"omitempty,dive"`
}

// ThresholdsRawInput holds tier threshold overrides. Use pointers for optional fields.
type ThresholdsRawInput struct {
	HotMin  *int `mapstructure:"hot_min" validate:"omitempty,min=0,max=100"`
	WarmMin *int `mapstructure:"warm_min" validate:"omitempty,min=0,max=100"`
}

// DimensionRawInput holds evaluator option overrides for one dimension.
type DimensionRawInput struct {
	Fields     []string `mapstructure:"fields" validate:"omitempty,dive,required"`
	Keywords   []string `mapstructure:"keywords" validate:"omitempty,dive,required"`
	Match      *string  `mapstructure:"match" validate:"omitempty,oneof=substring word"`
	Min        *float64 `mapstructure:"min" validate:"omitempty,gte=0"`
	Max        *float64 `mapstructure:"max" validate:"omitempty,gt=0"`
	Steps      []int    `mapstructure:"steps" validate:"omitempty,dive,min=0,max=100"`
	WindowDays *int     `mapstructure:"window_days" validate:"omitempty,min=1,max=3650"`
	Floor      *int     `mapstructure:"floor" validate:"omitempty,min=0,max=100"`
}

// BuildFrameworkConfigs seeds every framework with thresholds and merges the
// raw overrides on top. Every violation across all frameworks is reported.
func BuildFrameworkConfigs(raw map[string]FrameworkRawInput, thresholds schema.ThresholdSet) (map[schema.FrameworkID]schema.FrameworkConfig, error) {
	configs := make(map[schema.FrameworkID]schema.FrameworkConfig, len(schema.AllFrameworks))
	for _, fw := range schema.AllFrameworks {
		base, err := schema.DefaultFrameworkConfig(fw, thresholds)
		if err != nil {
			return nil, err
		}
		configs[fw] = base
	}

	var errs error
	for name, in := range raw {
		fw, err := schema.ParseFrameworkID(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("frameworks.%s: %w", name, err))
			continue
		}
		if err := ValidateStruct(in); err != nil {
			errs = multierr.Append(errs, &schema.InvalidConfigurationError{Framework: fw, Err: err})
			continue
		}
		merged, err := ApplyFrameworkOverrides(configs[fw], in)
		if err == nil {
			err = merged.Validate()
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		configs[fw] = merged
	}
	if errs != nil {
		return nil, errs
	}
	return configs, nil
}

// ApplyFrameworkOverrides returns a copy of base with the raw overrides
// merged in. The result is not validated.
func ApplyFrameworkOverrides(base schema.FrameworkConfig, in FrameworkRawInput) (schema.FrameworkConfig, error) {
	out := base.Clone()
	var errs error

	if len(in.Weights) > 0 {
		current := out.Weights.Map()
		for name, v := range in.Weights {
			key := schema.DimensionKey(strings.ToLower(strings.TrimSpace(name)))
			if _, ok := current[key]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s has no dimension %q", schema.ErrUnknownDimension, base.Framework, name))
				continue
			}
			weight, err := cast.ToIntE(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("weight %s: %w", name, err))
				continue
			}
			current[key] = weight
		}
		entries := make([]schema.WeightEntry, 0, out.Weights.Len())
		for _, k := range out.Weights.Keys() {
			entries = append(entries, schema.WeightEntry{Key: k, Value: current[k]})
		}
		out = out.WithWeights(schema.NewWeightSet(entries...))
	}

	if in.Thresholds.HotMin != nil {
		out.Thresholds.HotMin = *in.Thresholds.HotMin
	}
	if in.Thresholds.WarmMin != nil {
		out.Thresholds.WarmMin = *in.Thresholds.WarmMin
	}

	for name, dim := range in.Dimensions {
		key := schema.DimensionKey(strings.ToLower(strings.TrimSpace(name)))
		opts, ok := out.Dimensions[key]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s has no dimension %q", schema.ErrUnknownDimension, base.Framework, name))
			continue
		}
		out = out.WithDimension(key, mergeDimension(opts, dim))
	}

	if errs != nil {
		return base, &schema.InvalidConfigurationError{Framework: base.Framework, Err: errs}
	}
	return out, nil
}

func mergeDimension(opts schema.DimensionOptions, in DimensionRawInput) schema.DimensionOptions {
	out := opts.Clone()
	if len(in.Fields) > 0 {
		out.Fields = make([]schema.PayloadField, 0, len(in.Fields))
		for _, f := range in.Fields {
			out.Fields = append(out.Fields, schema.PayloadField(strings.ToLower(strings.TrimSpace(f))))
		}
	}
	if len(in.Keywords) > 0 {
		out.Keywords = slices.Clone(in.Keywords)
	}
	if in.Match != nil {
		out.Match = schema.KeywordMatch(*in.Match)
	}
	if in.Min != nil {
		out.Min = *in.Min
	}
	if in.Max != nil {
		out.Max = *in.Max
	}
	if len(in.Steps) > 0 {
		out.Steps = slices.Clone(in.Steps)
	}
	if in.WindowDays != nil {
		out.WindowDays = *in.WindowDays
	}
	if in.Floor != nil {
		out.Floor = *in.Floor
	}
	return out
}
