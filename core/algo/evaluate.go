// Package algo has the dimension evaluators and composite math.
package algo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huangsam/leadscore/schema"
)

// Evaluation is the 0-100 score an evaluator assigns to one dimension.
type Evaluation struct {
	Score    int
	Degraded bool   // Input was absent or unusable and the floor was applied
	Detail   string // What matched, for explain output
}

// Evaluator scores one dimension of a payload. Evaluators are pure: the
// same payload, options and clock always give the same evaluation.
type Evaluator func(p *schema.EnrichmentPayload, opts schema.DimensionOptions, now time.Time) Evaluation

// evaluators is the strategy table keyed by evaluator kind.
var evaluators = map[schema.EvaluatorKind]Evaluator{
	schema.TitleTierEvaluator:       EvaluateTitleTier,
	schema.NumericRangeEvaluator:    EvaluateNumericRange,
	schema.KeywordPresenceEvaluator: EvaluateKeywordPresence,
	schema.RecencyWindowEvaluator:   EvaluateRecencyWindow,
}

// Evaluate dispatches to the evaluator registered for kind.
// An unregistered kind degrades to the floor.
func Evaluate(kind schema.EvaluatorKind, p *schema.EnrichmentPayload, opts schema.DimensionOptions, now time.Time) Evaluation {
	eval, ok := evaluators[kind]
	if !ok {
		return degraded(opts.Floor, fmt.Sprintf("no evaluator for %s", kind))
	}
	ev := eval(p, opts, now)
	ev.Score = ClampScore(ev.Score)
	return ev
}

// EvaluateTitleTier scores the highest title tier whose keywords appear in
// the title or seniority fields.
func EvaluateTitleTier(p *schema.EnrichmentPayload, opts schema.DimensionOptions, _ time.Time) Evaluation {
	text, ok := joinedText(p, opts.Fields)
	if !ok {
		return degraded(opts.Floor, "no title")
	}
	for _, tier := range opts.TitleTiers {
		if kw, found := FirstKeyword(text, tier.Keywords, tier.Match); found {
			return Evaluation{Score: tier.Score, Detail: fmt.Sprintf("%s (%s)", tier.Name, kw)}
		}
	}
	return Evaluation{Score: opts.Floor, Detail: "unrecognized title"}
}

// EvaluateNumericRange buckets the first present numeric field between Min
// and Max. Below Min scores the floor, Max and above scores 100.
func EvaluateNumericRange(p *schema.EnrichmentPayload, opts schema.DimensionOptions, _ time.Time) Evaluation {
	var (
		value float64
		field schema.PayloadField
		found bool
	)
	for _, f := range opts.Fields {
		if v, ok := p.Number(f); ok {
			value, field, found = v, f, true
			break
		}
	}
	if !found || math.IsNaN(value) || math.IsInf(value, 0) {
		return degraded(opts.Floor, "no numeric value")
	}

	switch {
	case value < opts.Min:
		return Evaluation{Score: opts.Floor, Detail: fmt.Sprintf("%s below %g", field, opts.Min)}
	case value >= opts.Max:
		return Evaluation{Score: schema.MaxScore, Detail: fmt.Sprintf("%s at or above %g", field, opts.Max)}
	case len(opts.Steps) == 0:
		return Evaluation{Score: schema.MaxScore, Detail: fmt.Sprintf("%s within range", field)}
	}

	bucket := int((value - opts.Min) / (opts.Max - opts.Min) * float64(len(opts.Steps)))
	bucket = min(max(bucket, 0), len(opts.Steps)-1)
	return Evaluation{Score: opts.Steps[bucket], Detail: fmt.Sprintf("%s bucket %d of %d", field, bucket+1, len(opts.Steps))}
}

// EvaluateKeywordPresence scores 100 when any keyword appears in any of the
// configured fields, the floor otherwise.
func EvaluateKeywordPresence(p *schema.EnrichmentPayload, opts schema.DimensionOptions, _ time.Time) Evaluation {
	text, ok := joinedText(p, opts.Fields)
	if !ok {
		return degraded(opts.Floor, "no text")
	}
	if kw, found := FirstKeyword(text, opts.Keywords, opts.Match); found {
		return Evaluation{Score: schema.MaxScore, Detail: kw}
	}
	return Evaluation{Score: opts.Floor, Detail: "no keyword"}
}

// EvaluateRecencyWindow scores 100 when the timestamp falls within
// WindowDays before now. Timestamps in the future count as malformed.
func EvaluateRecencyWindow(p *schema.EnrichmentPayload, opts schema.DimensionOptions, now time.Time) Evaluation {
	var (
		ts    time.Time
		found bool
	)
	for _, f := range opts.Fields {
		if v, ok := p.Time(f); ok {
			ts, found = v, true
			break
		}
	}
	if !found {
		return degraded(opts.Floor, "no timestamp")
	}
	if ts.After(now) {
		return degraded(opts.Floor, "timestamp in the future")
	}

	age := now.Sub(ts)
	if age <= time.Duration(opts.WindowDays)*24*time.Hour {
		return Evaluation{Score: schema.MaxScore, Detail: fmt.Sprintf("%dd ago", int(age.Hours()/24))}
	}
	return Evaluation{Score: opts.Floor, Detail: fmt.Sprintf("older than %dd", opts.WindowDays)}
}

func joinedText(p *schema.EnrichmentPayload, fields []schema.PayloadField) (string, bool) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v, ok := p.Text(f); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " \n "), len(parts) > 0
}

func degraded(floor int, detail string) Evaluation {
	return Evaluation{Score: floor, Degraded: true, Detail: detail}
}
