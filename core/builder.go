package core

import (
	"time"

	"github.com/huangsam/leadscore/core/algo"
	"github.com/huangsam/leadscore/schema"
)

// ScoreResultBuilder builds the score of one contact for one framework.
type ScoreResultBuilder struct {
	payload *schema.EnrichmentPayload
	cfg     *schema.FrameworkConfig
	now     time.Time
	result  *schema.ScoreResult

	// Weighted contributions in dimension order
	contributions []float64
}

// NewScoreResultBuilder is the starting point for building a score result.
// The configuration must already be valid.
func NewScoreResultBuilder(payload *schema.EnrichmentPayload, cfg *schema.FrameworkConfig, now time.Time) *ScoreResultBuilder {
	return &ScoreResultBuilder{
		payload: payload,
		cfg:     cfg,
		now:     now,
		result: &schema.ScoreResult{
			ContactID:     payload.ContactID,
			Framework:     cfg.Framework,
			CalculatedAt:  now,
			ConfigVersion: cfg.Version,
		},
	}
}

// EvaluateDimensions runs each dimension's evaluator in weight set order.
func (b *ScoreResultBuilder) EvaluateDimensions() *ScoreResultBuilder {
	entries := b.cfg.Weights.Entries()
	b.result.Dimensions = make([]schema.DimensionScore, 0, len(entries))
	b.contributions = make([]float64, 0, len(entries))

	for _, entry := range entries {
		// An unknown key has no evaluator kind and degrades to its floor
		spec, _ := schema.LookupDimension(b.cfg.Framework, entry.Key)
		ev := algo.Evaluate(spec.Kind, b.payload, b.cfg.Dimensions[entry.Key], b.now)
		weighted := algo.WeightedContribution(ev.Score, entry.Value)

		b.result.Dimensions = append(b.result.Dimensions, schema.DimensionScore{
			Key:      entry.Key,
			Raw:      ev.Score,
			Weight:   entry.Value,
			Weighted: weighted,
			Degraded: ev.Degraded,
			Detail:   ev.Detail,
		})
		b.contributions = append(b.contributions, weighted)
	}
	return b
}

// CalculateComposite rounds the sum of weighted contributions.
func (b *ScoreResultBuilder) CalculateComposite() *ScoreResultBuilder {
	b.result.Composite = algo.Composite(b.contributions)
	return b
}

// ClassifyTier maps the composite onto the configured thresholds.
func (b *ScoreResultBuilder) ClassifyTier() *ScoreResultBuilder {
	b.result.Tier = b.cfg.Thresholds.Classify(b.result.Composite)
	return b
}

// Build returns the final result.
func (b *ScoreResultBuilder) Build() schema.ScoreResult {
	return *b.result
}
