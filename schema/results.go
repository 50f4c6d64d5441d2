package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/multierr"
)

// DimensionScore is one dimension's contribution to a composite.
type DimensionScore struct {
	Key      DimensionKey `json:"dimension"`
	Raw      int          `json:"raw"`                // 0-100 evaluator output
	Weight   int          `json:"weight"`             // 0-100 share of the composite
	Weighted float64      `json:"weighted"`           // Raw * Weight / 100
	Degraded bool         `json:"degraded,omitempty"` // Input was missing or malformed
	Detail   string       `json:"detail,omitempty"`   // Matched tier, keyword or bucket
}

// ScoreResult is the outcome of scoring one contact against one framework.
type ScoreResult struct {
	ContactID     string
	Framework     FrameworkID
	Dimensions    []DimensionScore
	Composite     int
	Tier          Tier
	CalculatedAt  time.Time
	ConfigVersion int
}

// Score returns the raw score of a dimension.
func (r ScoreResult) Score(key DimensionKey) (int, bool) {
	for _, d := range r.Dimensions {
		if d.Key == key {
			return d.Raw, true
		}
	}
	return 0, false
}

// Degraded lists the dimensions that were scored from missing or malformed input.
func (r ScoreResult) Degraded() []DimensionKey {
	var out []DimensionKey
	for _, d := range r.Dimensions {
		if d.Degraded {
			out = append(out, d.Key)
		}
	}
	return out
}

// MarshalJSON writes the flat wire form: one <dimension>_score key per
// dimension in framework order, then composite_score, tier and calculated_at.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	if r.ContactID != "" {
		if err := field("contact_id", r.ContactID); err != nil {
			return nil, err
		}
	}
	if err := field("framework_id", r.Framework); err != nil {
		return nil, err
	}
	for _, d := range r.Dimensions {
		if err := field(string(d.Key)+"_score", d.Raw); err != nil {
			return nil, err
		}
	}
	if err := field("composite_score", r.Composite); err != nil {
		return nil, err
	}
	if err := field("tier", r.Tier); err != nil {
		return nil, err
	}
	if err := field("calculated_at", r.CalculatedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ContactFailure records why a contact in a batch was not scored.
type ContactFailure struct {
	ContactID string `json:"contact_id"`
	Error     string `json:"error"`
}

// BatchResult aggregates one ScoreAll call. Results follow input order.
type BatchResult struct {
	RunID     string           `json:"run_id,omitempty"`
	Framework FrameworkID      `json:"framework_id,omitempty"`
	Total     int              `json:"total"`
	Scored    int              `json:"scored"`
	Failed    []ContactFailure `json:"failed"`
	Skipped   int              `json:"skipped,omitempty"`
	Canceled  bool             `json:"canceled,omitempty"`
	Results   []ScoreResult    `json:"results,omitempty"`
}

// Result returns the score of one contact in the batch.
func (b BatchResult) Result(contactID string) (ScoreResult, bool) {
	for _, r := range b.Results {
		if r.ContactID == contactID {
			return r, true
		}
	}
	return ScoreResult{}, false
}

// Complete reports whether every contact was either scored or failed.
func (b BatchResult) Complete() bool {
	return b.Scored+len(b.Failed) == b.Total
}

// Err joins every per-contact failure, or returns nil when none failed.
func (b BatchResult) Err() error {
	var err error
	for _, f := range b.Failed {
		err = multierr.Append(err, &PerContactFailure{ContactID: f.ContactID, Err: errors.New(f.Error)})
	}
	return err
}
