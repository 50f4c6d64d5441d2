package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cast"
)

// payloadAliases maps each payload field to the source keys it is read from,
// in priority order. Keys are compared after normalizeKey.
var payloadAliases = map[schema.PayloadField][]string{
	schema.FieldTitle:         {"title", "job_title", "inferred_title", "position"},
	schema.FieldSeniority:     {"seniority", "inferred_seniority", "seniority_level"},
	schema.FieldIndustry:      {"industry", "vertical"},
	schema.FieldCompanySize:   {"company_size", "size_bucket", "employee_range"},
	schema.FieldSignals:       {"signals", "buying_signals", "intent_signals"},
	schema.FieldNotes:         {"notes", "research_notes", "summary"},
	schema.FieldPainPoints:    {"pain_points", "challenges"},
	schema.FieldTimeline:      {"timeline", "purchase_timeline"},
	schema.FieldDealStage:     {"deal_stage", "stage"},
	schema.FieldRevenue:       {"revenue", "revenue_estimate", "annual_revenue"},
	schema.FieldBudget:        {"budget"},
	schema.FieldDealValue:     {"deal_value", "deal_amount"},
	schema.FieldEmployeeCount: {"employee_count", "employees", "headcount"},
	schema.FieldLastEngagedAt: {"last_engaged_at", "last_engagement", "last_activity_at"},
}

// amountSuffixes are the multipliers accepted at the end of numeric strings.
var amountSuffixes = map[byte]float64{
	'k': 1e3,
	'm': 1e6,
	'b': 1e9,
}

// DecodePayload normalizes a raw enrichment record. Only a record that is
// not a JSON object fails; absent or malformed fields are left unset so the
// evaluators can degrade them.
func DecodePayload(raw json.RawMessage) (*schema.EnrichmentPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &schema.EnrichmentPayload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedPayload, err)
	}
	return PayloadFromMap(fields), nil
}

// PayloadFromMap normalizes already-decoded enrichment fields.
func PayloadFromMap(fields map[string]any) *schema.EnrichmentPayload {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		values[normalizeKey(k)] = v
	}

	p := &schema.EnrichmentPayload{
		ContactID:     textValue(values, "contact_id"),
		Title:         textField(values, schema.FieldTitle),
		Seniority:     textField(values, schema.FieldSeniority),
		Industry:      textField(values, schema.FieldIndustry),
		CompanySize:   textField(values, schema.FieldCompanySize),
		Signals:       textField(values, schema.FieldSignals),
		Notes:         textField(values, schema.FieldNotes),
		PainPoints:    textField(values, schema.FieldPainPoints),
		Timeline:      textField(values, schema.FieldTimeline),
		DealStage:     textField(values, schema.FieldDealStage),
		Revenue:       numberField(values, schema.FieldRevenue),
		Budget:        numberField(values, schema.FieldBudget),
		DealValue:     numberField(values, schema.FieldDealValue),
		EmployeeCount: numberField(values, schema.FieldEmployeeCount),
	}
	for _, key := range payloadAliases[schema.FieldLastEngagedAt] {
		if t, ok := parseTimestamp(values[key]); ok {
			p.LastEngagedAt = &t
			break
		}
	}
	return p
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

func textField(values map[string]any, field schema.PayloadField) string {
	for _, key := range payloadAliases[field] {
		if s := textValue(values, key); s != "" {
			return s
		}
	}
	return ""
}

// textValue reads strings, numbers and lists of strings. Lists are joined so
// keyword matching sees every element.
func textValue(values map[string]any, key string) string {
	switch v := values[key].(type) {
	case nil:
		return ""
	case []any:
		parts, err := cast.ToStringSliceE(v)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.Join(parts, "; "))
	case map[string]any:
		return ""
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
}

func numberField(values map[string]any, field schema.PayloadField) *float64 {
	for _, key := range payloadAliases[field] {
		if n, ok := parseNumber(values[key]); ok {
			return &n
		}
	}
	return nil
}

// parseNumber accepts JSON numbers and strings like "$1.2M", "250k" or
// "1,500". NaN and infinities are treated as absent.
func parseNumber(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, ok := parseAmount(val)
		if !ok {
			return 0, false
		}
		n = f
	case bool, nil, []any, map[string]any:
		return 0, false
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return 0, false
		}
		n = f
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseAmount(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("$", "", ",", "", "€", "", "£", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	mult := 1.0
	if m, ok := amountSuffixes[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * mult, true
}

// parseTimestamp accepts date strings in the layouts cast understands and
// unix timestamps in seconds or milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case json.Number:
		n, err := val.Int64()
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	case string:
		if strings.TrimSpace(val) == "" {
			return time.Time{}, false
		}
		t, err := cast.ToTimeE(strings.TrimSpace(val))
		if err != nil || t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
