package schema

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// EnrichmentPayload is the normalized view of a contact's enrichment record.
// Absent or malformed source values are left at their zero value (nil for
// numbers and times) so evaluators can tell "missing" from "zero".
type EnrichmentPayload struct {
	ContactID     string     `json:"contact_id,omitempty"`
	Title         string     `json:"title,omitempty"`           // Job title, e.g. "VP of Sales"
	Seniority     string     `json:"seniority,omitempty"`       // Inferred seniority label
	Industry      string     `json:"industry,omitempty"`        // Company industry or vertical
	CompanySize   string     `json:"company_size,omitempty"`    // Headcount bucket, e.g. "51-200"
	Signals       string     `json:"signals,omitempty"`         // Buying signals gathered during enrichment
	Notes         string     `json:"notes,omitempty"`           // Free-form research notes
	PainPoints    string     `json:"pain_points,omitempty"`     // Stated pain points
	Timeline      string     `json:"timeline,omitempty"`        // Stated purchase timeline
	DealStage     string     `json:"deal_stage,omitempty"`      // Current pipeline stage
	Revenue       *float64   `json:"revenue,omitempty"`         // Annual company revenue estimate
	Budget        *float64   `json:"budget,omitempty"`          // Budget indicated for the purchase
	DealValue     *float64   `json:"deal_value,omitempty"`      // Expected deal value
	EmployeeCount *float64   `json:"employee_count,omitempty"`  // Exact headcount when known
	LastEngagedAt *time.Time `json:"last_engaged_at,omitempty"` // Most recent engagement
}

// Contact is one batch input: an id plus its raw enrichment payload.
type Contact struct {
	ID         string          `json:"id"`
	Enrichment json.RawMessage `json:"enrichment"`
}

// Text returns the trimmed value of a text field and whether it is present.
func (p *EnrichmentPayload) Text(field PayloadField) (string, bool) {
	var v string
	switch field {
	case FieldTitle:
		v = p.Title
	case FieldSeniority:
		v = p.Seniority
	case FieldIndustry:
		v = p.Industry
	case FieldCompanySize:
		v = p.CompanySize
	case FieldSignals:
		v = p.Signals
	case FieldNotes:
		v = p.Notes
	case FieldPainPoints:
		v = p.PainPoints
	case FieldTimeline:
		v = p.Timeline
	case FieldDealStage:
		v = p.DealStage
	default:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Number returns the value of a numeric field and whether it is present.
// The company size bucket reads as its lower bound.
func (p *EnrichmentPayload) Number(field PayloadField) (float64, bool) {
	var v *float64
	switch field {
	case FieldRevenue:
		v = p.Revenue
	case FieldBudget:
		v = p.Budget
	case FieldDealValue:
		v = p.DealValue
	case FieldEmployeeCount:
		v = p.EmployeeCount
	case FieldCompanySize:
		return sizeLowerBound(p.CompanySize)
	default:
		return 0, false
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Time returns the value of a timestamp field and whether it is present.
func (p *EnrichmentPayload) Time(field PayloadField) (time.Time, bool) {
	if field != FieldLastEngagedAt || p.LastEngagedAt == nil || p.LastEngagedAt.IsZero() {
		return time.Time{}, false
	}
	return *p.LastEngagedAt, true
}

// sizeLowerBound reads "51-200", "1000+" or "1,000 - 5,000" as its first number.
func sizeLowerBound(bucket string) (float64, bool) {
	var digits strings.Builder
	started := false
	for _, r := range bucket {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
			started = true
		case r == ',' && started:
		case started:
			n, err := strconv.ParseFloat(digits.String(), 64)
			return n, err == nil
		}
	}
	if !started {
		return 0, false
	}
	n, err := strconv.ParseFloat(digits.String(), 64)
	return n, err == nil
}
