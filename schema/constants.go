// Package schema has the models, framework table and errors shared by every part of leadscore.
package schema

import (
	"fmt"
	"strings"
)

// Custom string types for type safety.
type (
	// FrameworkID identifies a qualification framework.
	FrameworkID string

	// DimensionKey names a scored dimension within a framework.
	DimensionKey string

	// EvaluatorKind selects the strategy used to score a dimension.
	EvaluatorKind string

	// KeywordMatch selects how keywords are found in free text.
	KeywordMatch string

	// Tier is the qualitative bucket assigned to a composite score.
	Tier string

	// PayloadField names an enrichment payload field that evaluators can read.
	PayloadField string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string
)

// All frameworks supported.
const (
	APEX  FrameworkID = "APEX"
	MDCP  FrameworkID = "MDCP"
	BANT  FrameworkID = "BANT"
	SPICE FrameworkID = "SPICE"
)

// All tiers supported.
const (
	HotTier  Tier = "Hot"
	WarmTier Tier = "Warm"
	ColdTier Tier = "Cold"
)

// All evaluator kinds supported.
const (
	TitleTierEvaluator       EvaluatorKind = "title_tier"
	NumericRangeEvaluator    EvaluatorKind = "numeric_range"
	KeywordPresenceEvaluator EvaluatorKind = "keyword_presence"
	RecencyWindowEvaluator   EvaluatorKind = "recency_window"
)

// Keyword match modes. The zero value matches substrings.
const (
	SubstringMatch KeywordMatch = "substring"
	WordMatch      KeywordMatch = "word"
)

// Valid reports whether m is empty or a known match mode.
func (m KeywordMatch) Valid() bool {
	return m == "" || m == SubstringMatch || m == WordMatch
}

// Payload fields that evaluators read.
const (
	FieldTitle         PayloadField = "title"
	FieldSeniority     PayloadField = "seniority"
	FieldIndustry      PayloadField = "industry"
	FieldCompanySize   PayloadField = "company_size"
	FieldSignals       PayloadField = "signals"
	FieldNotes         PayloadField = "notes"
	FieldPainPoints    PayloadField = "pain_points"
	FieldTimeline      PayloadField = "timeline"
	FieldDealStage     PayloadField = "deal_stage"
	FieldRevenue       PayloadField = "revenue"
	FieldBudget        PayloadField = "budget"
	FieldDealValue     PayloadField = "deal_value"
	FieldEmployeeCount PayloadField = "employee_count"
	FieldLastEngagedAt PayloadField = "last_engaged_at"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All persistence backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	NoneBackend       DatabaseBackend = "none"
)

// Bounds shared by weights and scores.
const (
	MinWeight   = 0
	MaxWeight   = 100
	WeightTotal = 100
	MinScore    = 0
	MaxScore    = 100
)

// AllFrameworks returns every supported framework in display order.
var AllFrameworks = []FrameworkID{APEX, MDCP, BANT, SPICE}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidConfigBackends lists the backends that can hold framework configurations.
var ValidConfigBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidResultsBackends lists the backends that can hold scoring runs.
var ValidResultsBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidPayloadFields lists every field an evaluator may be pointed at.
var ValidPayloadFields = map[PayloadField]struct{}{
	FieldTitle:         {},
	FieldSeniority:     {},
	FieldIndustry:      {},
	FieldCompanySize:   {},
	FieldSignals:       {},
	FieldNotes:         {},
	FieldPainPoints:    {},
	FieldTimeline:      {},
	FieldDealStage:     {},
	FieldRevenue:       {},
	FieldBudget:        {},
	FieldDealValue:     {},
	FieldEmployeeCount: {},
	FieldLastEngagedAt: {},
}

// ParseFrameworkID resolves a framework name case-insensitively.
func ParseFrameworkID(name string) (FrameworkID, error) {
	id := FrameworkID(strings.ToUpper(strings.TrimSpace(name)))
	for _, fw := range AllFrameworks {
		if fw == id {
			return fw, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFramework, name)
}

// ParseTier resolves a tier name case-insensitively.
func ParseTier(name string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hot":
		return HotTier, nil
	case "warm":
		return WarmTier, nil
	case "cold":
		return ColdTier, nil
	default:
		return "", fmt.Errorf("unknown tier %q", name)
	}
}
