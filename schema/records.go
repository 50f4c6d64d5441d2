package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConfigStoreStatus represents the status of the configuration store.
type ConfigStoreStatus struct {
	Backend       string    `json:"backend"`
	Connected     bool      `json:"connected"`
	TotalConfigs  int       `json:"total_configs"`
	TotalTenants  int       `json:"total_tenants"`
	LastUpdated   time.Time `json:"last_updated"`
	OldestUpdated time.Time `json:"oldest_updated"`
}

// ResultStoreStatus represents the status of the result store.
type ResultStoreStatus struct {
	Backend             string           `json:"backend"`
	Connected           bool             `json:"connected"`
	TotalRuns           int              `json:"total_runs"`
	LastRunID           string           `json:"last_run_id"`
	LastRunTime         time.Time        `json:"last_run_time"`
	OldestRunTime       time.Time        `json:"oldest_run_time"`
	TotalContactsScored int              `json:"total_contacts_scored"`
	TableSizes          map[string]int64 `json:"table_sizes"`
}

// ScoringRunRecord represents a row from the leadscore_scoring_runs table.
type ScoringRunRecord struct {
	RunID          string
	TenantID       string
	Framework      string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	TotalContacts  int32
	ScoredContacts int32
	FailedContacts int32
	ConfigVersion  int32
}

// ContactScoreRecord represents a row from the leadscore_contact_scores table.
type ContactScoreRecord struct {
	TenantID       string
	ContactID      string
	Framework      string
	RunID          string
	CompositeScore int32
	Tier           string
	DimensionsJSON string
	Degraded       *string
	CalculatedAt   time.Time
}

// CheckResult holds the outcome of a configuration preflight check.
type CheckResult struct {
	Tenant     string           `json:"tenant"`
	Passed     bool             `json:"passed"`
	Frameworks []FrameworkCheck `json:"frameworks"`
}

// FrameworkCheck is the preflight verdict for one framework.
type FrameworkCheck struct {
	Framework  FrameworkID  `json:"framework_id"`
	Valid      bool         `json:"valid"`
	Stored     bool         `json:"stored"`
	Version    int          `json:"version"`
	WeightSum  int          `json:"weight_sum"`
	Thresholds ThresholdSet `json:"thresholds"`
	Violations []string     `json:"violations,omitempty"`
}

// NewContactScoreRecord flattens a score result for storage and export.
func NewContactScoreRecord(tenant, runID string, r ScoreResult) (ContactScoreRecord, error) {
	dims, err := json.Marshal(r.Dimensions)
	if err != nil {
		return ContactScoreRecord{}, fmt.Errorf("failed to encode dimensions of %s: %w", r.ContactID, err)
	}
	record := ContactScoreRecord{
		TenantID:       tenant,
		ContactID:      r.ContactID,
		Framework:      string(r.Framework),
		RunID:          runID,
		CompositeScore: int32(r.Composite),
		Tier:           string(r.Tier),
		DimensionsJSON: string(dims),
		CalculatedAt:   r.CalculatedAt,
	}
	if degraded := r.Degraded(); len(degraded) > 0 {
		names := make([]string, len(degraded))
		for i, k := range degraded {
			names[i] = string(k)
		}
		joined := strings.Join(names, ",")
		record.Degraded = &joined
	}
	return record, nil
}
