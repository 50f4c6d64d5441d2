// Package parquet provides data structures and functions for exporting scoring
// runs and contact scores to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/leadscore/schema"
	"github.com/parquet-go/parquet-go"
)

// ScoringRun represents one batch scoring run.
// This struct maps to the leadscore_scoring_runs database table.
type ScoringRun struct {
	// RunID is the unique identifier for this scoring run
	RunID string `parquet:"run_id,snappy"`

	// TenantID is the tenant whose configuration was used
	TenantID string `parquet:"tenant_id,snappy"`

	// Framework is the qualification framework of the run
	Framework string `parquet:"framework_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalContacts  int32 `parquet:"total_contacts,snappy"`
	ScoredContacts int32 `parquet:"scored_contacts,snappy"`
	FailedContacts int32 `parquet:"failed_contacts,snappy"`

	// ConfigVersion is the stored configuration version the run scored with (0 means defaults)
	ConfigVersion int32 `parquet:"config_version,snappy"`
}

// ContactScore represents the score of one contact in a run.
// This struct maps to the leadscore_contact_scores database table.
type ContactScore struct {
	RunID     string `parquet:"run_id,snappy"`
	TenantID  string `parquet:"tenant_id,snappy"`
	ContactID string `parquet:"contact_id,snappy"`
	Framework string `parquet:"framework_id,snappy"`

	// CompositeScore is the weighted 0-100 score
	CompositeScore int32 `parquet:"composite_score,snappy"`

	// Tier is Hot, Warm or Cold
	Tier string `parquet:"tier,snappy"`

	// DimensionsJSON holds the per-dimension breakdown as a JSON array
	DimensionsJSON string `parquet:"dimensions_json,snappy"`

	// Degraded lists the dimensions scored from missing input, comma separated (nullable)
	Degraded *string `parquet:"degraded,optional,snappy"`

	CalculatedAt time.Time `parquet:"calculated_at,snappy"`
}

// WriteScoringRunsParquet writes a slice of ScoringRun structs to a Parquet file.
func WriteScoringRunsParquet(data []ScoringRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteContactScoresParquet writes a slice of ContactScore structs to a Parquet file.
func WriteContactScoresParquet(data []ContactScore, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet creates outputPath and writes rows with a schema inferred from T's struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertScoringRunRecords converts stored scoring run records to Parquet rows.
func ConvertScoringRunRecords(records []schema.ScoringRunRecord) []ScoringRun {
	out := make([]ScoringRun, len(records))
	for i, r := range records {
		out[i] = ScoringRun{
			RunID:          r.RunID,
			TenantID:       r.TenantID,
			Framework:      r.Framework,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			RunDurationMs:  r.RunDurationMs,
			TotalContacts:  r.TotalContacts,
			ScoredContacts: r.ScoredContacts,
			FailedContacts: r.FailedContacts,
			ConfigVersion:  r.ConfigVersion,
		}
	}
	return out
}

// ConvertContactScoreRecords converts stored contact score records to Parquet rows.
func ConvertContactScoreRecords(records []schema.ContactScoreRecord) []ContactScore {
	out := make([]ContactScore, len(records))
	for i, r := range records {
		out[i] = ContactScore{
			RunID:          r.RunID,
			TenantID:       r.TenantID,
			ContactID:      r.ContactID,
			Framework:      r.Framework,
			CompositeScore: r.CompositeScore,
			Tier:           r.Tier,
			DimensionsJSON: r.DimensionsJSON,
			Degraded:       r.Degraded,
			CalculatedAt:   r.CalculatedAt,
		}
	}
	return out
}

// ConvertBatchResults flattens freshly scored batches into Parquet rows.
func ConvertBatchResults(tenant string, batches []schema.BatchResult) ([]ContactScore, error) {
	var records []schema.ContactScoreRecord
	for _, b := range batches {
		for _, r := range b.Results {
			record, err := schema.NewContactScoreRecord(tenant, b.RunID, r)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	return ConvertContactScoreRecords(records), nil
}
