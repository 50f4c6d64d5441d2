package persist

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

// ResultStoreImpl implements the ResultStore interface.
type ResultStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.ResultStore = &ResultStoreImpl{} // Compile-time check

// NewResultStore creates a new ResultStore with the specified backend.
func NewResultStore(backend schema.DatabaseBackend, connStr string) (contract.ResultStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &ResultStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidResultsBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported results backend: %s", backend)
	}

	db, err := openSQL(backend, connStr, contract.GetResultsDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := applySchema(db, ResultsMigrations, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create results tables: %w", err)
	}
	return &ResultStoreImpl{db: db, backend: backend}, nil
}

func (rs *ResultStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

// BeginRun records the start of a batch scoring run.
func (rs *ResultStoreImpl) BeginRun(runID, tenant string, framework schema.FrameworkID, startTime time.Time, configVersion int) error {
	if rs.disabled() {
		return nil
	}
	query := rebind(fmt.Sprintf(
		"INSERT INTO %s (run_id, tenant_id, framework_id, start_time, config_version) VALUES (?, ?, ?, ?, ?)",
		quoteTableName(scoringRunsTable, rs.backend)), rs.backend)
	if _, err := rs.db.Exec(query, runID, tenant, string(framework), formatTime(startTime, rs.backend), configVersion); err != nil {
		return fmt.Errorf("failed to insert scoring run: %w", err)
	}
	return nil
}

// EndRun updates the run with its completion totals.
func (rs *ResultStoreImpl) EndRun(runID string, endTime time.Time, batch schema.BatchResult) error {
	if rs.disabled() {
		return nil
	}
	table := quoteTableName(scoringRunsTable, rs.backend)

	var startTime time.Time
	query := rebind(fmt.Sprintf("SELECT start_time FROM %s WHERE run_id = ?", table), rs.backend)
	if err := rs.db.QueryRow(query, runID).Scan(dbTime{&startTime}); err != nil {
		return fmt.Errorf("failed to get start_time for run %s: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	update := rebind(fmt.Sprintf(
		"UPDATE %s SET end_time = ?, run_duration_ms = ?, total_contacts = ?, scored_contacts = ?, failed_contacts = ? WHERE run_id = ?",
		table), rs.backend)
	if _, err := rs.db.Exec(update, formatTime(endTime, rs.backend), durationMs, batch.Total, batch.Scored, len(batch.Failed), runID); err != nil {
		return fmt.Errorf("failed to update scoring run: %w", err)
	}
	return nil
}

// RecordScore upserts the latest score of a contact for a framework.
func (rs *ResultStoreImpl) RecordScore(tenant, runID string, result schema.ScoreResult) error {
	if rs.disabled() {
		return nil
	}
	record, err := schema.NewContactScoreRecord(tenant, runID, result)
	if err != nil {
		return err
	}

	table := quoteTableName(contactScoresTable, rs.backend)
	insert := fmt.Sprintf(`INSERT INTO %s (tenant_id, framework_id, contact_id, run_id, composite_score, tier, dimensions_json, degraded, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
	var query string
	switch rs.backend {
	case schema.MySQLBackend:
		query = insert + ` AS new ON DUPLICATE KEY UPDATE
			run_id = new.run_id, composite_score = new.composite_score, tier = new.tier,
			dimensions_json = new.dimensions_json, degraded = new.degraded, calculated_at = new.calculated_at`
	default: // SQLite and PostgreSQL
		query = insert + ` ON CONFLICT (tenant_id, framework_id, contact_id) DO UPDATE SET
			run_id = excluded.run_id, composite_score = excluded.composite_score, tier = excluded.tier,
			dimensions_json = excluded.dimensions_json, degraded = excluded.degraded, calculated_at = excluded.calculated_at`
	}

	_, err = rs.db.Exec(rebind(query, rs.backend),
		record.TenantID, record.Framework, record.ContactID, record.RunID, record.CompositeScore,
		record.Tier, record.DimensionsJSON, record.Degraded, formatTime(record.CalculatedAt, rs.backend))
	if err != nil {
		return fmt.Errorf("failed to record score for %s: %w", record.ContactID, err)
	}
	return nil
}

// GetStatus returns status information about the result store.
func (rs *ResultStoreImpl) GetStatus() (schema.ResultStoreStatus, error) {
	status := schema.ResultStoreStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}
	runs := quoteTableName(scoringRunsTable, rs.backend)

	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		lastRunQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY start_time DESC LIMIT 1", runs)
		if err := rs.db.QueryRow(lastRunQuery).Scan(&status.LastRunID, dbTime{&status.LastRunTime}); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		oldestQuery := fmt.Sprintf("SELECT MIN(start_time) FROM %s", runs)
		if err := rs.db.QueryRow(oldestQuery).Scan(dbTime{&status.OldestRunTime}); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		scoredQuery := fmt.Sprintf("SELECT COALESCE(SUM(scored_contacts), 0) FROM %s", runs)
		if err := rs.db.QueryRow(scoredQuery).Scan(&status.TotalContactsScored); err != nil {
			return status, fmt.Errorf("failed to get total contacts scored: %w", err)
		}
	}

	for _, table := range []string{scoringRunsTable, contactScoresTable} {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))
		if err := rs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all scoring runs, newest first.
func (rs *ResultStoreImpl) GetAllRuns() ([]schema.ScoringRunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT run_id, tenant_id, framework_id, start_time, end_time, run_duration_ms,
		total_contacts, scored_contacts, failed_contacts, config_version
		FROM %s ORDER BY start_time DESC, run_id`, quoteTableName(scoringRunsTable, rs.backend))

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScoringRunRecord
	for rows.Next() {
		var r schema.ScoringRunRecord
		if err := rows.Scan(&r.RunID, &r.TenantID, &r.Framework, dbTime{&r.StartTime}, nullDBTime{&r.EndTime},
			&r.RunDurationMs, &r.TotalContacts, &r.ScoredContacts, &r.FailedContacts, &r.ConfigVersion); err != nil {
			return nil, fmt.Errorf("failed to scan scoring run: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scoring runs: %w", err)
	}
	return results, nil
}

// GetAllScores retrieves every recorded contact score.
func (rs *ResultStoreImpl) GetAllScores() ([]schema.ContactScoreRecord, error) {
	if rs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT tenant_id, framework_id, contact_id, run_id, composite_score, tier,
		dimensions_json, degraded, calculated_at
		FROM %s ORDER BY tenant_id, framework_id, composite_score DESC, contact_id`, quoteTableName(contactScoresTable, rs.backend))

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ContactScoreRecord
	for rows.Next() {
		var r schema.ContactScoreRecord
		if err := rows.Scan(&r.TenantID, &r.Framework, &r.ContactID, &r.RunID, &r.CompositeScore, &r.Tier,
			&r.DimensionsJSON, &r.Degraded, dbTime{&r.CalculatedAt}); err != nil {
			return nil, fmt.Errorf("failed to scan contact score: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact scores: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (rs *ResultStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}
