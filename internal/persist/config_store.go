package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

// ConfigStoreImpl keeps framework configurations in a SQL database.
type ConfigStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	now     func() time.Time
}

var _ contract.ConfigStore = &ConfigStoreImpl{} // Compile-time check

// NewConfigStore creates a ConfigStore for a SQL backend or the none backend.
// Redis is handled by NewRedisConfigStore.
func NewConfigStore(backend schema.DatabaseBackend, connStr string) (contract.ConfigStore, error) {
	if backend == schema.NoneBackend {
		return &ConfigStoreImpl{backend: backend, now: time.Now}, nil
	}
	if backend == schema.RedisBackend {
		return NewRedisConfigStore(connStr)
	}

	db, err := openSQL(backend, connStr, contract.GetConfigDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := applySchema(db, ConfigMigrations, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create config tables: %w", err)
	}
	return &ConfigStoreImpl{db: db, backend: backend, now: time.Now}, nil
}

func (cs *ConfigStoreImpl) disabled() bool {
	return cs.backend == schema.NoneBackend || cs.db == nil
}

func (cs *ConfigStoreImpl) table() string {
	return quoteTableName(frameworkConfigsTable, cs.backend)
}

// Get returns the stored configuration or schema.ErrConfigNotFound.
func (cs *ConfigStoreImpl) Get(ctx context.Context, tenant string, framework schema.FrameworkID) (schema.FrameworkConfig, error) {
	if cs.disabled() {
		return schema.FrameworkConfig{}, schema.ErrPersistenceDisabled
	}

	query := rebind(fmt.Sprintf("SELECT version, config_json, updated_at FROM %s WHERE tenant_id = ? AND framework_id = ?", cs.table()), cs.backend)
	var (
		version   int
		payload   string
		updatedAt time.Time
	)
	err := cs.db.QueryRowContext(ctx, query, tenant, string(framework)).Scan(&version, &payload, dbTime{&updatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return schema.FrameworkConfig{}, fmt.Errorf("%w: %s for tenant %q", schema.ErrConfigNotFound, framework, tenant)
	}
	if err != nil {
		return schema.FrameworkConfig{}, fmt.Errorf("failed to query %s configuration: %w", framework, err)
	}
	return decodeConfig(framework, payload, version, updatedAt)
}

// Put stores cfg if its version matches the stored one and returns the stored copy.
func (cs *ConfigStoreImpl) Put(ctx context.Context, tenant string, cfg schema.FrameworkConfig) (schema.FrameworkConfig, error) {
	if cs.disabled() {
		return schema.FrameworkConfig{}, schema.ErrPersistenceDisabled
	}
	if err := cfg.Validate(); err != nil {
		return schema.FrameworkConfig{}, err
	}

	next := cfg.Clone()
	next.Version = cfg.Version + 1
	next.UpdatedAt = cs.now().UTC()
	payload, err := encodeConfig(next)
	if err != nil {
		return schema.FrameworkConfig{}, err
	}

	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.FrameworkConfig{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	query := rebind(fmt.Sprintf("SELECT version FROM %s WHERE tenant_id = ? AND framework_id = ?", cs.table()), cs.backend)
	err = tx.QueryRowContext(ctx, query, tenant, string(cfg.Framework)).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return schema.FrameworkConfig{}, fmt.Errorf("failed to read stored version: %w", err)
	}
	if current != cfg.Version {
		return schema.FrameworkConfig{}, versionConflict(cfg, current)
	}

	if current == 0 {
		insert := rebind(fmt.Sprintf(
			"INSERT INTO %s (tenant_id, framework_id, version, config_json, updated_at) VALUES (?, ?, ?, ?, ?)", cs.table()), cs.backend)
		if _, err := tx.ExecContext(ctx, insert, tenant, string(cfg.Framework), next.Version, payload, formatTime(next.UpdatedAt, cs.backend)); err != nil {
			if isUniqueViolation(err) {
				return schema.FrameworkConfig{}, fmt.Errorf("%w: %s was created by another writer", schema.ErrVersionConflict, cfg.Framework)
			}
			return schema.FrameworkConfig{}, fmt.Errorf("failed to insert %s configuration: %w", cfg.Framework, err)
		}
	} else {
		update := rebind(fmt.Sprintf(
			"UPDATE %s SET version = ?, config_json = ?, updated_at = ? WHERE tenant_id = ? AND framework_id = ? AND version = ?", cs.table()), cs.backend)
		res, err := tx.ExecContext(ctx, update, next.Version, payload, formatTime(next.UpdatedAt, cs.backend), tenant, string(cfg.Framework), current)
		if err != nil {
			return schema.FrameworkConfig{}, fmt.Errorf("failed to update %s configuration: %w", cfg.Framework, err)
		}
		if ok, err := rowsAffected(res); err != nil || !ok {
			return schema.FrameworkConfig{}, versionConflict(cfg, current)
		}
	}

	if err := tx.Commit(); err != nil {
		return schema.FrameworkConfig{}, fmt.Errorf("failed to commit %s configuration: %w", cfg.Framework, err)
	}
	return next, nil
}

// List returns every stored configuration of a tenant in framework order.
func (cs *ConfigStoreImpl) List(ctx context.Context, tenant string) ([]schema.FrameworkConfig, error) {
	if cs.disabled() {
		return nil, nil
	}

	query := rebind(fmt.Sprintf("SELECT framework_id, version, config_json, updated_at FROM %s WHERE tenant_id = ?", cs.table()), cs.backend)
	rows, err := cs.db.QueryContext(ctx, query, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.FrameworkConfig
	for rows.Next() {
		var (
			framework string
			version   int
			payload   string
			updatedAt time.Time
		)
		if err := rows.Scan(&framework, &version, &payload, dbTime{&updatedAt}); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		cfg, err := decodeConfig(schema.FrameworkID(framework), payload, version, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configurations: %w", err)
	}
	sortByFramework(out)
	return out, nil
}

// Delete removes a stored configuration. Deleting a missing one is not an error.
func (cs *ConfigStoreImpl) Delete(ctx context.Context, tenant string, framework schema.FrameworkID) error {
	if cs.disabled() {
		return schema.ErrPersistenceDisabled
	}
	query := rebind(fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND framework_id = ?", cs.table()), cs.backend)
	if _, err := cs.db.ExecContext(ctx, query, tenant, string(framework)); err != nil {
		return fmt.Errorf("failed to delete %s configuration: %w", framework, err)
	}
	return nil
}

// GetStatus returns status information about the config store.
func (cs *ConfigStoreImpl) GetStatus() (schema.ConfigStoreStatus, error) {
	status := schema.ConfigStoreStatus{
		Backend:   string(cs.backend),
		Connected: cs.db != nil,
	}
	if cs.disabled() {
		return status, nil
	}

	query := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT tenant_id) FROM %s", cs.table())
	if err := cs.db.QueryRow(query).Scan(&status.TotalConfigs, &status.TotalTenants); err != nil {
		return status, fmt.Errorf("failed to count configurations: %w", err)
	}
	if status.TotalConfigs == 0 {
		return status, nil
	}

	query = fmt.Sprintf("SELECT MAX(updated_at), MIN(updated_at) FROM %s", cs.table())
	if err := cs.db.QueryRow(query).Scan(dbTime{&status.LastUpdated}, dbTime{&status.OldestUpdated}); err != nil {
		return status, fmt.Errorf("failed to get update times: %w", err)
	}
	return status, nil
}

// Close closes the underlying connection.
func (cs *ConfigStoreImpl) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}

func encodeConfig(cfg schema.FrameworkConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s configuration: %w", cfg.Framework, err)
	}
	return string(data), nil
}

// decodeConfig trusts the row's version and timestamp over the payload's.
func decodeConfig(framework schema.FrameworkID, payload string, version int, updatedAt time.Time) (schema.FrameworkConfig, error) {
	var cfg schema.FrameworkConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return schema.FrameworkConfig{}, fmt.Errorf("failed to decode stored %s configuration: %w", framework, err)
	}
	cfg.Framework = framework
	cfg.Version = version
	cfg.UpdatedAt = updatedAt
	return cfg, nil
}

func versionConflict(cfg schema.FrameworkConfig, stored int) error {
	return fmt.Errorf("%w: %s expected version %d, stored version is %d",
		schema.ErrVersionConflict, cfg.Framework, cfg.Version, stored)
}

func sortByFramework(cfgs []schema.FrameworkConfig) {
	slices.SortFunc(cfgs, func(a, b schema.FrameworkConfig) int {
		return slices.Index(schema.AllFrameworks, a.Framework) - slices.Index(schema.AllFrameworks, b.Framework)
	})
}
