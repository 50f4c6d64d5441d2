// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/leadscore/schema"
)

// StoreManager defines the interface for managing persistence stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetConfigStore() ConfigStore
	GetResultStore() ResultStore
}

// ConfigStore persists framework configurations keyed by (tenant, framework).
type ConfigStore interface {
	// Get returns the stored configuration or schema.ErrConfigNotFound.
	Get(ctx context.Context, tenant string, framework schema.FrameworkID) (schema.FrameworkConfig, error)

	// Put stores a valid configuration. The write succeeds only if cfg.Version
	// matches the stored version (0 when absent); the stored copy carries the
	// next version and is returned.
	Put(ctx context.Context, tenant string, cfg schema.FrameworkConfig) (schema.FrameworkConfig, error)

	// List returns every stored configuration of a tenant in framework order.
	List(ctx context.Context, tenant string) ([]schema.FrameworkConfig, error)

	// Delete removes a stored configuration so the tenant falls back to defaults.
	Delete(ctx context.Context, tenant string, framework schema.FrameworkID) error

	// GetStatus returns status information about the config store
	GetStatus() (schema.ConfigStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// ResultStore tracks scoring runs and the latest score of every contact.
type ResultStore interface {
	// BeginRun records the start of a batch scoring run
	BeginRun(runID, tenant string, framework schema.FrameworkID, startTime time.Time, configVersion int) error

	// EndRun updates the run with its completion totals
	EndRun(runID string, endTime time.Time, batch schema.BatchResult) error

	// RecordScore upserts the latest score of a contact for a framework
	RecordScore(tenant, runID string, result schema.ScoreResult) error

	// GetStatus returns status information about the result store
	GetStatus() (schema.ResultStoreStatus, error)

	// GetAllRuns returns every recorded run, newest first
	GetAllRuns() ([]schema.ScoringRunRecord, error)

	// GetAllScores returns every recorded contact score
	GetAllScores() ([]schema.ContactScoreRecord, error)

	// Close closes the underlying connection
	Close() error
}
