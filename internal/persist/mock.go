package persist

import (
	"context"
	"time"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetConfigStore implements the StoreManager interface.
func (m *MockStoreManager) GetConfigStore() contract.ConfigStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ConfigStore)
	return store
}

// GetResultStore implements the StoreManager interface.
func (m *MockStoreManager) GetResultStore() contract.ResultStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ResultStore)
	return store
}

// MockConfigStore is a mock implementation of ConfigStore for testing.
type MockConfigStore struct {
	mock.Mock
}

var _ contract.ConfigStore = &MockConfigStore{} // Compile-time check

// Get implements the ConfigStore interface.
func (m *MockConfigStore) Get(ctx context.Context, tenant string, framework schema.FrameworkID) (schema.FrameworkConfig, error) {
	args := m.Called(ctx, tenant, framework)
	return args.Get(0).(schema.FrameworkConfig), args.Error(1)
}

// Put implements the ConfigStore interface.
func (m *MockConfigStore) Put(ctx context.Context, tenant string, cfg schema.FrameworkConfig) (schema.FrameworkConfig, error) {
	args := m.Called(ctx, tenant, cfg)
	return args.Get(0).(schema.FrameworkConfig), args.Error(1)
}

// List implements the ConfigStore interface.
func (m *MockConfigStore) List(ctx context.Context, tenant string) ([]schema.FrameworkConfig, error) {
	args := m.Called(ctx, tenant)
	cfgs, _ := args.Get(0).([]schema.FrameworkConfig)
	return cfgs, args.Error(1)
}

// Delete implements the ConfigStore interface.
func (m *MockConfigStore) Delete(ctx context.Context, tenant string, framework schema.FrameworkID) error {
	args := m.Called(ctx, tenant, framework)
	return args.Error(0)
}

// GetStatus implements the ConfigStore interface.
func (m *MockConfigStore) GetStatus() (schema.ConfigStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ConfigStoreStatus), args.Error(1)
}

// Close implements the ConfigStore interface.
func (m *MockConfigStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockResultStore is a mock implementation of ResultStore for testing.
type MockResultStore struct {
	mock.Mock
}

var _ contract.ResultStore = &MockResultStore{} // Compile-time check

// BeginRun implements the ResultStore interface.
func (m *MockResultStore) BeginRun(runID, tenant string, framework schema.FrameworkID, startTime time.Time, configVersion int) error {
	args := m.Called(runID, tenant, framework, startTime, configVersion)
	return args.Error(0)
}

// EndRun implements the ResultStore interface.
func (m *MockResultStore) EndRun(runID string, endTime time.Time, batch schema.BatchResult) error {
	args := m.Called(runID, endTime, batch)
	return args.Error(0)
}

// RecordScore implements the ResultStore interface.
func (m *MockResultStore) RecordScore(tenant, runID string, result schema.ScoreResult) error {
	args := m.Called(tenant, runID, result)
	return args.Error(0)
}

// GetStatus implements the ResultStore interface.
func (m *MockResultStore) GetStatus() (schema.ResultStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ResultStoreStatus), args.Error(1)
}

// GetAllRuns implements the ResultStore interface.
func (m *MockResultStore) GetAllRuns() ([]schema.ScoringRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.ScoringRunRecord)
	return runs, args.Error(1)
}

// GetAllScores implements the ResultStore interface.
func (m *MockResultStore) GetAllScores() ([]schema.ContactScoreRecord, error) {
	args := m.Called()
	scores, _ := args.Get(0).([]schema.ContactScoreRecord)
	return scores, args.Error(1)
}

// Close implements the ResultStore interface.
func (m *MockResultStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
