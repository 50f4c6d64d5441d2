// Package persist stores framework configurations and scoring results.
package persist

import (
	"sync"

	"github.com/huangsam/leadscore/internal/contract"
)

// StoreManager manages the config and result store instances.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	configs      contract.ConfigStore
	results      contract.ResultStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager wraps already opened stores. Either may be nil.
func NewStoreManager(configs contract.ConfigStore, results contract.ResultStore) *StoreManager {
	return &StoreManager{configs: configs, results: results}
}

// GetConfigStore returns the framework configuration store.
func (mgr *StoreManager) GetConfigStore() contract.ConfigStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.configs
}

// GetResultStore returns the scoring result store.
func (mgr *StoreManager) GetResultStore() contract.ResultStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}
