package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global manager with the config and result stores.
// An empty backend leaves that store uninitialized.
func InitStores(configBackend schema.DatabaseBackend, configConnStr string, resultsBackend schema.DatabaseBackend, resultsConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var configStore contract.ConfigStore
		if configBackend != "" {
			configStore, err = NewConfigStore(configBackend, configConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize config store: %w", err)
				return
			}
		}

		var resultStore contract.ResultStore
		if resultsBackend != "" {
			resultStore, err = NewResultStore(resultsBackend, resultsConnStr)
			if err != nil {
				if configStore != nil {
					_ = configStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize results store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.configs = configStore
		Manager.results = resultStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.configs != nil {
			_ = Manager.configs.Close()
		}
		if Manager.results != nil {
			_ = Manager.results.Close()
		}
	})
}

// ClearConfigs removes every stored framework configuration.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For Redis, it deletes the configuration keys.
// For NoneBackend, it does nothing.
func ClearConfigs(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend:
		return clearSQLTables("mysql", connStr, frameworkConfigsTable, ConfigMigrations.versionTable())
	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", connStr, frameworkConfigsTable, ConfigMigrations.versionTable())
	case schema.RedisBackend:
		store, err := NewRedisConfigStore(connStr)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.clear(context.Background())
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported config backend for clearing: %s", backend)
	}
}

// ClearResults removes every recorded scoring run and contact score.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the results tables.
// For NoneBackend, it does nothing.
func ClearResults(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend:
		return clearSQLTables("mysql", connStr, contactScoresTable, scoringRunsTable, ResultsMigrations.versionTable())
	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", connStr, contactScoresTable, scoringRunsTable, ResultsMigrations.versionTable())
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported results backend for clearing: %s", backend)
	}
}

func removeSQLiteFile(dbFilePath string) error {
	if dbFilePath == "" {
		return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
	}
	// Remove the file; ignore if it doesn't exist
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
	}
	return nil
}

// clearSQLTables connects to the SQL database and drops the tables if they exist.
func clearSQLTables(driverName, connStr string, tables ...string) error {
	if driverName == "mysql" {
		dsn, err := mysqlDSN(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse MySQL connection string: %w", err)
		}
		connStr = dsn
	}
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
