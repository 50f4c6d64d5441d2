package cmd

import (
	"fmt"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cobra"
)

// storeSetup opens only the config store.
func storeSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := backendSetup("config-backend", "config-db-connect")
	if err != nil {
		return err
	}
	if err := persist.InitStores(backend, connStr, schema.NoneBackend, ""); err != nil {
		return fmt.Errorf("failed to initialize config store: %w", err)
	}
	cfg.ConfigBackend = backend
	cfg.ConfigDBConnect = connStr
	return nil
}

// storeMigrateSetup resolves the config backend without opening it, so
// migrations can run on a fresh database.
func storeMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := backendSetup("config-backend", "config-db-connect")
	if err != nil {
		return err
	}
	cfg.ConfigBackend = backend
	cfg.ConfigDBConnect = connStr
	return nil
}

// storeCmd manages the framework configuration store.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the framework configuration store",
	Long: `Manage the database that holds tenant framework configurations.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None (defaults only)

Subcommands:
  status   - Show connection details and stored configuration counts
  clear    - Remove every stored configuration
  migrate  - Run schema migrations`,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display config store statistics and connection details",
	Long: `Show the backend, connection status, stored configuration and tenant
counts, and the time of the last write.

Examples:
  leadscore store status
  leadscore store status --config-backend redis --config-db-connect redis://localhost:6379/0`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := storeManager.GetConfigStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get config store status", err)
		}
		persist.PrintConfigStatus(status)
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored framework configuration",
	Long: `Delete every tenant's stored configurations. Tenants score with the seeded
defaults afterwards.

WARNING: This action cannot be undone. Consider config export first.

Examples:
  leadscore config export --output-file backup.yaml
  leadscore store clear`,
	PreRunE: storeMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := persist.ClearConfigs(cfg.ConfigBackend, sqlitePath(cfg.ConfigDBConnect, contract.GetConfigDBFilePath()), cfg.ConfigDBConnect); err != nil {
			contract.LogFatal("Failed to clear config store", err)
		}
		fmt.Println("Config store cleared successfully.")
	},
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run config store schema migrations (upgrades/downgrades)",
	Long: `Manage the schema version of the config store. Redis needs no migrations.

Examples:
  # Migrate to latest version (default)
  leadscore store migrate

  # Rollback to initial state
  leadscore store migrate --target-version 0`,
	PreRunE: storeMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion, _ := cmd.Flags().GetInt("target-version")
		if err := persist.Migrate(persist.ConfigMigrations, cfg.ConfigBackend, cfg.ConfigDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
