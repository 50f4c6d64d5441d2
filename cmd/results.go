package cmd

import (
	"fmt"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cobra"
)

// resultsSetup opens only the results store.
func resultsSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := backendSetup("results-backend", "results-db-connect")
	if err != nil {
		return err
	}
	if err := persist.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize results store: %w", err)
	}
	cfg.ResultsBackend = backend
	cfg.ResultsDBConnect = connStr
	return nil
}

// resultsMigrateSetup resolves the results backend without opening it.
func resultsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := backendSetup("results-backend", "results-db-connect")
	if err != nil {
		return err
	}
	cfg.ResultsBackend = backend
	cfg.ResultsDBConnect = connStr
	return nil
}

// resultsCmd focused on scoring result data management.
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage scoring run tracking and exports",
	Long: `Manage recorded scoring results.

When enabled, every batch records:
- The run (tenant, framework, totals, configuration version, duration)
- The latest score of each contact per framework

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status   - Show result tracking statistics
  export   - Export runs and scores to Parquet
  clear    - Remove all recorded results
  migrate  - Run schema migrations`,
}

var resultsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display result tracking statistics and connection details",
	Long: `Show the backend, connection status, run and contact counts, the newest
and oldest run, and table sizes.

Examples:
  leadscore results status --results-backend sqlite`,
	PreRunE: resultsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := storeManager.GetResultStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get results status", err)
		}
		persist.PrintResultStatus(status)
	},
}

var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and contact scores to Parquet",
	Long: `Export every recorded run and contact score as two Parquet files.

Requires: --output-file parameter

Examples:
  leadscore results export --output-file leadscore.parquet
  duckdb -c "SELECT tier, count(*) FROM read_parquet('leadscore.scores.parquet') GROUP BY tier"`,
	PreRunE: resultsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := persist.ExecuteResultsExport(storeManager.GetResultStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export results", err)
		}
	},
}

var resultsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs and scores",
	Long: `Delete all recorded runs and contact scores.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  leadscore results export --output-file backup.parquet
  leadscore results clear`,
	PreRunE: resultsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := persist.ClearResults(cfg.ResultsBackend, sqlitePath(cfg.ResultsDBConnect, contract.GetResultsDBFilePath()), cfg.ResultsDBConnect); err != nil {
			contract.LogFatal("Failed to clear results", err)
		}
		fmt.Println("Results cleared successfully.")
	},
}

var resultsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run results schema migrations (upgrades/downgrades)",
	Long: `Manage the schema version of the results store.

Examples:
  # Migrate to latest version (default)
  leadscore results migrate --results-backend postgresql --results-db-connect "$DSN"

  # Migrate to specific version
  leadscore results migrate --target-version 1`,
	PreRunE: resultsMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion, _ := cmd.Flags().GetInt("target-version")
		if err := persist.Migrate(persist.ResultsMigrations, cfg.ResultsBackend, cfg.ResultsDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
