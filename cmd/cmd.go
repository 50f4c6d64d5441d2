// Package cmd defines the command-line interface for leadscore.
package cmd

import (
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(thresholdsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	weightsCmd.AddCommand(weightsSetCmd)
	thresholdsCmd.AddCommand(thresholdsSetCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configResetCmd)

	resultsCmd.AddCommand(resultsStatusCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsClearCmd)
	resultsCmd.AddCommand(resultsMigrateCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("tenant", contract.DefaultTenant, "Tenant whose configurations are used")
	rootCmd.PersistentFlags().StringP("framework", "f", "all", "Frameworks to use: all or a comma-separated list of APEX, MDCP, BANT, SPICE")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display per framework")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent scoring workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("config-backend", string(schema.SQLiteBackend), "Config backend: sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("config-db-connect", "", "Connection string for the config backend (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("results-backend", string(schema.NoneBackend), "Result tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("results-db-connect", "", "Connection string for the results backend")
	rootCmd.PersistentFlags().String("threshold-profile", schema.DefaultThresholdProfile, "Thresholds new configurations are seeded with: standard or strict or conservative")
	rootCmd.PersistentFlags().String("redis-url", contract.DefaultRedisURL, "Redis URL of the job queue")
	rootCmd.PersistentFlags().String("queue", contract.DefaultQueue, "Job queue name")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of scoreCmd to Viper
	scoreCmd.Flags().StringP("input", "i", "", "Contacts file (JSON array or JSON lines); stdin when empty or -")
	scoreCmd.Flags().Bool("detail", false, "Print per-dimension scores")
	scoreCmd.Flags().Bool("explain", false, "Print weighted contributions and degraded dimensions")
	scoreCmd.Flags().Bool("enqueue", false, "Submit the batch to the job queue instead of scoring locally")
	if err := viper.BindPFlags(scoreCmd.Flags()); err != nil {
		contract.LogFatal("Error binding score flags", err)
	}

	// Bind all flags of weightsSetCmd to Viper
	weightsSetCmd.Flags().Bool("accept-clamped", false, "Save the weights even if other dimensions had to be clamped")
	if err := viper.BindPFlags(weightsSetCmd.Flags()); err != nil {
		contract.LogFatal("Error binding weights flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("addr", contract.DefaultServerAddr, "Address to listen on")
	serveCmd.Flags().String("jwt-secret", "", "HMAC secret for bearer tokens (empty disables auth)")
	serveCmd.Flags().String("cors-origins", "", "Comma-separated list of allowed CORS origins")
	serveCmd.Flags().Float64("rate-limit", contract.DefaultRateLimit, "Requests per second allowed per client IP")
	serveCmd.Flags().Int("rate-burst", contract.DefaultRateBurst, "Burst size per client IP")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of workerCmd to Viper
	workerCmd.Flags().Int("concurrency", contract.DefaultConcurrency, "Number of tasks processed at once")
	if err := viper.BindPFlags(workerCmd.Flags()); err != nil {
		contract.LogFatal("Error binding worker flags", err)
	}

	// The migrate flags are read from each command, not Viper, since both share a name
	resultsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
