package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/logging"
	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. It is canceled on SIGINT/SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager = persist.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "leadscore",
	Short:              "Score sales leads against BANT, APEX, MDCP and SPICE.",
	Long:               `Leadscore turns enrichment data into a 0-100 composite score and a Hot, Warm or Cold tier per qualification framework.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine; values already in the environment win.
	_ = godotenv.Load()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".leadscore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("LEADSCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Optional threshold overrides stay unset unless a file or env var names them
	_ = viper.BindEnv("default-hot-min")
	_ = viper.BindEnv("default-warm-min")

	viper.SetDefault("tenant", contract.DefaultTenant)
	viper.SetDefault("framework", "all")
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("log-format", "text")
	viper.SetDefault("config-backend", schema.SQLiteBackend)
	viper.SetDefault("config-db-connect", "")
	viper.SetDefault("results-backend", schema.NoneBackend)
	viper.SetDefault("results-db-connect", "")
	viper.SetDefault("threshold-profile", schema.DefaultThresholdProfile)
	viper.SetDefault("redis-url", contract.DefaultRedisURL)
	viper.SetDefault("queue", contract.DefaultQueue)
	viper.SetDefault("concurrency", contract.DefaultConcurrency)
	viper.SetDefault("addr", contract.DefaultServerAddr)
	viper.SetDefault("rate-limit", contract.DefaultRateLimit)
	viper.SetDefault("rate-burst", contract.DefaultRateBurst)
}

// loadConfigFile reads the config file if one exists.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the stores.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// 4. Initialize persistence layer with validated config
	if err := persist.InitStores(cfg.ConfigBackend, cfg.ConfigDBConnect, cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// backendSetup loads only the backend settings of one store. It is used by
// the store and results maintenance commands, which must work on a database
// whose schema is missing or outdated.
func backendSetup(backendKey, connectKey string) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	logging.Setup(viper.GetString("log-level"), viper.GetString("log-format"))

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString(backendKey)))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString(connectKey)
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", fmt.Errorf("%s: %w", connectKey, err)
	}
	cfg.OutputFile = viper.GetString("output-file")
	return backend, connStr, nil
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.ExecuteContext(ctx)
}

// sqlitePath returns the database file a SQLite store opens.
func sqlitePath(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}
