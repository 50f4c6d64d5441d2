package contract

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/huangsam/leadscore/schema"
)

// Default values for configuration.
const (
	DefaultTenant      = "default"
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultServerAddr  = ":8080"
	DefaultRateLimit   = 10.0
	DefaultRateBurst   = 20
	DefaultQueue       = "leadscore"
	DefaultConcurrency = 10
	DefaultRedisURL    = "redis://localhost:6379/0"
)

// DefaultWorkers is the default number of concurrent scoring workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for scoring.
// This struct remains the "final, validated" config.
type Config struct {
	Tenant      string
	Frameworks  []schema.FrameworkID
	InputFile   string
	ResultLimit int
	Workers     int
	Detail      bool
	Explain     bool
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	LogLevel  string
	LogFormat string

	AcceptClamped bool
	Enqueue       bool

	// ThresholdProfile names the profile new configurations are seeded from
	ThresholdProfile  string
	DefaultThresholds schema.ThresholdSet

	// FrameworkConfigs are the seeded defaults with config file overrides applied.
	// A tenant without a stored configuration scores with these.
	FrameworkConfigs map[schema.FrameworkID]schema.FrameworkConfig

	ConfigBackend   schema.DatabaseBackend
	ConfigDBConnect string // Please use env var as this is plaintext

	ResultsBackend   schema.DatabaseBackend
	ResultsDBConnect string // Please use env var as this is plaintext

	RedisURL    string
	Queue       string
	Concurrency int

	ServerAddr  string
	JWTSecret   string // Please use env var as this is plaintext
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Tenant           string `mapstructure:"tenant"`
	Framework        string `mapstructure:"framework"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Limit            int    `mapstructure:"limit"`
	Workers          int    `mapstructure:"workers"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	ConfigBackend    string `mapstructure:"config-backend"`
	ConfigDBConnect  string `mapstructure:"config-db-connect"`
	ResultsBackend   string `mapstructure:"results-backend"`
	ResultsDBConnect string `mapstructure:"results-db-connect"`
	RedisURL         string `mapstructure:"redis-url"`
	Queue            string `mapstructure:"queue"`

	// --- Fields from scoreCmd.Flags() ---
	Input   string `mapstructure:"input"`
	Detail  bool   `mapstructure:"detail"`
	Explain bool   `mapstructure:"explain"`
	Enqueue bool   `mapstructure:"enqueue"`

	// --- Fields from weightsSetCmd.Flags() ---
	AcceptClamped bool `mapstructure:"accept-clamped"`

	// --- Fields from serveCmd.Flags() ---
	Addr        string  `mapstructure:"addr"`
	JWTSecret   string  `mapstructure:"jwt-secret"`
	CORSOrigins string  `mapstructure:"cors-origins"`
	RateLimit   float64 `mapstructure:"rate-limit"`
	RateBurst   int     `mapstructure:"rate-burst"`

	// --- Fields from workerCmd.Flags() ---
	Concurrency int `mapstructure:"concurrency"`

	// --- Threshold defaults from config file or env ---
	ThresholdProfile string `mapstructure:"threshold-profile"`
	DefaultHotMin    *int   `mapstructure:"default-hot-min"`
	DefaultWarmMin   *int   `mapstructure:"default-warm-min"`

	// --- Framework overrides from config file ---
	Frameworks map[string]FrameworkRawInput `mapstructure:"frameworks"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Frameworks = slices.Clone(c.Frameworks)
	clone.CORSOrigins = slices.Clone(c.CORSOrigins)
	if c.FrameworkConfigs != nil {
		clone.FrameworkConfigs = make(map[schema.FrameworkID]schema.FrameworkConfig, len(c.FrameworkConfigs))
		for fw, fc := range c.FrameworkConfigs {
			clone.FrameworkConfigs[fw] = fc.Clone()
		}
	}
	return &clone
}

// CloneWithFrameworks creates a copy of the Config scoped to the given frameworks.
func (c *Config) CloneWithFrameworks(frameworks ...schema.FrameworkID) *Config {
	clone := c.Clone()
	clone.Frameworks = slices.Clone(frameworks)
	return clone
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processServerInputs(cfg, input); err != nil {
		return err
	}
	if err := processThresholdDefaults(cfg, input); err != nil {
		return err
	}
	if err := processFrameworks(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of connection strings
// for the MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must start with 'redis://' or 'rediss://'")
		}
	}
	return nil
}

// validateBackendConfigs validates config and results backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Config Backend Validation ---
	cfg.ConfigBackend = schema.DatabaseBackend(strings.ToLower(input.ConfigBackend))
	if _, ok := schema.ValidConfigBackends[cfg.ConfigBackend]; !ok {
		return fmt.Errorf("invalid config backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.ConfigBackend)
	}
	cfg.ConfigDBConnect = input.ConfigDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ConfigBackend, cfg.ConfigDBConnect); err != nil {
		return fmt.Errorf("config-db-connect: %w", err)
	}

	// --- Results Backend Validation ---
	cfg.ResultsBackend = schema.DatabaseBackend(strings.ToLower(input.ResultsBackend))
	if _, ok := schema.ValidResultsBackends[cfg.ResultsBackend]; !ok {
		return fmt.Errorf("invalid results backend '%s'. must be sqlite, mysql, postgresql, none", input.ResultsBackend)
	}
	cfg.ResultsDBConnect = input.ResultsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ResultsBackend, cfg.ResultsDBConnect); err != nil {
		return fmt.Errorf("results-db-connect: %w", err)
	}

	return nil
}

// validateSimpleInputs processes and validates all non-backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.InputFile = input.Input
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Explain = input.Explain
	cfg.Width = input.Width
	cfg.AcceptClamped = input.AcceptClamped
	cfg.Enqueue = input.Enqueue
	cfg.LogLevel = input.LogLevel

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Tenant Validation ---
	cfg.Tenant = strings.TrimSpace(input.Tenant)
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultTenant
	}
	if len(cfg.Tenant) > 128 || strings.ContainsAny(cfg.Tenant, " \t\n:") {
		return fmt.Errorf("invalid tenant %q: must be at most 128 characters without whitespace or ':'", input.Tenant)
	}

	// --- 2. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 3. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 4. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 5. Log Format Validation ---
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}

	return nil
}

// processServerInputs handles the fields used by serve and worker.
func processServerInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ServerAddr = input.Addr
	cfg.JWTSecret = input.JWTSecret
	cfg.RedisURL = input.RedisURL
	cfg.Queue = input.Queue
	cfg.Concurrency = input.Concurrency

	cfg.CORSOrigins = nil
	for origin := range strings.SplitSeq(input.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
		}
	}

	if input.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be greater than 0 (received %g)", input.RateLimit)
	}
	cfg.RateLimit = input.RateLimit
	if input.RateBurst <= 0 {
		return fmt.Errorf("rate-burst must be greater than 0 (received %d)", input.RateBurst)
	}
	cfg.RateBurst = input.RateBurst
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0 (received %d)", cfg.Concurrency)
	}
	if cfg.Enqueue && cfg.RedisURL == "" {
		return fmt.Errorf("--enqueue requires redis-url")
	}
	return nil
}

// processThresholdDefaults resolves the thresholds that new configurations are
// seeded with: the named profile first, then explicit overrides.
func processThresholdDefaults(cfg *Config, input *ConfigRawInput) error {
	profile := input.ThresholdProfile
	if profile == "" {
		profile = schema.DefaultThresholdProfile
	}
	thresholds, err := schema.LookupThresholdProfile(profile)
	if err != nil {
		return err
	}
	cfg.ThresholdProfile = strings.ToLower(profile)

	if input.DefaultHotMin != nil {
		thresholds.HotMin = *input.DefaultHotMin
	}
	if input.DefaultWarmMin != nil {
		thresholds.WarmMin = *input.DefaultWarmMin
	}
	if err := thresholds.Validate(); err != nil {
		return fmt.Errorf("default thresholds: %w", err)
	}
	cfg.DefaultThresholds = thresholds
	return nil
}

// processFrameworks builds the seeded framework configurations and resolves
// which frameworks the command operates on.
func processFrameworks(cfg *Config, input *ConfigRawInput) error {
	configs, err := BuildFrameworkConfigs(input.Frameworks, cfg.DefaultThresholds)
	if err != nil {
		return err
	}
	cfg.FrameworkConfigs = configs

	frameworks, err := ParseFrameworkList(input.Framework)
	if err != nil {
		return err
	}
	cfg.Frameworks = frameworks
	return nil
}

// ParseFrameworkList parses "bant", "bant,spice" or "all" into framework ids.
// An empty string selects every framework.
func ParseFrameworkList(s string) ([]schema.FrameworkID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return slices.Clone(schema.AllFrameworks), nil
	}
	seen := make(map[schema.FrameworkID]struct{})
	var out []schema.FrameworkID
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		fw, err := schema.ParseFrameworkID(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[fw]; dup {
			continue
		}
		seen[fw] = struct{}{}
		out = append(out, fw)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no framework selected from %q", s)
	}
	return out, nil
}

// SeededFrameworks returns the seeded configurations of the selected frameworks.
func (c *Config) SeededFrameworks() map[schema.FrameworkID]schema.FrameworkConfig {
	out := make(map[schema.FrameworkID]schema.FrameworkConfig, len(c.Frameworks))
	for _, fw := range c.Frameworks {
		if fc, ok := c.FrameworkConfigs[fw]; ok {
			out[fw] = fc.Clone()
		}
	}
	return out
}
