// Package config loads the process configuration of the migration CLI.
//
// Values are resolved in increasing priority: struct defaults, config file,
// SAVEDOBJECTS_* environment variables, command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "SAVEDOBJECTS"

// Configuration is the top-level CLI configuration.
type Configuration struct {
	Database  Database  `mapstructure:"database"`
	Migration Migration `mapstructure:"migration"`
	Metrics   Metrics   `mapstructure:"metrics"`
	LogLevel  string    `mapstructure:"log-level" default:"info"`
	LogFormat string    `mapstructure:"log-format" default:"json"`
}

// Database selects the document store.
type Database struct {
	Dialect     string        `mapstructure:"dialect" default:"sqlite3"`
	DSN         string        `mapstructure:"dsn" default:"file:savedobjects.db"`
	Table       string        `mapstructure:"table" default:"saved_objects"`
	Initialize  bool          `mapstructure:"initialize" default:"true"`
	WaitTimeout time.Duration `mapstructure:"wait-timeout" default:"30s"`
}

// Migration tunes a run.
type Migration struct {
	BatchSize  int    `mapstructure:"batch-size" default:"100"`
	SentinelID string `mapstructure:"sentinel-id" default:"kibi"`
	Index      string `mapstructure:"index" default:".siren"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"dialect":      "database.dialect",
	"dsn":          "database.dsn",
	"table":        "database.table",
	"init":         "database.initialize",
	"wait-timeout": "database.wait-timeout",
	"batch-size":   "migration.batch-size",
	"sentinel-id":  "migration.sentinel-id",
	"index":        "migration.index",
	"metrics-addr": "metrics.addr",
	"log-level":    "log-level",
	"log-format":   "log-format",
}

// New returns a configuration holding the default values.
func New() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// RegisterFlags adds the configuration flags to flags, using cfg for default values.
func RegisterFlags(flags *pflag.FlagSet, cfg *Configuration) {
	flags.String("dialect", cfg.Database.Dialect, "database dialect: postgres, mysql, sqlite3 or duckdb")
	flags.String("dsn", cfg.Database.DSN, "database connection string")
	flags.String("table", cfg.Database.Table, "saved objects table")
	flags.Bool("init", cfg.Database.Initialize, "create the saved objects table if missing")
	flags.Duration("wait-timeout", cfg.Database.WaitTimeout, "how long to wait for the database")
	flags.Int("batch-size", cfg.Migration.BatchSize, "documents read per page")
	flags.String("sentinel-id", cfg.Migration.SentinelID, "id of the configuration document holding the marker")
	flags.String("index", cfg.Migration.Index, "index name used in metrics")
	flags.String("metrics-addr", cfg.Metrics.Addr, "address serving /metrics, empty to disable")
	flags.String("log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", cfg.LogFormat, "log format: json or console")
}

// Load resolves the configuration from the optional config file, the
// environment and flags registered with RegisterFlags.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Configuration, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *Configuration) Validate() error {
	if _, err := sqlstore.ParseDialect(c.Database.Dialect); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Migration.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Migration.BatchSize)
	}
	if c.Migration.SentinelID == "" {
		return errors.New("sentinel id is required")
	}
	return nil
}
