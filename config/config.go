package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sntrack/internal/analyzer"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultPath is where the hook looks for its configuration when neither
// -config nor SNTRACK_CONFIG is given.
const DefaultPath = "/etc/sntrack/config.yaml"

// Config represents the overall application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// BusyTimeoutMS is how long a sqlite writer waits on a held lock.
	BusyTimeoutMS          int    `yaml:"busy_timeout_ms"`
}

// RecorderConfig controls where the hook reads host power state from.
type RecorderConfig struct {
	SkipOnAC       bool   `yaml:"skip_on_ac"`
	PowerSupplyDir string `yaml:"power_supply_dir"`
	MemSleepPath   string `yaml:"mem_sleep_path"`
	DmidecodePath  string `yaml:"dmidecode_path"`
}

// AnalyzerConfig holds interval pairing and filtering settings.
type AnalyzerConfig struct {
	MinDurationSeconds    int           `yaml:"min_duration_seconds"`
	MinDuration           time.Duration `yaml:"-"` // Ignored by YAML parser
	PairingPolicy         string        `yaml:"pairing_policy"`
	ExcludeNonDischarging bool          `yaml:"exclude_non_discharging"`
}

// ServerConfig holds the settings of the series API.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			DSN:           "/usr/local/share/sntrack/history.db",
			MaxOpenConns:  1,
			MaxIdleConns:  1,
			BusyTimeoutMS: 5000,
		},
		Recorder: RecorderConfig{
			SkipOnAC:       true,
			PowerSupplyDir: "/sys/class/power_supply",
			MemSleepPath:   "/sys/power/mem_sleep",
			DmidecodePath:  "/usr/bin/dmidecode",
		},
		Analyzer: AnalyzerConfig{
			MinDurationSeconds:    300,
			PairingPolicy:         string(analyzer.LastWins),
			ExcludeNonDischarging: true,
		},
		Server: ServerConfig{
			Port:            8089,
			RateLimitPerSec: 5,
			CacheTTLSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from the given path. A missing file yields
// the defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Analyzer.MinDurationSeconds < 0 {
		cfg.Analyzer.MinDurationSeconds = 0
	}
	cfg.Analyzer.MinDuration = time.Duration(cfg.Analyzer.MinDurationSeconds) * time.Second

	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SNTRACK_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SNTRACK_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SNTRACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}

	policy, err := analyzer.ParsePolicy(c.Analyzer.PairingPolicy)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Analyzer.PairingPolicy = string(policy)

	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("config: invalid busy timeout %d", c.Database.BusyTimeoutMS)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	return nil
}
