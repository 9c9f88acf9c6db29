// Package config loads the library settings from defaults, an optional YAML
// file, a .env file and LIBRARY_* environment variables (for example
// LIBRARY_STORAGE_DRIVER), in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Loans   LoanConfig    `yaml:"loans"`
	Members MemberConfig  `yaml:"members"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Driver  string        `yaml:"driver" envconfig:"LIBRARY_STORAGE_DRIVER"`
	Path    string        `yaml:"path" envconfig:"LIBRARY_STORAGE_PATH"`
	Timeout time.Duration `yaml:"timeout" envconfig:"LIBRARY_STORAGE_TIMEOUT"`
}

type LoanConfig struct {
	PeriodDays     int   `yaml:"period_days" envconfig:"LIBRARY_LOANS_PERIOD_DAYS"`
	DailyFineCents int64 `yaml:"daily_fine_cents" envconfig:"LIBRARY_LOANS_DAILY_FINE_CENTS"`
}

type MemberConfig struct {
	IDScheme string `yaml:"id_scheme" envconfig:"LIBRARY_MEMBERS_ID_SCHEME"`
	IDPrefix string `yaml:"id_prefix" envconfig:"LIBRARY_MEMBERS_ID_PREFIX"`
}

type LogConfig struct {
	Level zapcore.Level `yaml:"level" envconfig:"LIBRARY_LOG_LEVEL"`
	// File receives JSON logs. Empty disables logging.
	File string `yaml:"file" envconfig:"LIBRARY_LOG_FILE"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Driver: "sqlite", Path: "data/library.db", Timeout: 5 * time.Second},
		Loans:   LoanConfig{PeriodDays: 14, DailyFineCents: 100},
		Members: MemberConfig{IDScheme: "random", IDPrefix: "MEM"},
		Log:     LogConfig{Level: zapcore.InfoLevel, File: "data/library.log"},
	}
}

// LoadFile decodes the YAML file at path on top of cfg.
func LoadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	yd := yaml.NewDecoder(file)
	yd.KnownFields(true)
	if err := yd.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Load builds the configuration. path may be empty to skip the file; a
// missing .env is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load configurations from file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return cfg, nil
}

// Override applies command-line values, ignoring empty ones, and validates again.
func (c *Config) Override(driver, path string) error {
	if driver != "" {
		c.Storage.Driver = driver
	}
	if path != "" {
		c.Storage.Path = path
	}
	return c.Validate()
}

// Validate rejects settings the library cannot run with.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "bolt":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage path is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want memory, sqlite or bolt)", c.Storage.Driver)
	}
	if c.Loans.PeriodDays <= 0 {
		return errors.New("loans.period_days must be positive")
	}
	if c.Loans.DailyFineCents <= 0 {
		return errors.New("loans.daily_fine_cents must be positive")
	}
	switch c.Members.IDScheme {
	case "random", "sequential":
	default:
		return fmt.Errorf("unknown member id scheme %q (want random or sequential)", c.Members.IDScheme)
	}
	return nil
}

// LoanPeriod converts PeriodDays to a duration.
func (l LoanConfig) LoanPeriod() time.Duration {
	return time.Duration(l.PeriodDays) * 24 * time.Hour
}
