// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Filename string `yaml:"filename"`
}

type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	At      string `yaml:"at"` // HH:MM local time, nightly
}

// OperatorConfig declares one staff member and the capabilities granted to
// them. Role "admin" implies every capability.
type OperatorConfig struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Capabilities []string `yaml:"capabilities"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		LogLevel    string `yaml:"log_level"`
	} `yaml:"app"`

	Store StoreConfig `yaml:"store"`

	Venue struct {
		DefaultPhoneRegion string `yaml:"default_phone_region"`
	} `yaml:"venue"`

	Snapshot SnapshotConfig `yaml:"snapshot"`

	Operators []OperatorConfig `yaml:"operators"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present: a
// local sqlite store, one admin operator, snapshots off.
func Default() *Config {
	cfg := &Config{}
	cfg.Operators = []OperatorConfig{{Name: "admin", Role: "admin"}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "smashpoint"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Store.Filename == "" {
		c.Store.Filename = "data/smashpoint.db"
	}
	if c.Venue.DefaultPhoneRegion == "" {
		c.Venue.DefaultPhoneRegion = "US"
	}
	if c.Snapshot.At == "" {
		c.Snapshot.At = "02:00"
	}
}

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app port %d is out of range", c.App.Port)
	}
	if c.Store.Filename == "" {
		return fmt.Errorf("store filename is required")
	}
	if len(c.Operators) == 0 {
		return fmt.Errorf("at least one operator is required")
	}
	seen := make(map[string]struct{}, len(c.Operators))
	for _, op := range c.Operators {
		if op.Name == "" {
			return fmt.Errorf("operator name is required")
		}
		if _, dup := seen[op.Name]; dup {
			return fmt.Errorf("duplicate operator name: %s", op.Name)
		}
		seen[op.Name] = struct{}{}
	}
	return nil
}
