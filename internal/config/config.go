package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all cadenza configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Catalog extension files
	Catalog CatalogConfig `yaml:"catalog"`

	// Audit store
	Store StoreConfig `yaml:"store"`

	// Resolution defaults
	Resolver ResolverConfig `yaml:"resolver"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// CatalogConfig configures the extension catalog.
type CatalogConfig struct {
	// Directory scanned for *.yaml extension files
	Dir string `yaml:"dir"`

	// Watch the directory and hot-reload on change
	Watch bool `yaml:"watch"`
}

// StoreConfig configures the audit store.
type StoreConfig struct {
	Path string `yaml:"path"`

	// Graphs older than this are eligible for cleanup; 0 disables it
	RetentionDays int `yaml:"retention_days"`
}

// ResolverConfig configures default resolution behavior.
type ResolverConfig struct {
	// Strategy for ranking scope readings
	Strategy string `yaml:"strategy"`

	// Predicates the discourse so far has established as wide-scoped
	WideScopePredicates []string `yaml:"wide_scope_predicates,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cadenza",
		Version: "0.4.0",

		Catalog: CatalogConfig{
			Dir:   "catalog",
			Watch: false,
		},

		Store: StoreConfig{
			Path:          "data/cadenza.db",
			RetentionDays: 30,
		},

		Resolver: ResolverConfig{
			Strategy: "pragmatic-bias",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns the path Load falls back to when the caller
// gives none.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "cadenza.yaml"
	}
	return filepath.Join(cwd, "cadenza.yaml")
}

// Load loads configuration from a YAML file. A missing file is not an
// error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CADENZA_DB"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("CADENZA_CATALOG_DIR"); dir != "" {
		c.Catalog.Dir = dir
	}
	if strategy := os.Getenv("CADENZA_STRATEGY"); strategy != "" {
		c.Resolver.Strategy = strategy
	}
	if level := os.Getenv("CADENZA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ValidStrategies lists all supported scope resolution strategies.
var ValidStrategies = []string{
	"default-wide", "default-narrow", "syntactic", "pragmatic-bias", "ask-user",
}

// ValidLogLevels lists all supported logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validStrategy := false
	for _, s := range ValidStrategies {
		if c.Resolver.Strategy == s {
			validStrategy = true
			break
		}
	}
	if !validStrategy {
		return fmt.Errorf("invalid resolver strategy: %s (valid: %v)", c.Resolver.Strategy, ValidStrategies)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("store retention_days must be >= 0, got %d", c.Store.RetentionDays)
	}

	return nil
}
