// Package config loads and saves chessprep configuration from YAML files,
// with environment variable overrides for scripted use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all chessprep configuration.
type Config struct {
	// Engine analysis settings
	Engine EngineConfig `yaml:"engine"`

	// SQLite storage paths
	Database DatabaseConfig `yaml:"database"`

	// PGN import settings
	Import ImportConfig `yaml:"import"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the UCI engine sessions.
type EngineConfig struct {
	Path         string `yaml:"path"`
	Depth        int    `yaml:"depth"`
	MultiPV      int    `yaml:"multipv"`
	BatchWorkers int    `yaml:"batch_workers"`
}

// DatabaseConfig configures the SQLite storage paths.
type DatabaseConfig struct {
	GamesPath     string `yaml:"games_path"`
	WorkspacePath string `yaml:"workspace_path"`
}

// ImportConfig configures the PGN importer and inbox watcher.
type ImportConfig struct {
	InboxDir string `yaml:"inbox_dir"`
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:         "stockfish",
			Depth:        18,
			MultiPV:      1,
			BatchWorkers: 4,
		},

		Database: DatabaseConfig{
			GamesPath:     "data/games.db",
			WorkspacePath: "data/workspaces.db",
		},

		Import: ImportConfig{
			InboxDir: "inbox",
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
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
	if path := os.Getenv("CHESSPREP_ENGINE"); path != "" {
		c.Engine.Path = path
	}
	if path := os.Getenv("CHESSPREP_DB"); path != "" {
		c.Database.GamesPath = path
	}
	if path := os.Getenv("CHESSPREP_WORKSPACE_DB"); path != "" {
		c.Database.WorkspacePath = path
	}
}

// GetDebounce returns the import watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Import.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.Path == "" {
		return fmt.Errorf("engine path not configured (set engine.path or CHESSPREP_ENGINE)")
	}
	if c.Engine.Depth < 0 {
		return fmt.Errorf("invalid engine depth: %d", c.Engine.Depth)
	}
	if c.Database.GamesPath == "" {
		return fmt.Errorf("games database path not configured")
	}
	if c.Database.WorkspacePath == "" {
		return fmt.Errorf("workspace database path not configured")
	}
	return nil
}
