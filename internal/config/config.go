// Package config loads the YAML configuration shared by every command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hailam/xqnnue/internal/nnue"
)

// Config holds all xqnnue configuration.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Count   CountConfig   `yaml:"count"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig configures the parameter exporter.
type ExportConfig struct {
	Checkpoint string `yaml:"checkpoint"`
	Prefix     string `yaml:"prefix"`
	Workers    int    `yaml:"workers"`

	// Layer order and tensor keys of the checkpoint.
	Architecture nnue.Architecture `yaml:",inline"`
}

// CountConfig configures the sample counter.
type CountConfig struct {
	Root          string   `yaml:"root"`
	Extension     string   `yaml:"extension"`
	Exclude       []string `yaml:"exclude"`
	Workers       int      `yaml:"workers"`
	SkipMalformed bool     `yaml:"skip_malformed"`
	Cache         bool     `yaml:"cache"`
}

// StorageConfig locates the badger database. Empty means the platform data dir.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Workers:      1,
			Architecture: nnue.DefaultArchitecture(),
		},
		Count: CountConfig{
			Root:      ".",
			Extension: ".json",
			Workers:   1,
			Cache:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file over the defaults.
// A missing file yields the defaults. Environment overrides apply either way
// and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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
	if dir := os.Getenv("XQNNUE_STORAGE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if level := os.Getenv("XQNNUE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate reports settings no command can run with.
func (c *Config) Validate() error {
	arch := c.Export.Architecture
	if arch.InputSize <= 0 {
		return fmt.Errorf("export.input_size must be positive, got %d", arch.InputSize)
	}
	if len(arch.Layers) == 0 {
		return errors.New("export.layers is empty")
	}
	for i, l := range arch.Layers {
		if l.WeightKey == "" || l.BiasKey == "" {
			return fmt.Errorf("export.layers[%d] needs weight_key and bias_key", i)
		}
		if l.Out < 0 {
			return fmt.Errorf("export.layers[%d].out must not be negative", i)
		}
	}
	if c.Export.Workers < 0 || c.Count.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
