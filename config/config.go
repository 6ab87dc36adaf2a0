// Package config provides YAML configuration loading and validation for
// the bgzfsort CLI. None of this lives in the core: the split planner
// and pair sorter take plain Go arguments, per spec.md §6 ("No
// environment variables or CLI are part of the core").
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level CLI configuration structure.
type Config struct {
	// Input is the path to the BGZF input file. Required.
	Input string `yaml:"input"`

	// Output is the path the result is written to. Required.
	Output string `yaml:"output"`

	// Sidecar is an optional path to an auxiliary block index used by
	// the split planner instead of probing the file directly.
	Sidecar string `yaml:"sidecar,omitempty"`

	// Parallelism is the number of partitions (split) or workers per
	// reference (sort). Defaults to 4 when omitted.
	Parallelism int `yaml:"parallelism"`

	// CompressionLevel is the flate level used when encoding output
	// blocks, from -2 (huffman only) to 9 (best compression), or -1
	// for the library default. A pointer so an explicit
	// "compression_level: 0" (flate.NoCompression) survives unmarshal
	// distinguishably from the field being omitted; use Level() to
	// read the resolved value after Load applies defaults.
	CompressionLevel *int `yaml:"compression_level"`

	// LogLevel must be one of "debug", "info", "warn", or "error".
	// Defaults to "info" when omitted. It is validated only: nothing in
	// this module reads it to filter log output.
	LogLevel string `yaml:"log_level"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 4
	}
	if cfg.CompressionLevel == nil {
		def := -1
		cfg.CompressionLevel = &def
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	var errs []error
	if cfg.Input == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if cfg.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if cfg.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be >= 1, got %d", cfg.Parallelism))
	}
	if *cfg.CompressionLevel < -2 || *cfg.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level must be between -2 and 9, got %d", *cfg.CompressionLevel))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	return errors.Join(errs...)
}

// Level returns the resolved compression level. After Load,
// CompressionLevel is always non-nil; on a Config built without Load
// and no level set, Level returns -1 (the library default).
func (c *Config) Level() int {
	if c.CompressionLevel == nil {
		return -1
	}
	return *c.CompressionLevel
}
