// Package config loads regcheck settings from a YAML file
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raymyers/regcheck/pkg/alloc"
	"github.com/raymyers/regcheck/pkg/compare"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation error
var ErrInvalidConfig = errors.New("invalid configuration")

// Color settings
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// MaxPrecision bounds the number of decimals a cost can be printed with
const MaxPrecision = 12

// Config holds comparison and output settings
type Config struct {
	Tolerance float64 `yaml:"tolerance"`
	Mode      string  `yaml:"mode"`
	Precision int     `yaml:"precision"`
	Color     string  `yaml:"color"`
	Diff      bool    `yaml:"diff"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Tolerance: compare.DefaultTolerance,
		Mode:      compare.Positional.String(),
		Precision: alloc.DefaultPrecision,
		Color:     ColorAuto,
	}
}

// Load reads a YAML file on top of the defaults and validates the result
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative, got %v", ErrInvalidConfig, c.Tolerance)
	}
	if _, err := compare.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Precision < 0 || c.Precision > MaxPrecision {
		return fmt.Errorf("%w: precision must be between 0 and %d, got %d", ErrInvalidConfig, MaxPrecision, c.Precision)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: color must be auto, always or never, got %q", ErrInvalidConfig, c.Color)
	}
	return nil
}

// CompareOptions converts the settings to comparator options.
// The config must have been validated.
func (c *Config) CompareOptions() compare.Options {
	mode, _ := compare.ParseMode(c.Mode)
	return compare.Options{Tolerance: c.Tolerance, Mode: mode}
}

// CostFormat returns the cost rendering for the configured precision
func (c *Config) CostFormat() alloc.CostFormat {
	return alloc.CostFormat{Precision: c.Precision}
}
