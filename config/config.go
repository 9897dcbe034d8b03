// Package config loads kernel settings and per-component overrides from a
// YAML file and KEEL_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root of a keel configuration file.
type Config struct {
	// Logging configures the kernel logger built by Logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Kernel holds kernel-wide defaults.
	Kernel KernelConfig `yaml:"kernel" json:"kernel"`

	// Components overrides registrations by component name.
	Components map[string]ComponentConfig `yaml:"components" json:"components"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// Format is text or json.
	Format string `yaml:"format" json:"format"`

	// Output is stdout or stderr.
	Output string `yaml:"output" json:"output"`

	AddSource bool `yaml:"addSource" json:"addSource"`
}

type KernelConfig struct {
	// PoolTimeout applies to pooled components that declare none.
	PoolTimeout time.Duration `yaml:"poolTimeout" json:"poolTimeout"`
}

// ComponentConfig replaces parts of a descriptor before its handler is built.
// Empty fields leave the registration untouched.
type ComponentConfig struct {
	// Lifestyle is singleton, transient, per-thread or pooled.
	Lifestyle string `yaml:"lifestyle,omitempty" json:"lifestyle,omitempty"`

	// Pool sets the bounds of a pooled component. It implies the pooled
	// lifestyle.
	Pool *PoolConfig `yaml:"pool,omitempty" json:"pool,omitempty"`

	// Parameters are merged into the descriptor parameters.
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Interceptors replace the interceptors the component declares.
	Interceptors []string `yaml:"interceptors,omitempty" json:"interceptors,omitempty"`
}

type PoolConfig struct {
	Min     int           `yaml:"min" json:"min"`
	Max     int           `yaml:"max" json:"max"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Shrink  bool          `yaml:"shrink" json:"shrink"`
}

func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Components: map[string]ComponentConfig{},
	}
}

func (c *Config) Validate() error {
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("logging.output must be stdout or stderr, got %q", c.Logging.Output)
	}

	if c.Kernel.PoolTimeout < 0 {
		return fmt.Errorf("kernel.poolTimeout cannot be negative")
	}

	for name, component := range c.Components {
		if err := component.Validate(); err != nil {
			return fmt.Errorf("components.%s: %w", name, err)
		}
	}
	return nil
}

func (c ComponentConfig) Validate() error {
	switch strings.ToLower(c.Lifestyle) {
	case "", "singleton", "transient", "per-thread":
		if c.Pool != nil && c.Lifestyle != "" {
			return fmt.Errorf("pool cannot be combined with the %s lifestyle", c.Lifestyle)
		}
	case "pooled":
		if c.Pool == nil {
			return fmt.Errorf("pooled lifestyle requires pool bounds")
		}
	default:
		return fmt.Errorf("unknown lifestyle %q", c.Lifestyle)
	}

	if c.Pool != nil {
		if c.Pool.Max < 1 {
			return fmt.Errorf("pool.max must be at least 1")
		}
		if c.Pool.Min < 0 || c.Pool.Min > c.Pool.Max {
			return fmt.Errorf("pool.min must be between 0 and pool.max")
		}
		if c.Pool.Timeout < 0 {
			return fmt.Errorf("pool.timeout cannot be negative")
		}
	}
	return nil
}
