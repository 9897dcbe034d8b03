package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const componentEnvPrefix = "COMPONENTS_"

// componentEnvFields are matched against the end of a component variable, so
// that KEEL_COMPONENTS_DB_POOL_MAX sets pool.max of component DB.
var componentEnvFields = []string{
	"POOL_TIMEOUT",
	"POOL_SHRINK",
	"INTERCEPTORS",
	"LIFESTYLE",
	"POOL_MIN",
	"POOL_MAX",
}

// Loader reads configuration from a file and the environment.
type Loader struct {
	// ConfigFile is the path to the YAML configuration file.
	ConfigFile string

	// EnvPrefix is the prefix of environment variables, KEEL by default.
	EnvPrefix string

	environ func() []string
}

func NewLoader() *Loader {
	return &Loader{
		EnvPrefix: "KEEL",
		environ:   os.Environ,
	}
}

func (l *Loader) WithConfigFile(path string) *Loader {
	l.ConfigFile = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.EnvPrefix = prefix
	return l
}

// Load applies, in order, the defaults, the configuration file and the
// environment, then validates the result.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if l.ConfigFile != "" {
		if err := l.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (l *Loader) loadFromFile(config *Config) error {
	data, err := os.ReadFile(l.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.ConfigFile, err)
	}
	return Parse(data, config)
}

// Parse decodes YAML data over config.
func Parse(data []byte, config *Config) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if config.Components == nil {
		config.Components = map[string]ComponentConfig{}
	}
	return nil
}

func (l *Loader) loadFromEnv(config *Config) error {
	if val := l.getEnv("LOGGING_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := l.getEnv("LOGGING_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := l.getEnv("LOGGING_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := l.getEnv("LOGGING_ADD_SOURCE"); val != "" {
		config.Logging.AddSource = parseBool(val, config.Logging.AddSource)
	}
	if val := l.getEnv("KERNEL_POOL_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s_KERNEL_POOL_TIMEOUT: %w", l.EnvPrefix, err)
		}
		config.Kernel.PoolTimeout = d
	}

	prefix := l.EnvPrefix + "_" + componentEnvPrefix
	for _, kv := range l.environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || val == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := l.applyComponentEnv(config, strings.TrimPrefix(key, prefix), val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (l *Loader) applyComponentEnv(config *Config, rest, val string) error {
	var envName, field string
	for _, f := range componentEnvFields {
		if name, ok := strings.CutSuffix(rest, "_"+f); ok && name != "" {
			envName, field = name, f
			break
		}
	}
	if field == "" {
		return fmt.Errorf("unknown component setting")
	}

	name := componentName(config, envName)
	component := config.Components[name]

	switch field {
	case "LIFESTYLE":
		component.Lifestyle = strings.ToLower(val)
	case "INTERCEPTORS":
		component.Interceptors = splitList(val)
	case "POOL_MIN", "POOL_MAX":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		pool := ensurePool(&component)
		if field == "POOL_MIN" {
			pool.Min = n
		} else {
			pool.Max = n
		}
	case "POOL_TIMEOUT":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		ensurePool(&component).Timeout = d
	case "POOL_SHRINK":
		pool := ensurePool(&component)
		pool.Shrink = parseBool(val, pool.Shrink)
	}

	config.Components[name] = component
	return nil
}

// componentName maps an environment name back to a configured component, or
// keeps the environment form when none matches.
func componentName(config *Config, envName string) string {
	for name := range config.Components {
		if EnvName(name) == envName {
			return name
		}
	}
	return envName
}

// EnvName is the form a component name takes inside a variable name: upper
// case, every other character than a letter or digit replaced by '_'.
func EnvName(name string) string {
	return strings.Map(
		func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			default:
				return '_'
			}
		}, name,
	)
}

func ensurePool(c *ComponentConfig) *PoolConfig {
	if c.Pool == nil {
		c.Pool = &PoolConfig{}
	}
	return c.Pool
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (l *Loader) getEnv(key string) string {
	return os.Getenv(l.EnvPrefix + "_" + key)
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// Save writes config as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return nil
}
