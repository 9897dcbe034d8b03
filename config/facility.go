package config

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/danpasecinic/keel"
)

// Options turns the logging and kernel sections into kernel options.
func (c *Config) Options() ([]keel.Option, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	opts := []keel.Option{keel.WithLogger(logger)}
	if c.Kernel.PoolTimeout > 0 {
		opts = append(opts, keel.WithDefaultPoolTimeout(c.Kernel.PoolTimeout))
	}
	return opts, nil
}

// Overrides is a facility applying the components section to descriptors as
// they are registered. Install it before the components it overrides.
type Overrides struct {
	components map[string]ComponentConfig
	logger     *slog.Logger

	mu      sync.Mutex
	applied []string
}

func (c *Config) Facility() *Overrides {
	return &Overrides{components: maps.Clone(c.Components)}
}

func (o *Overrides) Init(k *keel.Kernel) error {
	o.logger = k.Logger()
	k.OnComponentModelCreated(o.apply)
	return nil
}

// Applied lists the components that were overridden, in registration order.
func (o *Overrides) Applied() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.applied)
}

func (o *Overrides) lookup(name string) (ComponentConfig, bool) {
	if c, ok := o.components[name]; ok {
		return c, true
	}
	c, ok := o.components[EnvName(name)]
	return c, ok
}

func (o *Overrides) apply(d *keel.Descriptor) {
	c, ok := o.lookup(d.Name)
	if !ok || d.Instance != nil {
		return
	}

	if style, ok := c.lifestyle(); ok {
		d.Lifestyle = style
	}

	if len(c.Parameters) > 0 {
		params := maps.Clone(d.Parameters)
		if params == nil {
			params = make(map[string]any, len(c.Parameters))
		}
		maps.Copy(params, c.Parameters)
		d.Parameters = params
	}

	if c.Interceptors != nil {
		d.Interceptors = slices.Clone(c.Interceptors)
	}

	o.mu.Lock()
	o.applied = append(o.applied, d.Name)
	o.mu.Unlock()
	o.logger.Debug("applied component overrides", "component", d.Name, "lifestyle", d.Lifestyle.String())
}

func (c ComponentConfig) lifestyle() (keel.Lifestyle, bool) {
	if c.Pool != nil {
		var opts []keel.PoolOption
		if c.Pool.Timeout > 0 {
			opts = append(opts, keel.WithPoolTimeout(c.Pool.Timeout))
		}
		if c.Pool.Shrink {
			opts = append(opts, keel.WithPoolShrink())
		}
		return keel.Pooled(c.Pool.Min, c.Pool.Max, opts...), true
	}

	switch strings.ToLower(c.Lifestyle) {
	case "singleton":
		return keel.Singleton, true
	case "transient":
		return keel.Transient, true
	case "per-thread":
		return keel.PerThread, true
	}
	return keel.Lifestyle{}, false
}
