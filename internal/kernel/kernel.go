// Package kernel resolves components, manages their lifestyles and tracks
// what each resolution created so that it can be released exactly once.
package kernel

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/danpasecinic/keel/internal/burden"
	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/lifestyle"
	"github.com/danpasecinic/keel/internal/model"
	"github.com/danpasecinic/keel/internal/registry"
)

type Config struct {
	Logger       *slog.Logger
	PoolTimeout  time.Duration
	Activator    Activator
	ProxyFactory ProxyFactory
	OnResolve    []ResolveHook
	OnRelease    []ReleaseHook
	OnRegister   []RegisterHook
}

type Kernel struct {
	events

	mu           sync.RWMutex
	registry     *registry.Registry
	handlers     map[string]handler
	order        []string
	subResolvers []SubResolver

	tracker     *burden.Tracker
	inFlight    *activations
	logger      *slog.Logger
	activator   Activator
	proxies     ProxyFactory
	poolTimeout time.Duration
	disposed    atomic.Bool
}

func New(cfg *Config) *Kernel {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	activator := cfg.Activator
	if activator == nil {
		activator = factoryActivator{}
	}

	k := &Kernel{
		registry:    registry.New(),
		handlers:    make(map[string]handler),
		tracker:     burden.NewTracker(),
		inFlight:    newActivations(),
		logger:      logger,
		activator:   activator,
		proxies:     cfg.ProxyFactory,
		poolTimeout: cfg.PoolTimeout,
	}
	k.events.onResolve = slices.Clone(cfg.OnResolve)
	k.events.onRelease = slices.Clone(cfg.OnRelease)
	k.events.onRegister = slices.Clone(cfg.OnRegister)

	k.registry.Observe(
		func(*model.Descriptor) {
			k.reevaluate()
		},
	)
	return k
}

func (k *Kernel) Logger() *slog.Logger {
	return k.logger
}

// Register adds a component. Subscribers of OnComponentModelCreated see a
// copy of d they may still mutate; the handler is built from that copy
// afterwards.
func (k *Kernel) Register(d *model.Descriptor) error {
	if k.disposed.Load() {
		return errdefs.KernelDisposed()
	}
	if d == nil {
		return errdefs.InvalidDescriptor("", "descriptor is nil")
	}

	d = d.Clone()
	k.fireModelCreated(d)

	if err := d.Validate(); err != nil {
		return errdefs.InvalidDescriptor(d.Name, err.Error())
	}
	if k.registry.Has(d.Name) {
		return errdefs.DuplicateName(d.Name)
	}

	d = d.Clone()
	h, err := k.newHandler(d)
	if err != nil {
		return err
	}

	if err := k.registry.Register(d); err != nil {
		return err
	}

	k.mu.Lock()
	k.handlers[d.Name] = h
	k.order = append(k.order, d.Name)
	k.mu.Unlock()

	// Registrations that landed between building h and publishing it were
	// not seen by reevaluate.
	if h.refresh() {
		k.fireStateChanged(d.Name, Valid)
	}

	info := h.info()
	k.logger.Debug(
		"registered component",
		"component", d.Name,
		"services", info.Services,
		"lifestyle", info.Lifestyle,
		"state", info.State.String(),
	)
	k.fireRegistered(d.Name, info)
	return nil
}

func (k *Kernel) newHandler(d *model.Descriptor) (handler, error) {
	if d.IsGeneric() {
		return newGenericHandler(k, d), nil
	}
	return newDefaultHandler(k, d, nil)
}

func (k *Kernel) reevaluate() {
	for _, h := range k.orderedHandlers() {
		if h.refresh() {
			k.logger.Debug("component dependencies satisfied", "component", h.Name())
			k.fireStateChanged(h.Name(), Valid)
		}
	}
}

// Remove unregisters a component and decommissions the instances its
// lifestyle still holds. A component other components depend on cannot be
// removed.
func (k *Kernel) Remove(name string) error {
	h, ok := k.handler(name)
	if !ok {
		return errdefs.ComponentNotFound("name " + name)
	}

	if dependents := k.Graph().GetDependents(name); len(dependents) > 0 {
		return errdefs.ComponentInUse(name, dependents)
	}

	k.registry.Unregister(name)

	k.mu.Lock()
	delete(k.handlers, name)
	k.order = slices.DeleteFunc(k.order, func(n string) bool { return n == name })
	k.mu.Unlock()

	err := h.dispose()
	for _, owner := range h.owners() {
		k.tracker.Prune(owner)
	}

	k.logger.Debug("removed component", "component", name)
	return err
}

// Dispose releases every tracked root, newest first, then disposes each
// handler in reverse registration order. Calling it again has no effect.
func (k *Kernel) Dispose() error {
	if !k.disposed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	for _, b := range k.tracker.Drain() {
		err = multierr.Append(err, b.Release())
	}

	handlers := k.orderedHandlers()
	for i := len(handlers) - 1; i >= 0; i-- {
		err = multierr.Append(err, handlers[i].dispose())
	}

	k.logger.Debug("kernel disposed", "components", len(handlers))
	return err
}

func (k *Kernel) Disposed() bool {
	return k.disposed.Load()
}

func (k *Kernel) AddSubResolver(sr SubResolver) {
	k.mu.Lock()
	k.subResolvers = append(k.subResolvers, sr)
	k.mu.Unlock()

	k.reevaluate()
}

func (k *Kernel) subResolversFor(cc *creationContext) []SubResolver {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if len(k.subResolvers) == 0 {
		return cc.subResolvers
	}
	out := make([]SubResolver, 0, len(cc.subResolvers)+len(k.subResolvers))
	out = append(out, cc.subResolvers...)
	return append(out, k.subResolvers...)
}

// Validate reports every waiting component and every static dependency
// cycle.
func (k *Kernel) Validate() error {
	var errs error
	for _, h := range k.orderedHandlers() {
		if h.State() != Valid {
			errs = multierr.Append(errs, errdefs.HandlerState(h.Name(), slotKeys(h.unresolved())))
		}
	}
	for _, path := range k.Graph().CyclePaths() {
		errs = multierr.Append(errs, errdefs.Cycle(path))
	}

	if errs != nil {
		return errdefs.New(errdefs.ErrCodeValidationFailed, "kernel configuration is invalid", errs)
	}
	return nil
}

// Warmup instantiates every valid singleton, dependencies first.
func (k *Kernel) Warmup(ctx context.Context) error {
	g := k.Graph()
	order, err := g.TopologicalSort()
	if err != nil {
		if paths := g.CyclePaths(); len(paths) > 0 {
			return errdefs.Cycle(paths[0])
		}
		return err
	}

	for _, name := range order {
		h, ok := k.handler(name)
		if !ok {
			continue
		}
		d := h.Descriptor()
		if d.Lifestyle.Kind != lifestyle.Singleton || d.IsGeneric() || h.State() != Valid {
			continue
		}
		if _, err := k.resolveRoot(ctx, h, model.Service{}, ResolveOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kernel) Has(name string) bool {
	return k.registry.Has(name)
}

// HasService reports whether any component, closed or generic, serves svc.
func (k *Kernel) HasService(svc model.Service) bool {
	return k.registry.HasService(svc)
}

func (k *Kernel) Names() []string {
	return k.registry.Names()
}

func (k *Kernel) handler(name string) (handler, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	h, ok := k.handlers[name]
	return h, ok
}

func (k *Kernel) orderedHandlers() []handler {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]handler, 0, len(k.order))
	for _, name := range k.order {
		out = append(out, k.handlers[name])
	}
	return out
}

// handlersFor returns the published handlers able to serve svc, in
// registration order.
func (k *Kernel) handlersFor(svc model.Service) []handler {
	descriptors := k.registry.LookupByService(svc)

	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]handler, 0, len(descriptors))
	for _, d := range descriptors {
		if h, ok := k.handlers[d.Name]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (k *Kernel) unresolvedSlots(d *model.Descriptor) []model.Slot {
	var missing []model.Slot
	for _, slot := range d.Implementation.Slots() {
		if slot.Optional || slot.Many {
			continue
		}
		if _, ok := d.Parameters[slot.Key]; ok {
			continue
		}
		if slot.Component != "" {
			if !k.registry.Has(slot.Component) {
				missing = append(missing, slot)
			}
			continue
		}
		if slot.Service.IsOpen() || d.Exposes(slot.Service) {
			continue
		}
		if k.registry.HasService(slot.Service) || k.subResolverCovers(slot, d) {
			continue
		}
		missing = append(missing, slot)
	}
	return missing
}

func (k *Kernel) subResolverCovers(slot model.Slot, d *model.Descriptor) bool {
	k.mu.RLock()
	resolvers := slices.Clone(k.subResolvers)
	k.mu.RUnlock()

	for _, sr := range resolvers {
		if sr.CanResolve(context.Background(), slot, d) {
			return true
		}
	}
	return false
}
