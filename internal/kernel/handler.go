package kernel

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/danpasecinic/keel/internal/burden"
	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/lifestyle"
	"github.com/danpasecinic/keel/internal/model"
)

type State int32

const (
	WaitingDependency State = iota
	Valid
)

func (s State) String() string {
	switch s {
	case WaitingDependency:
		return "waiting-dependency"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// handler produces and releases the instances of one registered component.
type handler interface {
	Name() string
	Descriptor() *model.Descriptor
	State() State

	resolve(ctx context.Context, svc model.Service, r *request) (*burden.Burden, error)

	// refresh re-evaluates the dependencies of a waiting handler and reports
	// whether it has just become valid.
	refresh() bool
	unresolved() []model.Slot
	owners() []burden.Owner
	dispose() error
	info() HandlerInfo
}

type defaultHandler struct {
	kernel     *Kernel
	descriptor *model.Descriptor
	manager    lifestyle.Manager
	typeArgs   model.Bindings
	external   bool

	state   atomic.Int32
	mu      sync.Mutex
	missing []model.Slot
}

func newDefaultHandler(k *Kernel, d *model.Descriptor, typeArgs model.Bindings) (*defaultHandler, error) {
	manager, err := lifestyle.New(d.Name, d.Lifestyle, k.poolTimeout)
	if err != nil {
		return nil, errdefs.InvalidDescriptor(d.Name, err.Error())
	}

	h := &defaultHandler{
		kernel:     k,
		descriptor: d,
		manager:    manager,
		typeArgs:   typeArgs,
		external:   d.Lifestyle.Kind == lifestyle.External,
	}
	h.refresh()
	return h, nil
}

func (h *defaultHandler) Name() string {
	return h.descriptor.Name
}

func (h *defaultHandler) Descriptor() *model.Descriptor {
	return h.descriptor
}

func (h *defaultHandler) State() State {
	return State(h.state.Load())
}

func (h *defaultHandler) refresh() bool {
	if h.State() == Valid {
		return false
	}

	missing := h.kernel.unresolvedSlots(h.descriptor)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.missing = missing
	if len(missing) > 0 {
		return false
	}
	return h.state.CompareAndSwap(int32(WaitingDependency), int32(Valid))
}

func (h *defaultHandler) unresolved() []model.Slot {
	if h.State() == Valid {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.missing)
}

func (h *defaultHandler) owners() []burden.Owner {
	return []burden.Owner{h}
}

func (h *defaultHandler) resolve(ctx context.Context, _ model.Service, r *request) (*burden.Burden, error) {
	name := h.Name()
	if slices.Contains(r.path, name) {
		return nil, errdefs.Cycle(r.chain(name))
	}
	if h.State() != Valid {
		return nil, errdefs.HandlerState(name, slotKeys(h.unresolved())).WithStack(r.chain(name))
	}

	next := r.enter(name)
	activate := func(ctx context.Context) (*burden.Burden, error) {
		return h.activate(ctx, next)
	}
	if key, exclusive := lifestyle.LockKey(ctx, h.manager); exclusive {
		inFlight, id := h.kernel.inFlight, r.cc.id
		if loop, ok := inFlight.wait(id, key, next.path); ok {
			return nil, errdefs.Cycle(loop)
		}
		defer inFlight.leave(id)

		activate = func(ctx context.Context) (*burden.Burden, error) {
			inFlight.acquired(id, key, name)
			defer inFlight.released(key)
			return h.activate(ctx, next)
		}
	}

	start := time.Now()
	b, err := h.manager.Resolve(ctx, activate)
	if err != nil {
		err = withChain(err, next.path)
	}
	h.kernel.events.fireResolve(name, time.Since(start), err)
	return b, err
}

func (h *defaultHandler) activate(ctx context.Context, r *request) (*burden.Burden, error) {
	d := h.descriptor
	k := h.kernel

	if h.external {
		return burden.New(d.Instance, h, false), nil
	}

	var children []*burden.Burden
	fail := func(err error) (*burden.Burden, error) {
		if rbErr := burden.ReleaseAll(children); rbErr != nil {
			k.logger.Warn(
				"rollback of partial activation failed",
				"component", d.Name,
				"resolution", r.cc.id,
				"error", rbErr,
			)
		}
		return nil, err
	}

	a := &model.Activation{
		Descriptor: d,
		Args:       make([]any, len(d.Implementation.Constructor)),
		TypeArgs:   h.typeArgs,
	}

	for i, slot := range d.Implementation.Constructor {
		value, deps, found, err := k.resolveSlot(ctx, d, slot, r)
		children = append(children, deps...)
		if err != nil {
			return fail(err)
		}
		if !found {
			value = slot.Default
		}
		a.Args[i] = value
	}

	for _, slot := range d.Implementation.Properties {
		value, deps, found, err := k.resolveSlot(ctx, d, slot, r)
		children = append(children, deps...)
		if err != nil {
			return fail(err)
		}
		if !found {
			if slot.Default == nil {
				continue
			}
			value = slot.Default
		}
		if a.Properties == nil {
			a.Properties = make(map[string]any)
		}
		a.Properties[slot.Key] = value
	}

	fctx := withFrame(ctx, r)
	instance, err := k.activator.Activate(fctx, a)
	if err != nil {
		return fail(errdefs.ActivationFailed(d.Name, r.path, err))
	}

	if len(d.Interceptors) > 0 && k.proxies != nil {
		proxied, err := k.proxies.Proxy(fctx, d, instance)
		if err != nil {
			_ = closeInstance(instance)
			return fail(errdefs.ActivationFailed(d.Name, r.path, err))
		}
		instance = proxied
	}

	if err := commission(fctx, d, instance); err != nil {
		_ = closeInstance(instance)
		return fail(errdefs.ActivationFailed(d.Name, r.path, err))
	}

	b := burden.New(instance, h, h.manager.ReleasedWithConsumer())
	for _, child := range children {
		b.AddChild(child)
	}

	k.logger.Debug(
		"activated component",
		"component", d.Name,
		"lifestyle", d.Lifestyle.String(),
		"resolution", r.cc.id,
		"dependencies", len(children),
	)
	k.events.fireCreated(d.Name, instance)
	return b, nil
}

// Release implements burden.Owner. The lifestyle decides whether the instance
// is decommissioned now.
func (h *defaultHandler) Release(b *burden.Burden) error {
	if b.Released() || !h.manager.Release(b) {
		return nil
	}
	return b.Decommission(h.destroy)
}

func (h *defaultHandler) destroy(instance any) error {
	if h.external {
		return nil
	}

	name := h.Name()
	start := time.Now()
	err := decommission(context.Background(), h.descriptor, instance)
	if err != nil {
		err = errdefs.DecommissionFailed(name, err)
		h.kernel.logger.Warn("decommission failed", "component", name, "error", err)
	} else {
		h.kernel.logger.Debug("decommissioned component", "component", name)
	}

	h.kernel.events.fireDestroyed(name, instance)
	h.kernel.events.fireRelease(name, time.Since(start), err)
	return err
}

func (h *defaultHandler) dispose() error {
	burdens := h.manager.Dispose()

	var err error
	for i := len(burdens) - 1; i >= 0; i-- {
		err = multierr.Append(err, burdens[i].Decommission(h.destroy))
	}
	return err
}

func (h *defaultHandler) info() HandlerInfo {
	d := h.descriptor
	info := HandlerInfo{
		Name:       d.Name,
		Services:   serviceNames(d.Services),
		Lifestyle:  d.Lifestyle.String(),
		State:      h.State(),
		Unresolved: slotInfos(h.unresolved()),
	}
	if reporter, ok := h.manager.(lifestyle.StatsReporter); ok {
		stats := reporter.Stats()
		info.Live, info.Idle = stats.Live, stats.Idle
	}
	return info
}

// withChain attaches chain to a kernel error that was raised without one,
// such as an exhausted pool.
func withChain(err error, chain []string) error {
	var kerr *errdefs.Error
	if errors.As(err, &kerr) && len(kerr.Stack) == 0 {
		kerr.WithStack(chain)
	}
	return err
}

func slotKeys(slots []model.Slot) []string {
	keys := make([]string, len(slots))
	for i, s := range slots {
		keys[i] = s.Key
	}
	return keys
}
