package kernel

import (
	"context"
	"fmt"

	"github.com/danpasecinic/keel/internal/burden"
	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/model"
)

// Resolve returns an instance of the component registered under name.
func (k *Kernel) Resolve(ctx context.Context, name string, opts ResolveOptions) (any, error) {
	h, ok := k.handler(name)
	if !ok {
		return nil, errdefs.ComponentNotFound(fmt.Sprintf("name %q", name))
	}
	return k.resolveRoot(ctx, h, model.Service{}, opts)
}

// ResolveService returns an instance of the default component of svc: the
// first registered one that is valid.
func (k *Kernel) ResolveService(ctx context.Context, svc model.Service, opts ResolveOptions) (any, error) {
	if svc.IsOpen() {
		return nil, errdefs.GenericArguments(svc.String(), "cannot resolve an open generic service")
	}

	candidates := k.handlersFor(svc)
	if len(candidates) == 0 {
		return nil, errdefs.ComponentNotFound("service " + svc.String())
	}
	for _, h := range candidates {
		if h.State() == Valid {
			return k.resolveRoot(ctx, h, svc, opts)
		}
	}

	first := candidates[0]
	return nil, errdefs.HandlerState(first.Name(), slotKeys(first.unresolved()))
}

// ResolveAll resolves every valid component of svc in registration order.
// If one of them fails, the instances already resolved are released.
func (k *Kernel) ResolveAll(ctx context.Context, svc model.Service, opts ResolveOptions) ([]any, error) {
	if svc.IsOpen() {
		return nil, errdefs.GenericArguments(svc.String(), "cannot resolve an open generic service")
	}

	var resolved []*burden.Burden
	for _, h := range k.handlersFor(svc) {
		if h.State() != Valid {
			continue
		}
		b, err := k.resolveBurden(ctx, h, svc, opts)
		if err != nil {
			for _, done := range resolved {
				k.tracker.Remove(done)
			}
			if rbErr := burden.ReleaseAll(resolved); rbErr != nil {
				k.logger.Warn("rollback of partial resolution failed", "service", svc.String(), "error", rbErr)
			}
			return nil, err
		}
		resolved = append(resolved, b)
	}

	out := make([]any, len(resolved))
	for i, b := range resolved {
		out[i] = b.Instance()
	}
	return out, nil
}

// TryResolveAll resolves every component of svc it can and skips the rest.
func (k *Kernel) TryResolveAll(ctx context.Context, svc model.Service, opts ResolveOptions) []any {
	if svc.IsOpen() {
		return nil
	}

	var out []any
	for _, h := range k.handlersFor(svc) {
		if h.State() != Valid {
			continue
		}
		instance, err := k.resolveRoot(ctx, h, svc, opts)
		if err != nil {
			k.logger.Debug("skipping component that failed to resolve", "component", h.Name(), "error", err)
			continue
		}
		out = append(out, instance)
	}
	return out
}

func (k *Kernel) newRequest(ctx context.Context, opts ResolveOptions) *request {
	if parent, ok := frameFrom(ctx); ok {
		return &request{cc: newCreationContext(parent.cc.id, opts), path: parent.path}
	}
	return &request{cc: newCreationContext("", opts)}
}

func (k *Kernel) resolveRoot(ctx context.Context, h handler, svc model.Service, opts ResolveOptions) (any, error) {
	b, err := k.resolveBurden(ctx, h, svc, opts)
	if err != nil {
		return nil, err
	}
	return b.Instance(), nil
}

func (k *Kernel) resolveBurden(
	ctx context.Context,
	h handler,
	svc model.Service,
	opts ResolveOptions,
) (*burden.Burden, error) {
	if k.disposed.Load() {
		return nil, errdefs.KernelDisposed()
	}

	r := k.newRequest(ctx, opts)
	b, err := h.resolve(ctx, svc, r)
	if err != nil {
		k.logger.Debug("resolution failed", "component", h.Name(), "resolution", r.cc.id, "error", err)
		return nil, err
	}

	k.tracker.Track(b)
	return b, nil
}

// ReleaseComponent releases an instance previously returned by a resolution.
// Instances the kernel does not track are ignored, and an instance is tracked
// until its first release whatever its lifestyle does with it.
func (k *Kernel) ReleaseComponent(instance any) error {
	b, ok := k.tracker.Untrack(instance)
	if !ok {
		k.logger.Debug("ignoring release of untracked instance", "type", fmt.Sprintf("%T", instance))
		return nil
	}
	return b.Release()
}

// ComponentOf names the component that created a tracked instance.
func (k *Kernel) ComponentOf(instance any) (string, error) {
	b, ok := k.tracker.Lookup(instance)
	if !ok || b.Owner() == nil {
		return "", errdefs.UnknownInstance(instance)
	}
	return b.Owner().Name(), nil
}

// resolveSlot satisfies one dependency of owner. found is false only for an
// optional slot nothing could satisfy; the caller decides whether its default
// applies. The returned burdens are the owned instances created for the slot.
func (k *Kernel) resolveSlot(
	ctx context.Context,
	owner *model.Descriptor,
	slot model.Slot,
	r *request,
) (value any, deps []*burden.Burden, found bool, err error) {
	if v, ok := r.cc.args[slot.Key]; ok {
		return v, nil, true, nil
	}
	if !slot.Service.IsZero() {
		if v, ok := r.cc.typed[slot.Service.Key()]; ok {
			return v, nil, true, nil
		}
	}

	for _, sr := range k.subResolversFor(r.cc) {
		if !sr.CanResolve(ctx, slot, owner) {
			continue
		}
		v, err := sr.Resolve(ctx, slot, owner)
		if err != nil {
			return nil, nil, false, errdefs.UnsatisfiedDependency(owner.Name, slot.Key, slotTarget(slot), r.path, err)
		}
		return v, nil, true, nil
	}

	if v, ok := owner.Parameters[slot.Key]; ok {
		return v, nil, true, nil
	}

	value, deps, miss, err := k.resolveComponentSlot(ctx, owner, slot, r)
	if err != nil {
		return nil, nil, false, err
	}
	if miss == nil {
		return value, deps, true, nil
	}

	if slot.Optional {
		return nil, nil, false, nil
	}
	return nil, nil, false, errdefs.UnsatisfiedDependency(owner.Name, slot.Key, slotTarget(slot), r.path, miss)
}

// resolveComponentSlot satisfies slot from registered components. miss
// explains why nothing matched; err is a failure of a matching component.
func (k *Kernel) resolveComponentSlot(
	ctx context.Context,
	owner *model.Descriptor,
	slot model.Slot,
	r *request,
) (value any, deps []*burden.Burden, miss error, err error) {
	if slot.Component != "" {
		h, ok := k.handler(slot.Component)
		if !ok {
			return nil, nil, errdefs.ComponentNotFound(fmt.Sprintf("name %q", slot.Component)), nil
		}
		b, err := h.resolve(ctx, slot.Service, r)
		if err != nil {
			return nil, nil, nil, err
		}
		return b.Instance(), owned(b), nil, nil
	}

	if slot.Many {
		values := make([]any, 0)
		for _, h := range k.handlersFor(slot.Service) {
			if h.Name() == owner.Name || h.State() != Valid {
				continue
			}
			b, err := h.resolve(ctx, slot.Service, r)
			if err != nil {
				_ = burden.ReleaseAll(deps)
				return nil, nil, nil, err
			}
			values = append(values, b.Instance())
			deps = append(deps, owned(b)...)
		}
		return values, deps, nil, nil
	}

	if owner.Exposes(slot.Service) {
		return nil, nil, nil, errdefs.Cycle(r.chain(owner.Name))
	}

	candidates := k.handlersFor(slot.Service)
	if len(candidates) == 0 {
		return nil, nil, errdefs.ComponentNotFound("service " + slot.Service.String()), nil
	}
	for _, h := range candidates {
		if h.State() != Valid {
			continue
		}
		b, err := h.resolve(ctx, slot.Service, r)
		if err != nil {
			return nil, nil, nil, err
		}
		return b.Instance(), owned(b), nil, nil
	}

	first := candidates[0]
	return nil, nil, errdefs.HandlerState(first.Name(), slotKeys(first.unresolved())), nil
}

func owned(b *burden.Burden) []*burden.Burden {
	if b == nil || !b.Owned() {
		return nil
	}
	return []*burden.Burden{b}
}

func slotTarget(slot model.Slot) string {
	if slot.Component != "" {
		return fmt.Sprintf("component %q", slot.Component)
	}
	return slot.Service.String()
}
