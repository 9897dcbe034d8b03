package kernel

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/danpasecinic/keel/internal/burden"
	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/model"
)

// genericHandler serves an open generic component. Each distinct set of
// type arguments is closed once into a concrete descriptor with its own
// handler, which then owns every instance built for that closure.
type genericHandler struct {
	kernel     *Kernel
	descriptor *model.Descriptor

	state   atomic.Int32
	mu      sync.Mutex
	missing []model.Slot

	closuresMu sync.Mutex
	closures   map[string]*defaultHandler
	ordered    []*defaultHandler
}

func newGenericHandler(k *Kernel, d *model.Descriptor) *genericHandler {
	h := &genericHandler{
		kernel:     k,
		descriptor: d,
		closures:   make(map[string]*defaultHandler),
	}
	h.refresh()
	return h
}

func (h *genericHandler) Name() string {
	return h.descriptor.Name
}

func (h *genericHandler) Descriptor() *model.Descriptor {
	return h.descriptor
}

func (h *genericHandler) State() State {
	return State(h.state.Load())
}

func (h *genericHandler) refresh() bool {
	for _, sub := range h.subHandlers() {
		if sub.refresh() {
			h.kernel.events.fireStateChanged(sub.Name(), Valid)
		}
	}

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

func (h *genericHandler) unresolved() []model.Slot {
	if h.State() == Valid {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.missing)
}

func (h *genericHandler) resolve(ctx context.Context, svc model.Service, r *request) (*burden.Burden, error) {
	name := h.Name()
	if svc.IsZero() || svc.IsOpen() {
		return nil, errdefs.GenericArguments(
			name,
			"an open generic component must be resolved through a closed service",
		).WithStack(r.chain(name))
	}
	if h.State() != Valid {
		return nil, errdefs.HandlerState(name, slotKeys(h.unresolved())).WithStack(r.chain(name))
	}

	bindings, ok := h.bind(svc)
	if !ok {
		return nil, errdefs.GenericArguments(
			name,
			fmt.Sprintf("service %s is not served by this component", svc),
		).WithStack(r.chain(name))
	}

	sub, err := h.closure(bindings)
	if err != nil {
		return nil, err
	}
	return sub.resolve(ctx, svc, r)
}

func (h *genericHandler) bind(svc model.Service) (model.Bindings, bool) {
	for _, open := range h.descriptor.Services {
		if b, ok := open.Match(svc, nil); ok {
			return b, true
		}
	}
	return nil, false
}

func (h *genericHandler) closure(b model.Bindings) (*defaultHandler, error) {
	key := b.Key()

	h.closuresMu.Lock()
	defer h.closuresMu.Unlock()

	if sub, ok := h.closures[key]; ok {
		return sub, nil
	}

	closed := h.descriptor.Close(b)
	if err := closed.Validate(); err != nil {
		return nil, errdefs.GenericArguments(h.Name(), err.Error())
	}

	sub, err := newDefaultHandler(h.kernel, closed, b)
	if err != nil {
		return nil, err
	}
	h.closures[key] = sub
	h.ordered = append(h.ordered, sub)

	h.kernel.logger.Debug(
		"closed generic component",
		"component", h.Name(),
		"closure", closed.Name,
		"closures", len(h.ordered),
	)
	return sub, nil
}

func (h *genericHandler) subHandlers() []*defaultHandler {
	h.closuresMu.Lock()
	defer h.closuresMu.Unlock()
	return slices.Clone(h.ordered)
}

func (h *genericHandler) owners() []burden.Owner {
	subs := h.subHandlers()
	out := make([]burden.Owner, len(subs))
	for i, sub := range subs {
		out[i] = sub
	}
	return out
}

func (h *genericHandler) dispose() error {
	subs := h.subHandlers()

	var err error
	for i := len(subs) - 1; i >= 0; i-- {
		err = multierr.Append(err, subs[i].dispose())
	}
	return err
}

func (h *genericHandler) info() HandlerInfo {
	d := h.descriptor
	info := HandlerInfo{
		Name:       d.Name,
		Services:   serviceNames(d.Services),
		Lifestyle:  d.Lifestyle.String(),
		State:      h.State(),
		Unresolved: slotInfos(h.unresolved()),
		Generic:    true,
	}
	for _, sub := range h.subHandlers() {
		subInfo := sub.info()
		info.Closures++
		info.Live += subInfo.Live
		info.Idle += subInfo.Idle
	}
	return info
}
