package kernel

import (
	"slices"
	"sync"
	"time"

	"github.com/danpasecinic/keel/internal/model"
)

type ResolveHook func(component string, duration time.Duration, err error)

type ReleaseHook func(component string, duration time.Duration, err error)

type RegisterHook func(component string)

type (
	ModelCreatedFunc  func(d *model.Descriptor)
	RegisteredFunc    func(name string, info HandlerInfo)
	StateChangedFunc  func(name string, state State)
	InstanceEventFunc func(name string, instance any)
)

// events holds the subscribers of the kernel. Subscribers are called
// synchronously, outside every kernel lock.
type events struct {
	mu           sync.RWMutex
	modelCreated []ModelCreatedFunc
	registered   []RegisteredFunc
	stateChanged []StateChangedFunc
	created      []InstanceEventFunc
	destroyed    []InstanceEventFunc

	onResolve  []ResolveHook
	onRelease  []ReleaseHook
	onRegister []RegisterHook
}

func (e *events) OnComponentModelCreated(fn ModelCreatedFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modelCreated = append(e.modelCreated, fn)
}

func (e *events) OnComponentRegistered(fn RegisteredFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered = append(e.registered, fn)
}

func (e *events) OnHandlerStateChanged(fn StateChangedFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanged = append(e.stateChanged, fn)
}

func (e *events) OnComponentCreated(fn InstanceEventFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, fn)
}

func (e *events) OnComponentDestroyed(fn InstanceEventFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = append(e.destroyed, fn)
}

func (e *events) fireModelCreated(d *model.Descriptor) {
	e.mu.RLock()
	fns := slices.Clone(e.modelCreated)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(d)
	}
}

func (e *events) fireRegistered(name string, info HandlerInfo) {
	e.mu.RLock()
	fns := slices.Clone(e.registered)
	hooks := slices.Clone(e.onRegister)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(name, info)
	}
	for _, hook := range hooks {
		hook(name)
	}
}

func (e *events) fireStateChanged(name string, state State) {
	e.mu.RLock()
	fns := slices.Clone(e.stateChanged)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(name, state)
	}
}

func (e *events) fireCreated(name string, instance any) {
	e.mu.RLock()
	fns := slices.Clone(e.created)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(name, instance)
	}
}

func (e *events) fireDestroyed(name string, instance any) {
	e.mu.RLock()
	fns := slices.Clone(e.destroyed)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(name, instance)
	}
}

func (e *events) fireResolve(name string, duration time.Duration, err error) {
	e.mu.RLock()
	hooks := slices.Clone(e.onResolve)
	e.mu.RUnlock()

	for _, hook := range hooks {
		hook(name, duration, err)
	}
}

func (e *events) fireRelease(name string, duration time.Duration, err error) {
	e.mu.RLock()
	hooks := slices.Clone(e.onRelease)
	e.mu.RUnlock()

	for _, hook := range hooks {
		hook(name, duration, err)
	}
}
