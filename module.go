package keel

import (
	"github.com/danpasecinic/keel/internal/errdefs"
)

// Module groups registrations that are installed together.
type Module struct {
	name       string
	entries    []func(k *Kernel) error
	submodules []*Module
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Add(d *Descriptor) *Module {
	m.entries = append(
		m.entries, func(k *Kernel) error {
			return k.Add(d)
		},
	)
	return m
}

func (m *Module) AddComponent(name string, services []Service, impl Implementation, opts ...ComponentOption) *Module {
	m.entries = append(
		m.entries, func(k *Kernel) error {
			return k.AddComponent(name, services, impl, opts...)
		},
	)
	return m
}

func (m *Module) AddComponentInstance(name string, svc Service, instance any, opts ...ComponentOption) *Module {
	m.entries = append(
		m.entries, func(k *Kernel) error {
			return k.AddComponentInstance(name, svc, instance, opts...)
		},
	)
	return m
}

// Include installs submodule before the module's own registrations.
func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(k *Kernel, applied map[*Module]bool) error {
	if applied[m] {
		return nil
	}
	applied[m] = true

	for _, sub := range m.submodules {
		if err := sub.apply(k, applied); err != nil {
			return err
		}
	}

	for _, entry := range m.entries {
		if err := entry(k); err != nil {
			return err
		}
	}
	return nil
}

// Install registers every module in order. A module included more than once
// is installed once. Installation stops at the first failing module.
func (k *Kernel) Install(modules ...*Module) error {
	applied := make(map[*Module]bool)
	for _, m := range modules {
		if err := m.apply(k, applied); err != nil {
			return errdefs.ModuleApplyFailed(m.name, err)
		}
	}
	return nil
}

func ModuleProvide[T any](m *Module, name string, provider Provider[T], opts ...ComponentOption) *Module {
	m.entries = append(
		m.entries, func(k *Kernel) error {
			return Provide(k, name, provider, opts...)
		},
	)
	return m
}

func ModuleProvideValue[T any](m *Module, name string, value T, opts ...ComponentOption) *Module {
	m.entries = append(
		m.entries, func(k *Kernel) error {
			return ProvideValue(k, name, value, opts...)
		},
	)
	return m
}

// Facility extends a kernel: it typically subscribes to events, installs
// sub-resolvers or registers components of its own.
type Facility interface {
	Init(k *Kernel) error
}

// FacilityTerminator is implemented by facilities that hold resources until
// the kernel is disposed.
type FacilityTerminator interface {
	Terminate() error
}

type FacilityFunc func(k *Kernel) error

func (f FacilityFunc) Init(k *Kernel) error {
	return f(k)
}

// AddFacility initialises f against k. Facilities are terminated in reverse
// order when the kernel is disposed.
func (k *Kernel) AddFacility(f Facility) error {
	if k.Disposed() {
		return errdefs.KernelDisposed()
	}
	if err := f.Init(k); err != nil {
		return err
	}

	k.facilitiesMu.Lock()
	k.facilities = append(k.facilities, f)
	k.facilitiesMu.Unlock()
	return nil
}
