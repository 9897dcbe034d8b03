// Package model holds the registration data the kernel works from: service
// identities, dependency slots and component descriptors.
package model

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/danpasecinic/keel/internal/lifestyle"
)

// Slot is one dependency of an implementation: a constructor argument or a
// settable property.
type Slot struct {
	// Key names the slot and is the lookup key for caller arguments and
	// descriptor parameters.
	Key string

	// Service is the required service; it may contain generic parameters.
	Service Service

	// Component narrows the match to the named component.
	Component string

	// Many collects every registered implementation of Service as []any.
	Many bool

	Optional bool
	Default  any
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Key, s.Service)
}

// Activation is what a factory receives to build one instance.
type Activation struct {
	Descriptor *Descriptor

	// Args holds the constructor slot values in declaration order.
	Args []any

	// Properties holds the values of the property slots that were satisfied.
	Properties map[string]any

	// TypeArgs binds the generic parameters of a closed generic component.
	TypeArgs Bindings
}

// Arg returns the constructor value of the slot named key.
func (a *Activation) Arg(key string) (any, bool) {
	for i, slot := range a.Descriptor.Implementation.Constructor {
		if slot.Key == key && i < len(a.Args) {
			return a.Args[i], true
		}
	}
	return nil, false
}

type Factory func(ctx context.Context, a *Activation) (any, error)

// Implementation describes how to build instances: the concrete type (open
// for generic implementations), its slots and a factory.
type Implementation struct {
	Type        Service
	Constructor []Slot
	Properties  []Slot
	Factory     Factory
}

// Slots returns constructor slots followed by property slots.
func (i Implementation) Slots() []Slot {
	out := make([]Slot, 0, len(i.Constructor)+len(i.Properties))
	out = append(out, i.Constructor...)
	out = append(out, i.Properties...)
	return out
}

// InstanceHook runs against a freshly created or a decommissioned instance.
type InstanceHook func(ctx context.Context, instance any) error

type Descriptor struct {
	Name           string
	Services       []Service
	Implementation Implementation
	Lifestyle      lifestyle.Spec
	Interceptors   []string
	Parameters     map[string]any
	OnCreate       []InstanceHook
	OnDestroy      []InstanceHook

	// Instance is the externally owned value of an External component.
	Instance any
}

// IsGeneric reports whether the descriptor still has unbound parameters.
func (d *Descriptor) IsGeneric() bool {
	for _, s := range d.Services {
		if s.IsOpen() {
			return true
		}
	}
	return d.Implementation.Type.IsOpen()
}

// Exposes reports whether svc is one of the services d is registered under.
func (d *Descriptor) Exposes(svc Service) bool {
	key := svc.Key()
	for _, s := range d.Services {
		if s.Key() == key {
			return true
		}
	}
	return false
}

// Validate checks the invariants a descriptor must hold before registration.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(d.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}
	for _, s := range d.Services {
		if s.IsZero() {
			return fmt.Errorf("service identity must not be empty")
		}
	}
	if err := d.Lifestyle.Validate(); err != nil {
		return err
	}

	if d.Lifestyle.Kind == lifestyle.External {
		if d.IsGeneric() {
			return fmt.Errorf("an external instance cannot expose an open generic service")
		}
		return nil
	}

	if d.Implementation.Factory == nil {
		return fmt.Errorf("implementation factory is required")
	}

	implParams := d.Implementation.Type.Params()
	if len(implParams) == 0 {
		for _, s := range d.Services {
			if s.IsOpen() {
				return fmt.Errorf("closed implementation %s cannot expose open service %s", d.Implementation.Type, s)
			}
		}
	} else {
		for _, s := range d.Services {
			if !s.IsOpen() {
				return fmt.Errorf("open implementation %s must expose open services, got %s", d.Implementation.Type, s)
			}
			for _, p := range implParams {
				if !slices.Contains(s.Params(), p) {
					return fmt.Errorf("service %s does not bind parameter %s of %s", s, p, d.Implementation.Type)
				}
			}
		}
	}

	seen := make(map[string]bool)
	for _, slot := range d.Implementation.Slots() {
		if slot.Key == "" {
			return fmt.Errorf("slot of type %s has no key", slot.Service)
		}
		if seen[slot.Key] {
			return fmt.Errorf("duplicate slot key %q", slot.Key)
		}
		seen[slot.Key] = true
		if slot.Service.IsZero() && slot.Component == "" {
			return fmt.Errorf("slot %q has neither a service nor a component", slot.Key)
		}
		for _, p := range slot.Service.Params() {
			if !slices.Contains(implParams, p) {
				return fmt.Errorf("slot %q uses parameter %s unknown to %s", slot.Key, p, d.Implementation.Type)
			}
		}
	}

	return nil
}

// Clone copies d deeply enough that mutating the copy's slices and maps never
// affects d.
func (d *Descriptor) Clone() *Descriptor {
	out := *d
	out.Services = slices.Clone(d.Services)
	out.Implementation.Constructor = slices.Clone(d.Implementation.Constructor)
	out.Implementation.Properties = slices.Clone(d.Implementation.Properties)
	out.Interceptors = slices.Clone(d.Interceptors)
	out.Parameters = maps.Clone(d.Parameters)
	out.OnCreate = slices.Clone(d.OnCreate)
	out.OnDestroy = slices.Clone(d.OnDestroy)
	return &out
}

// Close binds the parameters of a generic descriptor, producing the concrete
// descriptor for one closure. Lifestyle, interceptors and parameters are
// inherited.
func (d *Descriptor) Close(b Bindings) *Descriptor {
	out := d.Clone()
	out.Name = d.Name + "[" + b.Key() + "]"
	for i, s := range out.Services {
		out.Services[i] = s.Substitute(b)
	}
	out.Implementation.Type = d.Implementation.Type.Substitute(b)
	for i, slot := range out.Implementation.Constructor {
		out.Implementation.Constructor[i].Service = slot.Service.Substitute(b)
	}
	for i, slot := range out.Implementation.Properties {
		out.Implementation.Properties[i].Service = slot.Service.Substitute(b)
	}
	return out
}
