package keel

import (
	"github.com/danpasecinic/keel/internal/model"
	"github.com/danpasecinic/keel/internal/reflect"
)

type (
	Service        = model.Service
	Bindings       = model.Bindings
	Slot           = model.Slot
	Activation     = model.Activation
	Factory        = model.Factory
	Implementation = model.Implementation
	Descriptor     = model.Descriptor
	InstanceHook   = model.InstanceHook
)

// NewService names an abstract service. Services with args are generic.
func NewService(name string, args ...Service) Service {
	return model.NewService(name, args...)
}

// Param is an unbound generic parameter.
func Param(name string) Service {
	return model.Param(name)
}

// ServiceOf identifies the service of Go type T.
func ServiceOf[T any]() Service {
	return model.NewService(reflect.TypeKey[T]())
}

type SlotOption func(*Slot)

// Dep declares a dependency on service svc under key.
func Dep(key string, svc Service, opts ...SlotOption) Slot {
	s := Slot{Key: key, Service: svc}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// DepOf declares a dependency on the service of Go type T.
func DepOf[T any](key string, opts ...SlotOption) Slot {
	return Dep(key, ServiceOf[T](), opts...)
}

// DepOn declares a dependency on the component registered as name.
func DepOn(key, name string, opts ...SlotOption) Slot {
	return Dep(key, Service{}, append([]SlotOption{FromComponent(name)}, opts...)...)
}

func AsOptional() SlotOption {
	return func(s *Slot) {
		s.Optional = true
	}
}

// WithDefault makes the slot optional and supplies the value used when
// nothing satisfies it.
func WithDefault(v any) SlotOption {
	return func(s *Slot) {
		s.Optional = true
		s.Default = v
	}
}

// FromComponent narrows the slot to one named component.
func FromComponent(name string) SlotOption {
	return func(s *Slot) {
		s.Component = name
	}
}

// AsMany collects every implementation of the slot service as []any.
func AsMany() SlotOption {
	return func(s *Slot) {
		s.Many = true
	}
}
