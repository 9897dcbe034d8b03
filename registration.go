package keel

import (
	"context"

	"github.com/danpasecinic/keel/internal/lifestyle"
)

type ComponentOption func(*Descriptor)

// WithLifestyle sets the lifestyle. Components are singletons by default.
func WithLifestyle(l Lifestyle) ComponentOption {
	return func(d *Descriptor) {
		d.Lifestyle = l
	}
}

// WithParameter supplies a fixed value for the slot named key.
func WithParameter(key string, value any) ComponentOption {
	return func(d *Descriptor) {
		if d.Parameters == nil {
			d.Parameters = make(map[string]any)
		}
		d.Parameters[key] = value
	}
}

// WithInterceptors names the interceptors the proxy factory applies.
func WithInterceptors(names ...string) ComponentOption {
	return func(d *Descriptor) {
		d.Interceptors = append(d.Interceptors, names...)
	}
}

// WithServices exposes the component under additional services.
func WithServices(services ...Service) ComponentOption {
	return func(d *Descriptor) {
		d.Services = append(d.Services, services...)
	}
}

func WithConstructor(slots ...Slot) ComponentOption {
	return func(d *Descriptor) {
		d.Implementation.Constructor = append(d.Implementation.Constructor, slots...)
	}
}

func WithProperties(slots ...Slot) ComponentOption {
	return func(d *Descriptor) {
		d.Implementation.Properties = append(d.Implementation.Properties, slots...)
	}
}

// WithOnCreate runs hook after the instance is built and initialised.
func WithOnCreate(hook InstanceHook) ComponentOption {
	return func(d *Descriptor) {
		d.OnCreate = append(d.OnCreate, hook)
	}
}

// WithOnDestroy runs hook when the instance is decommissioned. Hooks run in
// reverse registration order.
func WithOnDestroy(hook InstanceHook) ComponentOption {
	return func(d *Descriptor) {
		d.OnDestroy = append(d.OnDestroy, hook)
	}
}

// AddComponent registers name as an implementation of services.
func (k *Kernel) AddComponent(name string, services []Service, impl Implementation, opts ...ComponentOption) error {
	d := &Descriptor{
		Name:           name,
		Services:       append([]Service(nil), services...),
		Implementation: impl,
	}
	for _, opt := range opts {
		opt(d)
	}
	return k.internal.Register(d)
}

// Add registers a fully built descriptor. The kernel keeps its own copy.
func (k *Kernel) Add(d *Descriptor) error {
	return k.internal.Register(d)
}

// AddComponentInstance registers an instance the caller owns. The kernel hands
// it out but never decommissions it.
func (k *Kernel) AddComponentInstance(name string, svc Service, instance any, opts ...ComponentOption) error {
	d := &Descriptor{
		Name:      name,
		Services:  []Service{svc},
		Lifestyle: Lifestyle{Kind: lifestyle.External},
		Instance:  instance,
	}
	for _, opt := range opts {
		opt(d)
	}
	return k.internal.Register(d)
}

// Provider builds one instance of T from its resolved slots.
type Provider[T any] func(ctx context.Context, a *Activation) (T, error)

// Provide registers name as the implementation of the service of T.
func Provide[T any](k *Kernel, name string, provider Provider[T], opts ...ComponentOption) error {
	svc := ServiceOf[T]()
	impl := Implementation{
		Type: svc,
		Factory: func(ctx context.Context, a *Activation) (any, error) {
			return provider(ctx, a)
		},
	}
	return k.AddComponent(name, []Service{svc}, impl, opts...)
}

// ProvideValue registers value as an externally owned T.
func ProvideValue[T any](k *Kernel, name string, value T, opts ...ComponentOption) error {
	return k.AddComponentInstance(name, ServiceOf[T](), value, opts...)
}

func MustProvide[T any](k *Kernel, name string, provider Provider[T], opts ...ComponentOption) {
	if err := Provide(k, name, provider, opts...); err != nil {
		panic(err)
	}
}

func MustProvideValue[T any](k *Kernel, name string, value T, opts ...ComponentOption) {
	if err := ProvideValue(k, name, value, opts...); err != nil {
		panic(err)
	}
}
