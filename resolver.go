package keel

import (
	"context"

	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/kernel"
	"github.com/danpasecinic/keel/internal/reflect"
)

// ResolveOption overrides slot values for one resolution and everything it
// activates.
type ResolveOption func(*kernel.ResolveOptions)

// WithArgument supplies value for every slot named key.
func WithArgument(key string, value any) ResolveOption {
	return func(o *kernel.ResolveOptions) {
		if o.Args == nil {
			o.Args = make(map[string]any)
		}
		o.Args[key] = value
	}
}

func WithArguments(args map[string]any) ResolveOption {
	return func(o *kernel.ResolveOptions) {
		for key, value := range args {
			WithArgument(key, value)(o)
		}
	}
}

// WithTypedArgument supplies value for every slot requiring svc.
func WithTypedArgument(svc Service, value any) ResolveOption {
	return func(o *kernel.ResolveOptions) {
		if o.Typed == nil {
			o.Typed = make(map[string]any)
		}
		o.Typed[svc.Key()] = value
	}
}

// WithArgumentOf supplies value for every slot requiring the service of T.
func WithArgumentOf[T any](value T) ResolveOption {
	return WithTypedArgument(ServiceOf[T](), value)
}

// WithSubResolver consults sr for this resolution only, ahead of the kernel's
// own sub-resolvers.
func WithSubResolver(sr SubResolver) ResolveOption {
	return func(o *kernel.ResolveOptions) {
		o.SubResolvers = append(o.SubResolvers, sr)
	}
}

func resolveOptions(opts []ResolveOption) kernel.ResolveOptions {
	var o kernel.ResolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolve returns an instance of the component registered as name. The
// caller releases it with ReleaseComponent.
func (k *Kernel) Resolve(ctx context.Context, name string, opts ...ResolveOption) (any, error) {
	return k.internal.Resolve(ctx, name, resolveOptions(opts))
}

// ResolveService returns an instance of the first valid component exposing
// svc, in registration order.
func (k *Kernel) ResolveService(ctx context.Context, svc Service, opts ...ResolveOption) (any, error) {
	return k.internal.ResolveService(ctx, svc, resolveOptions(opts))
}

// ResolveAll returns one instance of every valid component exposing svc.
// When one fails, the instances already created are released.
func (k *Kernel) ResolveAll(ctx context.Context, svc Service, opts ...ResolveOption) ([]any, error) {
	return k.internal.ResolveAll(ctx, svc, resolveOptions(opts))
}

// TryResolveAll is ResolveAll that skips the components that fail.
func (k *Kernel) TryResolveAll(ctx context.Context, svc Service, opts ...ResolveOption) []any {
	return k.internal.TryResolveAll(ctx, svc, resolveOptions(opts))
}

// Resolve returns an instance of the service of T.
func Resolve[T any](ctx context.Context, k *Kernel, opts ...ResolveOption) (T, error) {
	instance, err := k.ResolveService(ctx, ServiceOf[T](), opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](k, reflect.TypeKey[T](), instance)
}

// ResolveNamed returns an instance of the component registered as name.
func ResolveNamed[T any](ctx context.Context, k *Kernel, name string, opts ...ResolveOption) (T, error) {
	instance, err := k.Resolve(ctx, name, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](k, name, instance)
}

func MustResolve[T any](ctx context.Context, k *Kernel, opts ...ResolveOption) T {
	v, err := Resolve[T](ctx, k, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func MustResolveNamed[T any](ctx context.Context, k *Kernel, name string, opts ...ResolveOption) T {
	v, err := ResolveNamed[T](ctx, k, name, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll returns one instance of every valid component exposing the
// service of T.
func ResolveAll[T any](ctx context.Context, k *Kernel, opts ...ResolveOption) ([]T, error) {
	instances, err := k.ResolveAll(ctx, ServiceOf[T](), opts...)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(instances))
	for _, instance := range instances {
		v, ok := instance.(T)
		if !ok {
			for _, resolved := range instances {
				_ = k.ReleaseComponent(resolved)
			}
			return nil, errdefs.TypeMismatch(reflect.TypeKey[T](), reflect.TypeName[T](), instance)
		}
		out = append(out, v)
	}
	return out, nil
}

// typed converts a resolved instance, releasing it when it is not a T.
func typed[T any](k *Kernel, name string, instance any) (T, error) {
	v, ok := instance.(T)
	if !ok {
		_ = k.ReleaseComponent(instance)
		var zero T
		return zero, errdefs.TypeMismatch(name, reflect.TypeName[T](), instance)
	}
	return v, nil
}

// Has reports whether any component exposes the service of T.
func Has[T any](k *Kernel) bool {
	return k.internal.HasService(ServiceOf[T]())
}

type Optional[T any] struct {
	value   T
	present bool
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func (o Optional[T]) OrElseFunc(fn func() T) T {
	if o.present {
		return o.value
	}
	return fn()
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// ResolveOptional resolves the service of T when a component exposes it.
// Failures other than a missing component are returned.
func ResolveOptional[T any](ctx context.Context, k *Kernel, opts ...ResolveOption) (Optional[T], error) {
	if !Has[T](k) {
		return None[T](), nil
	}

	v, err := Resolve[T](ctx, k, opts...)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}
