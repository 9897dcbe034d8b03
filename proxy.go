package keel

import (
	"context"
	"fmt"

	"github.com/danpasecinic/keel/internal/kernel"
	"github.com/danpasecinic/keel/internal/reflect"
)

type (
	Activator        = kernel.Activator
	ActivatorFunc    = kernel.ActivatorFunc
	ProxyFactory     = kernel.ProxyFactory
	ProxyFactoryFunc = kernel.ProxyFactoryFunc
	SubResolver      = kernel.SubResolver
	Initializer      = kernel.Initializer
	Disposable       = kernel.Disposable
)

// Interceptor wraps target and returns what callers receive instead.
type Interceptor func(ctx context.Context, d *Descriptor, target any) (any, error)

// Interceptors is a ProxyFactory that applies the interceptors a component
// names, in declaration order, each wrapping the result of the previous one.
type Interceptors map[string]Interceptor

func (i Interceptors) Proxy(ctx context.Context, d *Descriptor, target any) (any, error) {
	current := target
	for _, name := range d.Interceptors {
		intercept, ok := i[name]
		if !ok {
			return nil, fmt.Errorf("interceptor %q is not registered", name)
		}

		wrapped, err := intercept(ctx, d, current)
		if err != nil {
			return nil, fmt.Errorf("interceptor %q: %w", name, err)
		}
		current = wrapped
	}
	return current, nil
}

// Intercept adapts a typed wrapper to an Interceptor. Targets that are not a
// T fail the activation.
func Intercept[T any](wrap func(ctx context.Context, target T) (T, error)) Interceptor {
	return func(ctx context.Context, d *Descriptor, target any) (any, error) {
		typed, ok := target.(T)
		if !ok {
			return nil, fmt.Errorf("component %s: cannot intercept %T as %s", d.Name, target, reflect.TypeName[T]())
		}
		return wrap(ctx, typed)
	}
}
