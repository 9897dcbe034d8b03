package kernel

import (
	"context"
	"io"

	"go.uber.org/multierr"

	"github.com/danpasecinic/keel/internal/model"
)

// Activator turns resolved slot values into an instance.
type Activator interface {
	Activate(ctx context.Context, a *model.Activation) (any, error)
}

type ActivatorFunc func(ctx context.Context, a *model.Activation) (any, error)

func (f ActivatorFunc) Activate(ctx context.Context, a *model.Activation) (any, error) {
	return f(ctx, a)
}

// ProxyFactory wraps instances of components that declare interceptors. The
// kernel treats interceptor names as opaque.
type ProxyFactory interface {
	Proxy(ctx context.Context, d *model.Descriptor, target any) (any, error)
}

type ProxyFactoryFunc func(ctx context.Context, d *model.Descriptor, target any) (any, error)

func (f ProxyFactoryFunc) Proxy(ctx context.Context, d *model.Descriptor, target any) (any, error) {
	return f(ctx, d, target)
}

// Initializer is implemented by instances that need to run setup once all of
// their dependencies are injected.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Disposable is implemented by instances that hold resources to free when
// they are decommissioned. io.Closer is honoured as well.
type Disposable interface {
	Dispose() error
}

type factoryActivator struct{}

func (factoryActivator) Activate(ctx context.Context, a *model.Activation) (any, error) {
	return a.Descriptor.Implementation.Factory(ctx, a)
}

func commission(ctx context.Context, d *model.Descriptor, instance any) error {
	if init, ok := instance.(Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return err
		}
	}
	for _, hook := range d.OnCreate {
		if err := hook(ctx, instance); err != nil {
			return err
		}
	}
	return nil
}

func decommission(ctx context.Context, d *model.Descriptor, instance any) error {
	var err error
	for i := len(d.OnDestroy) - 1; i >= 0; i-- {
		err = multierr.Append(err, d.OnDestroy[i](ctx, instance))
	}
	return multierr.Append(err, closeInstance(instance))
}

func closeInstance(instance any) error {
	switch v := instance.(type) {
	case Disposable:
		return v.Dispose()
	case io.Closer:
		return v.Close()
	default:
		return nil
	}
}
