package keel

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/danpasecinic/keel/internal/kernel"
)

// Kernel owns component registrations, the instances it created for them and
// their release. Independent kernels share no state.
type Kernel struct {
	internal *kernel.Kernel
	config   *kernelConfig

	facilitiesMu sync.Mutex
	facilities   []Facility
}

type kernelConfig struct {
	logger      *slog.Logger
	poolTimeout time.Duration
	activator   Activator
	proxies     ProxyFactory
	onResolve   []ResolveHook
	onRelease   []ReleaseHook
	onRegister  []RegisterHook
}

func New(opts ...Option) *Kernel {
	cfg := &kernelConfig{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	internal := kernel.New(
		&kernel.Config{
			Logger:       cfg.logger,
			PoolTimeout:  cfg.poolTimeout,
			Activator:    cfg.activator,
			ProxyFactory: cfg.proxies,
			OnResolve:    cfg.onResolve,
			OnRelease:    cfg.onRelease,
			OnRegister:   cfg.onRegister,
		},
	)

	return &Kernel{
		internal: internal,
		config:   cfg,
	}
}

func (k *Kernel) Logger() *slog.Logger {
	return k.internal.Logger()
}

// Validate reports every component still waiting for dependencies and every
// static dependency cycle, aggregated in one ValidationFailed error.
func (k *Kernel) Validate() error {
	return k.internal.Validate()
}

// Warmup creates every valid singleton, dependencies first.
func (k *Kernel) Warmup(ctx context.Context) error {
	return k.internal.Warmup(ctx)
}

func (k *Kernel) Size() int {
	return len(k.internal.Names())
}

// Names lists the registered components in registration order.
func (k *Kernel) Names() []string {
	return k.internal.Names()
}

func (k *Kernel) Has(name string) bool {
	return k.internal.Has(name)
}

// AddSubResolver installs a resolver consulted for every slot after caller
// arguments. Waiting components it can satisfy become valid.
func (k *Kernel) AddSubResolver(sr SubResolver) {
	k.internal.AddSubResolver(sr)
}

// Dispose releases every instance the caller still holds, newest first, then
// every instance the lifestyles own in reverse registration order. Further
// resolutions fail with KernelDisposed. Calling it again returns nil.
func (k *Kernel) Dispose() error {
	err := k.internal.Dispose()

	k.facilitiesMu.Lock()
	facilities := slices.Clone(k.facilities)
	k.facilities = nil
	k.facilitiesMu.Unlock()

	for i := len(facilities) - 1; i >= 0; i-- {
		if t, ok := facilities[i].(FacilityTerminator); ok {
			err = multierr.Append(err, t.Terminate())
		}
	}
	return err
}

func (k *Kernel) Disposed() bool {
	return k.internal.Disposed()
}

// Run warms the kernel up, blocks until ctx is done or the process receives
// SIGINT or SIGTERM, then disposes it.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.Warmup(ctx); err != nil {
		return multierr.Append(err, k.Dispose())
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return k.Dispose()
}
