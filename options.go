package keel

import (
	"log/slog"
	"time"
)

type Option func(*kernelConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *kernelConfig) {
		cfg.logger = logger
	}
}

// WithDefaultPoolTimeout applies to pooled components that declare no
// timeout of their own.
func WithDefaultPoolTimeout(d time.Duration) Option {
	return func(cfg *kernelConfig) {
		cfg.poolTimeout = d
	}
}

// WithActivator replaces the default activator, which calls the descriptor
// factory.
func WithActivator(a Activator) Option {
	return func(cfg *kernelConfig) {
		cfg.activator = a
	}
}

// WithProxyFactory wraps instances of components that declare interceptors.
func WithProxyFactory(p ProxyFactory) Option {
	return func(cfg *kernelConfig) {
		cfg.proxies = p
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *kernelConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithReleaseObserver(hook ReleaseHook) Option {
	return func(cfg *kernelConfig) {
		cfg.onRelease = append(cfg.onRelease, hook)
	}
}

func WithRegisterObserver(hook RegisterHook) Option {
	return func(cfg *kernelConfig) {
		cfg.onRegister = append(cfg.onRegister, hook)
	}
}
