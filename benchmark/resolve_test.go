package benchmark

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/danpasecinic/keel"
)

func BenchmarkResolve_Singleton_Keel(b *testing.B) {
	k := newKeel()
	defer func() { _ = k.Dispose() }()
	_ = keel.ProvideValue(k, "config", NewConfig())
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		cfg, _ := keel.Resolve[*Config](ctx, k)
		_ = k.ReleaseComponent(cfg)
	}
}

func BenchmarkResolve_Singleton_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, NewConfig())
	_ = do.MustInvoke[*Config](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Config](injector)
	}
}

func BenchmarkResolve_Singleton_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(NewConfig)
	_ = c.Invoke(func(*Config) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Config) {})
	}
}

func BenchmarkResolve_Chain_Keel(b *testing.B) {
	k := newKeel()
	defer func() { _ = k.Dispose() }()
	keelChain(k, keel.Singleton)
	ctx := context.Background()
	_ = k.Warmup(ctx)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		svc, _ := keel.Resolve[*Service](ctx, k)
		_ = k.ReleaseComponent(svc)
	}
}

func BenchmarkResolve_Chain_Do(b *testing.B) {
	injector := do.New()
	doChain(injector, false)
	_ = do.MustInvoke[*Service](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Service](injector)
	}
}

func BenchmarkResolve_Chain_Dig(b *testing.B) {
	c := dig.New()
	digChain(c)
	_ = c.Invoke(func(*Service) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Service) {})
	}
}

func BenchmarkResolve_Chain_Fx(b *testing.B) {
	var svc *Service
	app := fx.New(
		fx.NopLogger,
		fx.Provide(NewConfig, NewLogger, NewDatabase, NewCache, NewRepository, NewService),
		fx.Populate(&svc),
	)
	ctx := context.Background()
	_ = app.Start(ctx)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = svc
	}
	_ = app.Stop(ctx)
}

// Transient graphs build every non-value component on each resolution; keel
// also disposes them on release. Dig and fx have no transient scope.

func BenchmarkResolve_Transient_Keel(b *testing.B) {
	k := newKeel()
	defer func() { _ = k.Dispose() }()
	keelChain(k, keel.Transient)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		svc, _ := keel.Resolve[*Service](ctx, k)
		_ = k.ReleaseComponent(svc)
	}
}

func BenchmarkResolve_Transient_Do(b *testing.B) {
	injector := do.New()
	doChain(injector, true)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Service](injector)
	}
}
