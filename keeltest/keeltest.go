// Package keeltest wraps a kernel with helpers that fail the test instead of
// returning errors.
package keeltest

import (
	"context"
	"io"
	"log/slog"

	"github.com/danpasecinic/keel"
	"github.com/danpasecinic/keel/internal/reflect"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestKernel struct {
	*keel.Kernel
	tb TB
}

// New returns a kernel that logs nowhere unless opts supply a logger, and is
// disposed when the test ends.
func New(tb TB, opts ...keel.Option) *TestKernel {
	tb.Helper()

	opts = append([]keel.Option{keel.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	k := keel.New(opts...)
	tk := &TestKernel{
		Kernel: k,
		tb:     tb,
	}

	tb.Cleanup(func() {
		if err := k.Dispose(); err != nil {
			tb.Fatalf("failed to dispose kernel: %v", err)
		}
	})

	return tk
}

func (tk *TestKernel) RequireWarmup(ctx context.Context) {
	tk.tb.Helper()

	if err := tk.Warmup(ctx); err != nil {
		tk.tb.Fatalf("failed to warm up kernel: %v", err)
	}
}

func (tk *TestKernel) RequireDispose() {
	tk.tb.Helper()

	if err := tk.Dispose(); err != nil {
		tk.tb.Fatalf("failed to dispose kernel: %v", err)
	}
}

func (tk *TestKernel) RequireValidate() {
	tk.tb.Helper()

	if err := tk.Validate(); err != nil {
		tk.tb.Fatalf("kernel validation failed: %v", err)
	}
}

func (tk *TestKernel) RequireRelease(instance any) {
	tk.tb.Helper()

	if err := tk.ReleaseComponent(instance); err != nil {
		tk.tb.Fatalf("failed to release %T: %v", instance, err)
	}
}

// AssertLive fails unless the lifestyle of name holds exactly n instances.
func (tk *TestKernel) AssertLive(name string, n int) {
	tk.tb.Helper()

	info, err := tk.GetHandler(name)
	if err != nil {
		tk.tb.Fatalf("failed to describe %s: %v", name, err)
	}
	if info.Live != n {
		tk.tb.Fatalf("expected %s to hold %d live instances, got %d", name, n, info.Live)
	}
}

func (tk *TestKernel) AssertValid(name string) {
	tk.tb.Helper()

	info, err := tk.GetHandler(name)
	if err != nil {
		tk.tb.Fatalf("failed to describe %s: %v", name, err)
	}
	if info.State != keel.Valid {
		tk.tb.Fatalf("expected %s to be valid, it is waiting for %v", name, info.Unresolved)
	}
}

// Replace swaps the registration named name for an externally owned value.
func Replace[T any](tk *TestKernel, name string, value T) {
	tk.tb.Helper()

	if err := keel.ReplaceValue(tk.Kernel, name, value); err != nil {
		tk.tb.Fatalf("failed to replace %s: %v", name, err)
	}
}

func ReplaceProvider[T any](tk *TestKernel, name string, provider keel.Provider[T], opts ...keel.ComponentOption) {
	tk.tb.Helper()

	if err := keel.Replace(tk.Kernel, name, provider, opts...); err != nil {
		tk.tb.Fatalf("failed to replace provider %s: %v", name, err)
	}
}

func AssertHas[T any](tk *TestKernel) {
	tk.tb.Helper()

	if !keel.Has[T](tk.Kernel) {
		tk.tb.Fatalf("expected kernel to have %s", reflect.TypeKey[T]())
	}
}

func AssertNotHas[T any](tk *TestKernel) {
	tk.tb.Helper()

	if keel.Has[T](tk.Kernel) {
		tk.tb.Fatalf("expected kernel to not have %s", reflect.TypeKey[T]())
	}
}

func MustResolve[T any](tk *TestKernel, opts ...keel.ResolveOption) T {
	tk.tb.Helper()

	v, err := keel.Resolve[T](context.Background(), tk.Kernel, opts...)
	if err != nil {
		tk.tb.Fatalf("failed to resolve %s: %v", reflect.TypeKey[T](), err)
	}
	return v
}

func MustResolveNamed[T any](tk *TestKernel, name string, opts ...keel.ResolveOption) T {
	tk.tb.Helper()

	v, err := keel.ResolveNamed[T](context.Background(), tk.Kernel, name, opts...)
	if err != nil {
		tk.tb.Fatalf("failed to resolve %s: %v", name, err)
	}
	return v
}

func MustProvide[T any](tk *TestKernel, name string, provider keel.Provider[T], opts ...keel.ComponentOption) {
	tk.tb.Helper()

	if err := keel.Provide(tk.Kernel, name, provider, opts...); err != nil {
		tk.tb.Fatalf("failed to provide %s: %v", name, err)
	}
}

func MustProvideValue[T any](tk *TestKernel, name string, value T, opts ...keel.ComponentOption) {
	tk.tb.Helper()

	if err := keel.ProvideValue(tk.Kernel, name, value, opts...); err != nil {
		tk.tb.Fatalf("failed to provide value %s: %v", name, err)
	}
}
