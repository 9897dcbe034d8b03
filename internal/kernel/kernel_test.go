package kernel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/lifestyle"
	"github.com/danpasecinic/keel/internal/model"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, entry)
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

type part struct {
	name  string
	args  []any
	props map[string]any
	rec   *recorder
}

func (p *part) Dispose() error {
	p.rec.add(p.name)
	return nil
}

func svc(name string) model.Service {
	return model.NewService(name)
}

func dep(key, service string) model.Slot {
	return model.Slot{Key: key, Service: svc(service)}
}

func component(rec *recorder, name string, kind lifestyle.Kind, slots ...model.Slot) *model.Descriptor {
	return &model.Descriptor{
		Name:     name,
		Services: []model.Service{svc(name)},
		Implementation: model.Implementation{
			Type:        svc(name + "Impl"),
			Constructor: slots,
			Factory: func(_ context.Context, a *model.Activation) (any, error) {
				return &part{name: name, args: a.Args, props: a.Properties, rec: rec}, nil
			},
		},
		Lifestyle: lifestyle.Spec{Kind: kind},
	}
}

func newKernel(t *testing.T, cfg *Config) *Kernel {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	k := New(cfg)
	t.Cleanup(func() { _ = k.Dispose() })
	return k
}

func register(t *testing.T, k *Kernel, ds ...*model.Descriptor) {
	t.Helper()
	for _, d := range ds {
		require.NoError(t, k.Register(d))
	}
}

func resolve(t *testing.T, k *Kernel, name string) *part {
	t.Helper()
	v, err := k.Resolve(context.Background(), name, ResolveOptions{})
	require.NoError(t, err)
	return v.(*part)
}

func codeOf(t *testing.T, err error) errdefs.ErrorCode {
	t.Helper()
	var kerr *errdefs.Error
	require.True(t, errors.As(err, &kerr), "expected a kernel error, got %v", err)
	return kerr.Code
}

func TestRelease_DisposesDependentsInReverseOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "C", lifestyle.Transient),
		component(rec, "B", lifestyle.Transient, dep("c", "C")),
		component(rec, "A", lifestyle.Transient, dep("b", "B")),
	)

	a := resolve(t, k, "A")
	require.NoError(t, k.ReleaseComponent(a))
	assert.Equal(t, []string{"C", "B", "A"}, rec.entries())
}

func TestRelease_IsIdempotent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "engine", lifestyle.Transient),
		component(rec, "car", lifestyle.Transient, dep("engine", "engine")),
	)

	car := resolve(t, k, "car")
	require.NoError(t, k.ReleaseComponent(car))
	require.NoError(t, k.ReleaseComponent(car))
	assert.Equal(t, []string{"engine", "car"}, rec.entries())
}

func TestRelease_NeverDisposesLongerLivedDependencies(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "logger", lifestyle.Singleton),
		component(rec, "serviceA", lifestyle.Transient, dep("logger", "logger")),
		component(rec, "serviceB", lifestyle.Transient, dep("logger", "logger")),
	)

	a := resolve(t, k, "serviceA")
	b := resolve(t, k, "serviceB")
	assert.Same(t, a.args[0], b.args[0])

	require.NoError(t, k.ReleaseComponent(a))
	require.NoError(t, k.ReleaseComponent(b))
	assert.Equal(t, []string{"serviceA", "serviceB"}, rec.entries())

	require.NoError(t, k.Dispose())
	assert.Equal(t, []string{"serviceA", "serviceB", "logger"}, rec.entries())
}

func TestResolve_MutualCycle(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "a", lifestyle.Transient, dep("b", "b")),
		component(rec, "b", lifestyle.Transient, dep("a", "a")),
	)

	_, err := k.Resolve(context.Background(), "a", ResolveOptions{})
	require.Error(t, err)
	assert.Equal(t, errdefs.ErrCodeCycle, codeOf(t, err))

	var kerr *errdefs.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, []string{"a", "b", "a"}, kerr.Stack)

	v, err := k.Resolve(context.Background(), "a", ResolveOptions{Args: map[string]any{"a": "override"}})
	require.NoError(t, err)
	b := v.(*part).args[0].(*part)
	assert.Equal(t, "override", b.args[0])
}

func TestResolve_SelfReference(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(t, k, component(rec, "node", lifestyle.Transient, dep("next", "node")))

	info, err := k.GetHandler("node")
	require.NoError(t, err)
	assert.Equal(t, Valid, info.State)

	_, err = k.Resolve(context.Background(), "node", ResolveOptions{})
	assert.True(t, errdefs.Has(err, errdefs.ErrCodeCycle))

	_, err = k.Resolve(context.Background(), "node", ResolveOptions{Args: map[string]any{"next": nil}})
	assert.NoError(t, err)
}

func TestResolve_OptionalSlotDefault(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k, component(
			rec, "client", lifestyle.Transient,
			model.Slot{Key: "timeout", Service: svc("Timeout"), Optional: true, Default: 30},
		),
	)

	client := resolve(t, k, "client")
	assert.Equal(t, 30, client.args[0])
}

func TestResolve_GenericClosureIsCached(t *testing.T) {
	t.Parallel()

	var activations int
	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k, &model.Descriptor{
			Name:     "repo",
			Services: []model.Service{model.NewService("IRepo", model.Param("T"))},
			Implementation: model.Implementation{
				Type: model.NewService("Repo", model.Param("T")),
				Factory: func(_ context.Context, a *model.Activation) (any, error) {
					activations++
					return &part{name: a.TypeArgs["T"].Name, rec: rec}, nil
				},
			},
			Lifestyle: lifestyle.Spec{Kind: lifestyle.Transient},
		},
	)

	stringRepo := model.NewService("IRepo", svc("string"))
	first, err := k.ResolveService(context.Background(), stringRepo, ResolveOptions{})
	require.NoError(t, err)
	second, err := k.ResolveService(context.Background(), stringRepo, ResolveOptions{})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "string", first.(*part).name)
	assert.Equal(t, 2, activations)

	info, err := k.GetHandler("repo")
	require.NoError(t, err)
	assert.True(t, info.Generic)
	assert.Equal(t, 1, info.Closures)

	name, err := k.ComponentOf(first)
	require.NoError(t, err)
	assert.Equal(t, "repo[T=string]", name)

	_, err = k.ResolveService(context.Background(), model.NewService("IRepo", svc("int")), ResolveOptions{})
	require.NoError(t, err)
	info, _ = k.GetHandler("repo")
	assert.Equal(t, 2, info.Closures)

	_, err = k.Resolve(context.Background(), "repo", ResolveOptions{})
	assert.Equal(t, errdefs.ErrCodeGenericArguments, codeOf(t, err))
}

func TestHandler_WaitsForDependencies(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)

	var changes []string
	k.OnHandlerStateChanged(func(name string, state State) {
		changes = append(changes, name+"="+state.String())
	})

	register(t, k, component(rec, "car", lifestyle.Transient, dep("engine", "engine")))

	info, err := k.GetHandler("car")
	require.NoError(t, err)
	assert.Equal(t, WaitingDependency, info.State)
	require.Len(t, info.Unresolved, 1)
	assert.Equal(t, "engine", info.Unresolved[0].Key)

	_, err = k.Resolve(context.Background(), "car", ResolveOptions{})
	assert.Equal(t, errdefs.ErrCodeHandlerState, codeOf(t, err))

	register(t, k, component(rec, "engine", lifestyle.Transient))

	info, _ = k.GetHandler("car")
	assert.Equal(t, Valid, info.State)
	assert.Empty(t, info.Unresolved)
	assert.Equal(t, []string{"car=valid"}, changes)

	car := resolve(t, k, "car")
	assert.NotNil(t, car.args[0])
}

func TestResolve_UnsatisfiedDependencyCarriesChain(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "a", lifestyle.Transient, dep("b", "b")),
		component(rec, "b", lifestyle.Transient, dep("c", "c")),
		component(rec, "c", lifestyle.Transient, dep("d", "d")),
	)

	_, err := k.Resolve(context.Background(), "a", ResolveOptions{})
	require.Error(t, err)

	var kerr *errdefs.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errdefs.ErrCodeUnsatisfiedDependency, kerr.Code)
	assert.Equal(t, "b", kerr.Component)
	assert.Equal(t, []string{"a", "b"}, kerr.Stack)
	assert.True(t, errdefs.Has(err, errdefs.ErrCodeHandlerState), "the waiting handler is the cause")
	assert.Contains(t, err.Error(), "a -> b")
}

func TestResolve_RollsBackPartialActivation(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	broken := component(rec, "broken", lifestyle.Transient)
	broken.Implementation.Factory = func(context.Context, *model.Activation) (any, error) {
		return nil, errors.New("boom")
	}
	register(
		t, k,
		component(rec, "ok", lifestyle.Transient),
		component(rec, "shared", lifestyle.Singleton),
		broken,
		component(rec, "root", lifestyle.Transient, dep("ok", "ok"), dep("shared", "shared"), dep("broken", "broken")),
	)

	_, err := k.Resolve(context.Background(), "root", ResolveOptions{})
	require.Error(t, err)

	var kerr *errdefs.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errdefs.ErrCodeActivationFailed, kerr.Code)
	assert.Equal(t, []string{"root", "broken"}, kerr.Stack)
	assert.Equal(t, []string{"ok"}, rec.entries(), "only the failed branch's owned instances are released")

	info, _ := k.GetHandler("shared")
	assert.Equal(t, 1, info.Live, "the singleton stays cached")
}

func TestPool_ExhaustionAndReuse(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	pooled := component(rec, "conn", lifestyle.Pooled)
	pooled.Lifestyle.Max = 1
	register(t, k, pooled)

	first := resolve(t, k, "conn")

	_, err := k.Resolve(context.Background(), "conn", ResolveOptions{})
	require.Error(t, err)
	var kerr *errdefs.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errdefs.ErrCodePoolExhausted, kerr.Code)
	assert.Equal(t, []string{"conn"}, kerr.Stack)

	require.NoError(t, k.ReleaseComponent(first))
	require.NoError(t, k.ReleaseComponent(first))
	assert.Empty(t, rec.entries(), "pooled instances go back to the pool")

	again := resolve(t, k, "conn")
	assert.Same(t, first, again)

	info, _ := k.GetHandler("conn")
	assert.Equal(t, 1, info.Live)
	assert.Equal(t, 0, info.Idle)
}

func TestPool_StaleReleaseIsIgnored(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	pooled := component(rec, "conn", lifestyle.Pooled)
	pooled.Lifestyle.Max = 1
	register(t, k, pooled, component(rec, "repo", lifestyle.Transient, dep("conn", "conn")))

	conn := resolve(t, k, "conn")
	require.NoError(t, k.ReleaseComponent(conn))

	repo := resolve(t, k, "repo")
	require.Same(t, conn, repo.args[0], "the repository borrows the only connection")

	require.NoError(t, k.ReleaseComponent(conn))
	_, err := k.Resolve(context.Background(), "conn", ResolveOptions{})
	assert.Equal(t, errdefs.ErrCodePoolExhausted, codeOf(t, err), "a second release must not return a borrowed instance")

	require.NoError(t, k.ReleaseComponent(repo))
	assert.Same(t, conn, resolve(t, k, "conn"))
}

func TestReleaseComponent_UnknownInstance(t *testing.T) {
	t.Parallel()

	k := newKernel(t, nil)
	stranger := &part{name: "stranger"}

	assert.NoError(t, k.ReleaseComponent(stranger))
	assert.NoError(t, k.ReleaseComponent(42))

	_, err := k.ComponentOf(stranger)
	assert.Equal(t, errdefs.ErrCodeUnknownInstance, codeOf(t, err))
}

func TestExternalInstance_NeverDisposed(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	cfg := &part{name: "config", rec: rec}
	register(
		t, k,
		&model.Descriptor{
			Name:      "config",
			Services:  []model.Service{svc("config")},
			Lifestyle: lifestyle.Spec{Kind: lifestyle.External},
			Instance:  cfg,
		},
		component(rec, "app", lifestyle.Transient, dep("config", "config")),
	)

	app := resolve(t, k, "app")
	assert.Same(t, cfg, app.args[0])

	got := resolve(t, k, "config")
	assert.Same(t, cfg, got)
	require.NoError(t, k.ReleaseComponent(got))

	require.NoError(t, k.ReleaseComponent(app))
	require.NoError(t, k.Dispose())
	assert.Equal(t, []string{"app"}, rec.entries())
}

func TestDispose_ReverseRegistrationOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "first", lifestyle.Singleton),
		component(rec, "second", lifestyle.PerThread),
		component(rec, "third", lifestyle.Singleton),
		component(rec, "loose", lifestyle.Transient),
	)
	resolve(t, k, "first")
	resolve(t, k, "second")
	resolve(t, k, "third")
	resolve(t, k, "loose")

	require.NoError(t, k.Dispose())
	assert.Equal(t, []string{"loose", "third", "second", "first"}, rec.entries())

	require.NoError(t, k.Dispose(), "dispose is idempotent")
	assert.Len(t, rec.entries(), 4)

	_, err := k.Resolve(context.Background(), "first", ResolveOptions{})
	assert.Equal(t, errdefs.ErrCodeKernelDisposed, codeOf(t, err))
	err = k.Register(component(rec, "late", lifestyle.Transient))
	assert.Equal(t, errdefs.ErrCodeKernelDisposed, codeOf(t, err))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "db", lifestyle.Singleton),
		component(rec, "repo", lifestyle.Transient, dep("db", "db")),
	)
	resolve(t, k, "db")

	err := k.Remove("db")
	require.Error(t, err)
	assert.Equal(t, errdefs.ErrCodeComponentInUse, codeOf(t, err))
	assert.Contains(t, err.Error(), "repo")

	require.NoError(t, k.Remove("repo"))
	require.NoError(t, k.Remove("db"))
	assert.Equal(t, []string{"db"}, rec.entries())
	assert.False(t, k.Has("db"))

	assert.Equal(t, errdefs.ErrCodeComponentNotFound, codeOf(t, k.Remove("db")))
}

func TestRegister_DuplicateAndInvalid(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(t, k, component(rec, "a", lifestyle.Transient))

	assert.Equal(t, errdefs.ErrCodeDuplicateName, codeOf(t, k.Register(component(rec, "a", lifestyle.Singleton))))

	invalid := component(rec, "b", lifestyle.Pooled)
	assert.Equal(t, errdefs.ErrCodeInvalidDescriptor, codeOf(t, k.Register(invalid)))
	assert.Equal(t, errdefs.ErrCodeInvalidDescriptor, codeOf(t, k.Register(nil)))
}

func TestResolve_ConcurrentSingleton(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	k := newKernel(t, nil)
	register(
		t, k,
		component(rec, "logger", lifestyle.Singleton),
		component(rec, "worker", lifestyle.Transient, dep("logger", "logger")),
	)

	var wg sync.WaitGroup
	loggers := make([]any, 32)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := k.Resolve(context.Background(), "worker", ResolveOptions{})
			if assert.NoError(t, err) {
				loggers[i] = v.(*part).args[0]
				assert.NoError(t, k.ReleaseComponent(v))
			}
		}(i)
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
	assert.Len(t, rec.entries(), 32)
}
