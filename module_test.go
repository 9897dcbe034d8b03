package keel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/keel"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
}

func TestModuleBasic(t *testing.T) {
	t.Parallel()

	module := keel.NewModule("test")
	assert.Equal(t, "test", module.Name())
}

func TestModuleInstall(t *testing.T) {
	t.Parallel()

	k := newKernel(t)

	config := keel.NewModule("config")
	keel.ModuleProvideValue(config, "config", &Config{Port: 9000, Host: "module.local"})

	storage := keel.NewModule("storage").Include(config)
	keel.ModuleProvide(
		storage, "db", func(_ context.Context, a *keel.Activation) (*Database, error) {
			return &Database{Config: a.Args[0].(*Config)}, nil
		}, keel.WithConstructor(keel.DepOf[*Config]("config")),
	)

	require.NoError(t, k.Install(storage, config))
	assert.Equal(t, []string{"config", "db"}, k.Names(), "included modules install first and only once")

	db := keel.MustResolve[*Database](context.Background(), k)
	assert.Equal(t, 9000, db.Config.Port)
}

func TestModuleDescriptors(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	log := &journal{}

	module := keel.NewModule("vehicles").
		AddComponentInstance("logger", keel.ServiceOf[*Logger](), &Logger{log: log}).
		AddComponent(
			"engine", []keel.Service{keel.ServiceOf[*Engine]()}, keel.Implementation{
				Type: keel.ServiceOf[*Engine](),
				Factory: func(context.Context, *keel.Activation) (any, error) {
					return &Engine{log: log}, nil
				},
			}, keel.WithLifestyle(keel.Transient),
		).
		Add(
			&keel.Descriptor{
				Name:      "car",
				Services:  []keel.Service{keel.ServiceOf[*Car]()},
				Lifestyle: keel.Transient,
				Implementation: keel.Implementation{
					Type:        keel.ServiceOf[*Car](),
					Constructor: []keel.Slot{keel.DepOf[*Engine]("engine")},
					Factory: func(_ context.Context, a *keel.Activation) (any, error) {
						return &Car{Engine: a.Args[0].(*Engine), log: log}, nil
					},
				},
			},
		)

	require.NoError(t, k.Install(module))
	assert.Equal(t, 3, k.Size())

	car := keel.MustResolve[*Car](context.Background(), k)
	require.NoError(t, k.ReleaseComponent(car))
	assert.Equal(t, []string{"engine", "car"}, log.list())
}

func TestModuleInstall_Failure(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	keel.MustProvideValue(k, "config", &Config{})

	module := keel.NewModule("config")
	keel.ModuleProvideValue(module, "config", &Config{Port: 1})

	err := k.Install(module)
	require.Error(t, err)

	var kerr *keel.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, keel.ErrCodeModuleApplyFailed, kerr.Code)
	assert.True(t, keel.IsDuplicateName(err))
}

type countingFacility struct {
	registered []string
	terminated bool
}

func (f *countingFacility) Init(k *keel.Kernel) error {
	k.OnComponentRegistered(
		func(name string, _ keel.HandlerInfo) {
			f.registered = append(f.registered, name)
		},
	)
	return nil
}

func (f *countingFacility) Terminate() error {
	f.terminated = true
	return nil
}

func TestFacility(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	f := &countingFacility{}
	require.NoError(t, k.AddFacility(f))

	keel.MustProvideValue(k, "config", &Config{})
	assert.Equal(t, []string{"config"}, f.registered)

	require.NoError(t, k.Dispose())
	assert.True(t, f.terminated)
	assert.True(t, keel.IsKernelDisposed(k.AddFacility(f)))
}

func TestFacilityFunc(t *testing.T) {
	t.Parallel()

	k := newKernel(t)
	err := k.AddFacility(
		keel.FacilityFunc(
			func(k *keel.Kernel) error {
				return keel.ProvideValue(k, "config", &Config{Port: 1})
			},
		),
	)
	require.NoError(t, err)
	assert.True(t, keel.Has[*Config](k))
}
