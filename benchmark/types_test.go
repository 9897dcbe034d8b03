package benchmark

import (
	"io"
	"log/slog"

	"github.com/samber/do/v2"
	"go.uber.org/dig"

	"github.com/danpasecinic/keel"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
}

func (d *Database) Dispose() error {
	return nil
}

type Cache struct {
	Logger *Logger
}

type Repository struct {
	DB    *Database
	Cache *Cache
}

type Service struct {
	Repo   *Repository
	Logger *Logger
}

// The constructors are shared by every framework so that each benchmark
// measures wiring, not construction.

func NewConfig() *Config {
	return &Config{Host: "localhost", Port: 8080}
}

func NewLogger() *Logger {
	return &Logger{Level: "info"}
}

func NewDatabase(cfg *Config, log *Logger) *Database {
	return &Database{Config: cfg, Logger: log}
}

func NewCache(log *Logger) *Cache {
	return &Cache{Logger: log}
}

func NewRepository(db *Database, cache *Cache) *Repository {
	return &Repository{DB: db, Cache: cache}
}

func NewService(repo *Repository, log *Logger) *Service {
	return &Service{Repo: repo, Logger: log}
}

func newKeel() *keel.Kernel {
	return keel.New(keel.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// keelChain registers the service graph with reflection-built slots; every
// component uses the given lifestyle.
func keelChain(k *keel.Kernel, style keel.Lifestyle) {
	_ = keel.ProvideValue(k, "config", NewConfig())
	_ = keel.ProvideValue(k, "logger", NewLogger())
	_ = keel.ProvideFunc(k, "database", NewDatabase, keel.WithLifestyle(style))
	_ = keel.ProvideFunc(k, "cache", NewCache, keel.WithLifestyle(style))
	_ = keel.ProvideFunc(k, "repository", NewRepository, keel.WithLifestyle(style))
	_ = keel.ProvideFunc(k, "service", NewService, keel.WithLifestyle(style))
}

func doChain(injector do.Injector, transient bool) {
	provide := do.Provide[*Database]
	if transient {
		provide = do.ProvideTransient[*Database]
	}

	do.ProvideValue(injector, NewConfig())
	do.ProvideValue(injector, NewLogger())
	provide(
		injector, func(i do.Injector) (*Database, error) {
			return NewDatabase(do.MustInvoke[*Config](i), do.MustInvoke[*Logger](i)), nil
		},
	)
	provideCache := do.Provide[*Cache]
	provideRepo := do.Provide[*Repository]
	provideService := do.Provide[*Service]
	if transient {
		provideCache = do.ProvideTransient[*Cache]
		provideRepo = do.ProvideTransient[*Repository]
		provideService = do.ProvideTransient[*Service]
	}
	provideCache(
		injector, func(i do.Injector) (*Cache, error) {
			return NewCache(do.MustInvoke[*Logger](i)), nil
		},
	)
	provideRepo(
		injector, func(i do.Injector) (*Repository, error) {
			return NewRepository(do.MustInvoke[*Database](i), do.MustInvoke[*Cache](i)), nil
		},
	)
	provideService(
		injector, func(i do.Injector) (*Service, error) {
			return NewService(do.MustInvoke[*Repository](i), do.MustInvoke[*Logger](i)), nil
		},
	)
}

func digChain(c *dig.Container) {
	_ = c.Provide(NewConfig)
	_ = c.Provide(NewLogger)
	_ = c.Provide(NewDatabase)
	_ = c.Provide(NewCache)
	_ = c.Provide(NewRepository)
	_ = c.Provide(NewService)
}
