// Package keel is a component kernel: it resolves named components and their
// dependencies, manages how long each instance lives and releases exactly what
// a resolution created, in reverse creation order.
//
// # Quick Start
//
// Register components, resolve a root, release it:
//
//	k := keel.New()
//	defer k.Dispose()
//
//	keel.Provide(k, "engine", func(ctx context.Context, a *keel.Activation) (*Engine, error) {
//	    return &Engine{}, nil
//	}, keel.WithLifestyle(keel.Transient))
//
//	keel.Provide(k, "car", func(ctx context.Context, a *keel.Activation) (*Car, error) {
//	    return &Car{Engine: a.Args[0].(*Engine)}, nil
//	}, keel.WithLifestyle(keel.Transient), keel.WithConstructor(keel.DepOf[*Engine]("engine")))
//
//	car, err := keel.ResolveNamed[*Car](ctx, k, "car")
//	...
//	k.ReleaseComponent(car) // disposes the car, then its engine
//
// # Descriptors and Slots
//
// A component is described once by a Descriptor: its name, the services it
// is exposed as, its lifestyle and its dependency slots. Slots are explicit;
// reflection is only used by the FromStruct and FromConstructor builders,
// once, at registration:
//
//	impl, _ := keel.FromConstructor(NewUserService)
//	k.AddComponent("users", []keel.Service{impl.Type}, impl)
//
//	keel.ProvideStruct[*Handler](k, "handler") // fields tagged `keel:""`
//
// A slot is satisfied, in order, by caller arguments (WithArgument,
// WithArgumentOf), sub-resolvers, descriptor parameters (WithParameter) and
// finally the first valid registered component. Optional slots fall back to
// their default.
//
// # Lifestyles
//
//	keel.Singleton            // one instance per kernel (default)
//	keel.Transient            // a new instance per resolution, released with it
//	keel.PerThread            // one instance per WithThreadScope context
//	keel.Pooled(1, 8)         // bounded pool, reused after release
//	keel.Custom(newManager)   // caller supplied LifestyleManager
//
// Releasing a consumer never disposes a singleton, per-thread or pooled
// dependency; those belong to their lifestyle and are disposed by Dispose.
//
// # Generic Components
//
// A component may expose an open generic service. Each distinct set of type
// arguments is closed once and cached:
//
//	repo := keel.NewService("Repository", keel.Param("T"))
//	k.AddComponent("repo", []keel.Service{repo}, keel.Implementation{
//	    Type:    keel.NewService("SQLRepository", keel.Param("T")),
//	    Factory: newRepository,
//	})
//
//	k.ResolveService(ctx, keel.NewService("Repository", keel.ServiceOf[User]()))
//
// # Waiting Components
//
// Components may be registered in any order. A component whose required
// slots cannot be satisfied yet is waiting; it becomes valid as soon as a
// later registration or sub-resolver satisfies it. Validate reports what is
// still waiting and every static dependency cycle.
//
// # Modules and Facilities
//
//	var Storage = keel.NewModule("storage")
//	keel.ModuleProvide(Storage, "db", newDB)
//	k.Install(Storage)
//
// A Facility extends a kernel through its events and sub-resolvers; the
// config package ships one that applies per-component overrides.
//
// # Observability
//
// Every resolution carries a correlation id, available to factories and
// hooks through ResolutionID. Observers and events report resolutions,
// releases and registrations; the metrics package turns them into
// Prometheus collectors.
package keel
