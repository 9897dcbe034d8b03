package kernel

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/danpasecinic/keel/internal/model"
)

// SubResolver supplies slot values ahead of registered components. It is
// consulted after caller arguments and before descriptor parameters.
type SubResolver interface {
	CanResolve(ctx context.Context, slot model.Slot, owner *model.Descriptor) bool
	Resolve(ctx context.Context, slot model.Slot, owner *model.Descriptor) (any, error)
}

// ResolveOptions are the overrides of one resolution. They apply to every
// slot activated on behalf of that resolution, nested components included.
type ResolveOptions struct {
	// Args are matched by slot key.
	Args map[string]any

	// Typed are matched by the key of the slot service.
	Typed map[string]any

	SubResolvers []SubResolver
}

// creationContext is shared, read-only, by every activation of one top-level
// resolution.
type creationContext struct {
	id           string
	args         map[string]any
	typed        map[string]any
	subResolvers []SubResolver
}

func newCreationContext(id string, opts ResolveOptions) *creationContext {
	if id == "" {
		id = uuid.NewString()
	}
	return &creationContext{
		id:           id,
		args:         maps.Clone(opts.Args),
		typed:        maps.Clone(opts.Typed),
		subResolvers: slices.Clone(opts.SubResolvers),
	}
}

// request is one step of a resolution: the creation context plus the names
// of the components being activated on this call path, outermost first.
type request struct {
	cc   *creationContext
	path []string
}

func (r *request) enter(name string) *request {
	return &request{cc: r.cc, path: r.chain(name)}
}

func (r *request) chain(name string) []string {
	out := make([]string, len(r.path), len(r.path)+1)
	copy(out, r.path)
	return append(out, name)
}

type frameKey struct{}

// withFrame attaches r to the context handed to factories and hooks, so a
// factory resolving from the kernel joins the cycle detection of its caller.
func withFrame(ctx context.Context, r *request) context.Context {
	return context.WithValue(ctx, frameKey{}, r)
}

func frameFrom(ctx context.Context) (*request, bool) {
	r, ok := ctx.Value(frameKey{}).(*request)
	return r, ok
}

// ResolutionID returns the correlation id of the resolution that is
// activating a component, or "" outside of an activation.
func ResolutionID(ctx context.Context) string {
	if r, ok := frameFrom(ctx); ok {
		return r.cc.id
	}
	return ""
}

// ActivationPath returns the names of the components being activated when ctx
// was handed to a factory, outermost first.
func ActivationPath(ctx context.Context) []string {
	if r, ok := frameFrom(ctx); ok {
		return slices.Clone(r.path)
	}
	return nil
}
