package keel

import (
	"context"

	"github.com/danpasecinic/keel/internal/kernel"
)

// ReleaseComponent releases an instance returned by a resolution together
// with every dependency created for it that nothing else holds. Releasing an
// instance twice, or one the kernel did not create, does nothing.
func (k *Kernel) ReleaseComponent(instance any) error {
	return k.internal.ReleaseComponent(instance)
}

// ComponentOf names the component that created instance. Instances the kernel
// does not track report UnknownInstance.
func (k *Kernel) ComponentOf(instance any) (string, error) {
	return k.internal.ComponentOf(instance)
}

// ResolutionID returns the correlation id of the resolution a factory or hook
// runs in, or "" outside of one.
func ResolutionID(ctx context.Context) string {
	return kernel.ResolutionID(ctx)
}

// ActivationPath returns the components being activated when a factory or
// hook received ctx, outermost first.
func ActivationPath(ctx context.Context) []string {
	return kernel.ActivationPath(ctx)
}
