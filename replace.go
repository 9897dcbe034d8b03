package keel

// RemoveComponent unregisters name and decommissions the instances its
// lifestyle still owns. It fails with ComponentInUse while other components
// depend on it.
func (k *Kernel) RemoveComponent(name string) error {
	return k.internal.Remove(name)
}

// ReplaceComponent removes the registration named d.Name, if any, and
// registers d. It fails with ComponentInUse while other components depend on
// the old registration.
func (k *Kernel) ReplaceComponent(d *Descriptor) error {
	if d != nil && k.Has(d.Name) {
		if err := k.RemoveComponent(d.Name); err != nil {
			return err
		}
	}
	return k.Add(d)
}

// Replace registers provider as name, replacing any existing registration.
func Replace[T any](k *Kernel, name string, provider Provider[T], opts ...ComponentOption) error {
	if k.Has(name) {
		if err := k.RemoveComponent(name); err != nil {
			return err
		}
	}
	return Provide(k, name, provider, opts...)
}

// ReplaceValue registers value as name, replacing any existing registration.
func ReplaceValue[T any](k *Kernel, name string, value T, opts ...ComponentOption) error {
	if k.Has(name) {
		if err := k.RemoveComponent(name); err != nil {
			return err
		}
	}
	return ProvideValue(k, name, value, opts...)
}

func MustReplace[T any](k *Kernel, name string, provider Provider[T], opts ...ComponentOption) {
	if err := Replace(k, name, provider, opts...); err != nil {
		panic(err)
	}
}

func MustReplaceValue[T any](k *Kernel, name string, value T, opts ...ComponentOption) {
	if err := ReplaceValue(k, name, value, opts...); err != nil {
		panic(err)
	}
}
