package keel

import (
	"github.com/danpasecinic/keel/internal/kernel"
)

// State is the readiness of a component: valid once every required slot can
// be satisfied.
type State = kernel.State

const (
	WaitingDependency = kernel.WaitingDependency
	Valid             = kernel.Valid
)

type (
	HandlerInfo = kernel.HandlerInfo
	SlotInfo    = kernel.SlotInfo
)

// OnComponentModelCreated subscribes to descriptors before their handler is
// built. fn may still change the descriptor.
func (k *Kernel) OnComponentModelCreated(fn func(d *Descriptor)) {
	k.internal.OnComponentModelCreated(fn)
}

func (k *Kernel) OnComponentRegistered(fn func(name string, info HandlerInfo)) {
	k.internal.OnComponentRegistered(fn)
}

// OnHandlerStateChanged reports components that became valid after a later
// registration satisfied them.
func (k *Kernel) OnHandlerStateChanged(fn func(name string, state State)) {
	k.internal.OnHandlerStateChanged(fn)
}

func (k *Kernel) OnComponentCreated(fn func(name string, instance any)) {
	k.internal.OnComponentCreated(fn)
}

func (k *Kernel) OnComponentDestroyed(fn func(name string, instance any)) {
	k.internal.OnComponentDestroyed(fn)
}
