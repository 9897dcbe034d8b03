// Package burden records which instances a resolution caused to exist, so that
// releasing a root releases its owned dependents exactly once.
package burden

import (
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// Owner is the handler that created an instance and knows how to release it.
type Owner interface {
	Name() string
	Release(b *Burden) error
}

type Burden struct {
	instance any
	owner    Owner
	owned    bool

	mu       sync.Mutex
	children []*Burden
	released atomic.Bool
}

// New records instance as created by owner. An owned burden is released
// together with the consumer that caused it; burdens of longer-lived or
// externally supplied instances are not owned.
func New(instance any, owner Owner, owned bool) *Burden {
	return &Burden{
		instance: instance,
		owner:    owner,
		owned:    owned,
	}
}

func (b *Burden) Instance() any {
	return b.instance
}

func (b *Burden) Owner() Owner {
	return b.owner
}

func (b *Burden) Owned() bool {
	return b.owned
}

func (b *Burden) Released() bool {
	return b.released.Load()
}

// AddChild records child as a dependency created for b. Children that are not
// owned are ignored; their lifetime belongs to their own lifestyle.
func (b *Burden) AddChild(child *Burden) bool {
	if child == nil || !child.owned || child == b {
		return false
	}
	b.mu.Lock()
	b.children = append(b.children, child)
	b.mu.Unlock()
	return true
}

func (b *Burden) Children() []*Burden {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Burden, len(b.children))
	copy(out, b.children)
	return out
}

// Release hands b back to its owner, whose lifestyle decides whether the
// instance is decommissioned now.
func (b *Burden) Release() error {
	if b.owner == nil || b.released.Load() {
		return nil
	}
	return b.owner.Release(b)
}

// Decommission releases the children in reverse creation order, each through
// its own owner, then destroys the instance. Only the first call has any
// effect.
func (b *Burden) Decommission(destroy func(instance any) error) error {
	if !b.released.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	children := b.children
	b.children = nil
	b.mu.Unlock()

	err := ReleaseAll(children)
	if destroy != nil {
		err = multierr.Append(err, destroy(b.instance))
	}
	return err
}

// ReleaseAll releases burdens in reverse order and collects every failure.
func ReleaseAll(burdens []*Burden) error {
	var err error
	for i := len(burdens) - 1; i >= 0; i-- {
		err = multierr.Append(err, burdens[i].Release())
	}
	return err
}
