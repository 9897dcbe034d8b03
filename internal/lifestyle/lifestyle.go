// Package lifestyle holds the strategies that decide how many live instances
// of a component exist and what releasing one of them means.
package lifestyle

import (
	"context"
	"fmt"
	"time"

	"github.com/danpasecinic/keel/internal/burden"
)

type Kind int

const (
	Singleton Kind = iota
	Transient
	PerThread
	Pooled
	Custom
	External
)

func (k Kind) String() string {
	switch k {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case PerThread:
		return "per-thread"
	case Pooled:
		return "pooled"
	case Custom:
		return "custom"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Activate creates a brand new instance and returns its burden.
type Activate func(ctx context.Context) (*burden.Burden, error)

// Manager is the contract every lifestyle implements, including caller
// supplied ones.
type Manager interface {
	// Resolve returns a cached burden or one produced by activate.
	Resolve(ctx context.Context, activate Activate) (*burden.Burden, error)

	// Release reports whether b must be decommissioned now.
	Release(b *burden.Burden) bool

	// Dispose gives up every instance the manager still owns. The caller
	// decommissions the returned burdens.
	Dispose() []*burden.Burden

	// ReleasedWithConsumer reports whether an instance is released together
	// with the component whose resolution caused it to exist.
	ReleasedWithConsumer() bool
}

// Stats is a point-in-time view of the instances a manager holds. Idle is
// only meaningful for pools.
type Stats struct {
	Live int
	Idle int
}

// StatsReporter is implemented by managers that can describe their cache.
type StatsReporter interface {
	Stats() Stats
}

// Exclusive is implemented by managers that serialise activations behind a
// lock. LockKey names the lock a resolution from ctx may wait on; two
// resolutions wait on each other only when their keys are equal.
type Exclusive interface {
	LockKey(ctx context.Context) any
}

// LockKey returns the activation lock of m for ctx, if m has one.
func LockKey(ctx context.Context, m Manager) (any, bool) {
	e, ok := m.(Exclusive)
	if !ok {
		return nil, false
	}
	return e.LockKey(ctx), true
}

// Spec is the declared lifestyle of a descriptor.
type Spec struct {
	Kind Kind

	// Pool bounds, used by Pooled only.
	Min     int
	Max     int
	Timeout time.Duration
	Shrink  bool

	// Factory builds the manager of a Custom lifestyle, once per handler.
	Factory func() Manager
}

func (s Spec) String() string {
	if s.Kind == Pooled {
		return fmt.Sprintf("pooled(min=%d,max=%d)", s.Min, s.Max)
	}
	return s.Kind.String()
}

func (s Spec) Validate() error {
	switch s.Kind {
	case Singleton, Transient, PerThread, External:
		return nil
	case Pooled:
		if s.Max < 1 {
			return fmt.Errorf("pool max must be at least 1, got %d", s.Max)
		}
		if s.Min < 0 || s.Min > s.Max {
			return fmt.Errorf("pool min must be between 0 and max (%d), got %d", s.Max, s.Min)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("pool timeout must not be negative")
		}
		return nil
	case Custom:
		if s.Factory == nil {
			return fmt.Errorf("custom lifestyle requires a manager factory")
		}
		return nil
	default:
		return fmt.Errorf("unknown lifestyle %d", s.Kind)
	}
}

// New builds the manager for spec. name is used in error messages;
// defaultTimeout applies to pools that declare no timeout of their own.
func New(name string, spec Spec, defaultTimeout time.Duration) (Manager, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch spec.Kind {
	case Transient:
		return transient{}, nil
	case PerThread:
		return newPerThread(), nil
	case Pooled:
		timeout := spec.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		return newPool(name, spec.Min, spec.Max, timeout, spec.Shrink), nil
	case Custom:
		m := spec.Factory()
		if m == nil {
			return nil, fmt.Errorf("custom lifestyle factory returned nil")
		}
		return m, nil
	case External:
		return &singleton{external: true}, nil
	default:
		return &singleton{}, nil
	}
}
