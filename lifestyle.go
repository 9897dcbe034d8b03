package keel

import (
	"context"
	"time"

	"github.com/danpasecinic/keel/internal/lifestyle"
)

// Lifestyle decides how many live instances of a component exist and what
// releasing one of them means.
type Lifestyle = lifestyle.Spec

type LifestyleKind = lifestyle.Kind

// LifestyleManager is implemented by caller supplied lifestyles.
type LifestyleManager = lifestyle.Manager

var (
	Singleton = Lifestyle{Kind: lifestyle.Singleton}
	Transient = Lifestyle{Kind: lifestyle.Transient}
	PerThread = Lifestyle{Kind: lifestyle.PerThread}
)

type PoolOption func(*Lifestyle)

// WithPoolTimeout bounds how long a resolution waits for a pooled instance.
// A zero timeout falls back to the kernel default; when that is zero too an
// exhausted pool fails immediately.
func WithPoolTimeout(d time.Duration) PoolOption {
	return func(l *Lifestyle) {
		l.Timeout = d
	}
}

// WithPoolShrink decommissions released instances while more than min are
// alive instead of keeping them idle.
func WithPoolShrink() PoolOption {
	return func(l *Lifestyle) {
		l.Shrink = true
	}
}

func Pooled(min, max int, opts ...PoolOption) Lifestyle {
	l := Lifestyle{Kind: lifestyle.Pooled, Min: min, Max: max}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Custom uses a manager built by factory, once per component.
func Custom(factory func() LifestyleManager) Lifestyle {
	return Lifestyle{Kind: lifestyle.Custom, Factory: factory}
}

// WithThreadScope starts a per-thread scope: PerThread components resolved
// with the returned context share one instance, independent of goroutines.
func WithThreadScope(ctx context.Context) context.Context {
	return lifestyle.WithThreadScope(ctx)
}
