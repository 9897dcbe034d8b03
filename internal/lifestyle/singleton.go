package lifestyle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/keel/internal/burden"
)

// singleton creates its instance on first use and keeps it until disposal.
// The external variant serves an instance the kernel never disposes.
type singleton struct {
	mu       sync.Mutex
	current  atomic.Pointer[burden.Burden]
	external bool
}

func (s *singleton) Resolve(ctx context.Context, activate Activate) (*burden.Burden, error) {
	if b := s.current.Load(); b != nil {
		return b, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.current.Load(); b != nil {
		return b, nil
	}

	b, err := activate(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(b)
	return b, nil
}

func (s *singleton) LockKey(context.Context) any {
	return s
}

func (s *singleton) Release(*burden.Burden) bool {
	return false
}

func (s *singleton) Dispose() []*burden.Burden {
	b := s.current.Swap(nil)
	if b == nil || s.external {
		return nil
	}
	return []*burden.Burden{b}
}

func (s *singleton) ReleasedWithConsumer() bool {
	return false
}

func (s *singleton) Stats() Stats {
	if s.current.Load() != nil {
		return Stats{Live: 1}
	}
	return Stats{}
}

type transient struct{}

func (transient) Resolve(ctx context.Context, activate Activate) (*burden.Burden, error) {
	return activate(ctx)
}

func (transient) Release(*burden.Burden) bool {
	return true
}

func (transient) Dispose() []*burden.Burden {
	return nil
}

func (transient) ReleasedWithConsumer() bool {
	return true
}
