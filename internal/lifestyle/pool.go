package lifestyle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danpasecinic/keel/internal/burden"
	"github.com/danpasecinic/keel/internal/errdefs"
)

// pool keeps between min and max instances. Resolve hands out a free instance,
// grows while below max, and otherwise waits for a release up to timeout.
type pool struct {
	name    string
	min     int
	max     int
	timeout time.Duration
	shrink  bool

	mu       sync.Mutex
	free     []*burden.Burden
	inUse    map[*burden.Burden]struct{}
	created  int
	warmed   bool
	disposed bool
	released chan struct{}
}

func newPool(name string, min, max int, timeout time.Duration, shrink bool) *pool {
	return &pool{
		name:     name,
		min:      min,
		max:      max,
		timeout:  timeout,
		shrink:   shrink,
		inUse:    make(map[*burden.Burden]struct{}),
		released: make(chan struct{}),
	}
}

func (p *pool) Resolve(ctx context.Context, activate Activate) (*burden.Burden, error) {
	if err := p.warm(ctx, activate); err != nil {
		return nil, err
	}

	var deadline <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		p.mu.Lock()
		if p.disposed {
			p.mu.Unlock()
			return nil, errdefs.KernelDisposed()
		}

		if n := len(p.free); n > 0 {
			b := p.free[n-1]
			p.free = p.free[:n-1]
			p.inUse[b] = struct{}{}
			p.mu.Unlock()
			return b, nil
		}

		if p.created < p.max {
			p.created++
			p.mu.Unlock()

			b, err := activate(ctx)

			p.mu.Lock()
			if err != nil {
				p.created--
				p.notifyLocked()
				p.mu.Unlock()
				return nil, err
			}
			p.inUse[b] = struct{}{}
			p.mu.Unlock()
			return b, nil
		}

		wait := p.released
		p.mu.Unlock()

		if deadline == nil {
			return nil, errdefs.PoolExhausted(p.name, p.max, nil)
		}

		select {
		case <-wait:
		case <-deadline:
			return nil, errdefs.PoolExhausted(p.name, p.max, errors.New("timed out waiting for a free instance"))
		case <-ctx.Done():
			return nil, errdefs.PoolExhausted(p.name, p.max, ctx.Err())
		}
	}
}

// warm fills the free list with min instances the first time the pool is used.
func (p *pool) warm(ctx context.Context, activate Activate) error {
	p.mu.Lock()
	if p.warmed {
		p.mu.Unlock()
		return nil
	}
	p.warmed = true
	fill := p.min - p.created
	if fill < 0 {
		fill = 0
	}
	p.created += fill
	p.mu.Unlock()

	for i := 0; i < fill; i++ {
		b, err := activate(ctx)

		p.mu.Lock()
		if err != nil {
			p.created -= fill - i
			p.notifyLocked()
			p.mu.Unlock()
			return err
		}
		p.free = append(p.free, b)
		p.notifyLocked()
		p.mu.Unlock()
	}
	return nil
}

func (p *pool) Release(b *burden.Burden) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[b]; !ok {
		return false
	}
	delete(p.inUse, b)

	if p.disposed || (p.shrink && p.created > p.min) {
		p.created--
		p.notifyLocked()
		return true
	}

	p.free = append(p.free, b)
	p.notifyLocked()
	return false
}

func (p *pool) Dispose() []*burden.Burden {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disposed = true
	out := p.free
	p.free = nil
	p.created -= len(out)
	p.notifyLocked()
	return out
}

func (p *pool) ReleasedWithConsumer() bool {
	return true
}

func (p *pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Live: p.created, Idle: len(p.free)}
}

func (p *pool) notifyLocked() {
	close(p.released)
	p.released = make(chan struct{})
}
