package lifestyle

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/keel/internal/burden"
)

type threadScopeKey struct{}

// ThreadScope is an explicit logical thread. Goroutines sharing a context that
// carries the same scope share per-thread instances.
type ThreadScope struct {
	id uint64
}

var threadScopeSeq atomic.Uint64

func WithThreadScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, threadScopeKey{}, &ThreadScope{id: threadScopeSeq.Add(1)})
}

func (s *ThreadScope) ID() uint64 {
	return s.id
}

// threadKey identifies the logical thread of ctx: its ThreadScope when one is
// attached, otherwise the calling goroutine.
func threadKey(ctx context.Context) any {
	if ctx != nil {
		if scope, ok := ctx.Value(threadScopeKey{}).(*ThreadScope); ok {
			return scope
		}
	}
	return goid()
}

// goid returns the id of the calling goroutine.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(idField, 10, 64)
	return id
}

// threadSlot holds the instance of one logical thread. Its mutex serialises
// activation for that thread only.
type threadSlot struct {
	mu      sync.Mutex
	current atomic.Pointer[burden.Burden]
}

type threadLock struct {
	manager *perThread
	key     any
}

type perThread struct {
	mu    sync.Mutex
	slots map[any]*threadSlot
}

func newPerThread() *perThread {
	return &perThread{
		slots: make(map[any]*threadSlot),
	}
}

func (p *perThread) slot(key any) *threadSlot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[key]
	if !ok {
		s = &threadSlot{}
		p.slots[key] = s
	}
	return s
}

func (p *perThread) Resolve(ctx context.Context, activate Activate) (*burden.Burden, error) {
	s := p.slot(threadKey(ctx))
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

func (p *perThread) LockKey(ctx context.Context) any {
	return threadLock{manager: p, key: threadKey(ctx)}
}

func (p *perThread) Release(*burden.Burden) bool {
	return false
}

func (p *perThread) Dispose() []*burden.Burden {
	p.mu.Lock()
	slots := p.slots
	p.slots = make(map[any]*threadSlot)
	p.mu.Unlock()

	var out []*burden.Burden
	for _, s := range slots {
		if b := s.current.Swap(nil); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (p *perThread) ReleasedWithConsumer() bool {
	return false
}

func (p *perThread) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := 0
	for _, s := range p.slots {
		if s.current.Load() != nil {
			live++
		}
	}
	return Stats{Live: live}
}
