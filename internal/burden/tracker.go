package burden

import (
	"slices"
	"sort"
	"sync"

	"github.com/danpasecinic/keel/internal/reflect"
)

// Tracker is the kernel-wide reverse index from a resolved root instance to
// the burden that created it. Only instances with identity can be looked up.
// Owned roots without identity that carry dependencies are kept aside, so
// draining still releases what they caused to exist.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	roots   map[any]trackedRoot
	orphans []trackedRoot
}

type trackedRoot struct {
	burden *Burden
	seq    uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		roots: make(map[any]trackedRoot),
	}
}

// Track indexes b by its instance. It reports false when the instance has no
// identity; such roots are handed out untracked.
func (t *Tracker) Track(b *Burden) bool {
	if b == nil {
		return false
	}
	if !reflect.HasIdentity(b.instance) {
		if b.owned && len(b.Children()) > 0 {
			t.mu.Lock()
			kept := slices.ContainsFunc(
				t.orphans, func(root trackedRoot) bool {
					return root.burden == b
				},
			)
			if !kept {
				t.seq++
				t.orphans = append(t.orphans, trackedRoot{burden: b, seq: t.seq})
			}
			t.mu.Unlock()
		}
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.roots[b.instance]; ok && existing.burden == b {
		return true
	}
	t.seq++
	t.roots[b.instance] = trackedRoot{burden: b, seq: t.seq}
	return true
}

// Remove forgets b whether or not its instance has identity.
func (t *Tracker) Remove(b *Burden) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reflect.HasIdentity(b.instance) {
		if root, ok := t.roots[b.instance]; ok && root.burden == b {
			delete(t.roots, b.instance)
		}
		return
	}
	t.orphans = slices.DeleteFunc(
		t.orphans, func(root trackedRoot) bool {
			return root.burden == b
		},
	)
}

func (t *Tracker) Lookup(instance any) (*Burden, bool) {
	if !reflect.HasIdentity(instance) {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	root, ok := t.roots[instance]
	return root.burden, ok
}

func (t *Tracker) Untrack(instance any) (*Burden, bool) {
	if !reflect.HasIdentity(instance) {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	root, ok := t.roots[instance]
	if ok {
		delete(t.roots, instance)
	}
	return root.burden, ok
}

// Prune drops the roots of owner that have already been decommissioned.
func (t *Tracker) Prune(owner Owner) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := func(root trackedRoot) bool {
		return root.burden.owner == owner && root.burden.Released()
	}
	for instance, root := range t.roots {
		if pruned(root) {
			delete(t.roots, instance)
		}
	}
	t.orphans = slices.DeleteFunc(t.orphans, pruned)
}

// Drain removes every tracked root and returns them newest first.
func (t *Tracker) Drain() []*Burden {
	t.mu.Lock()
	roots := t.snapshotLocked()
	t.roots = make(map[any]trackedRoot)
	t.orphans = nil
	t.mu.Unlock()

	return sortRoots(roots, true)
}

// Roots returns the tracked roots oldest first without removing them.
func (t *Tracker) Roots() []*Burden {
	t.mu.Lock()
	roots := t.snapshotLocked()
	t.mu.Unlock()

	return sortRoots(roots, false)
}

func (t *Tracker) snapshotLocked() []trackedRoot {
	roots := make([]trackedRoot, 0, len(t.roots)+len(t.orphans))
	roots = append(roots, t.orphans...)
	for _, root := range t.roots {
		roots = append(roots, root)
	}
	return roots
}

func sortRoots(roots []trackedRoot, newestFirst bool) []*Burden {
	sort.Slice(roots, func(i, j int) bool {
		if newestFirst {
			return roots[i].seq > roots[j].seq
		}
		return roots[i].seq < roots[j].seq
	})

	out := make([]*Burden, len(roots))
	for i, root := range roots {
		out[i] = root.burden
	}
	return out
}

// Len counts the roots that can be looked up.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.roots)
}
