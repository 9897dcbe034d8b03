package kernel

import "sync"

type activationHolder struct {
	resolution string
	name       string
}

// activations is the waits-for graph of exclusive activations. A resolution
// holds a lock key while its activation runs and waits on at most one key at
// a time, so a loop through the graph is a deadlock between resolutions.
type activations struct {
	mu      sync.Mutex
	holders map[any]activationHolder
	waiting map[string]any
}

func newActivations() *activations {
	return &activations{
		holders: make(map[any]activationHolder),
		waiting: make(map[string]any),
	}
}

// wait records that resolution is about to block on key. When that would
// close a loop it returns the components along the loop, starting with
// chain, and records nothing.
func (a *activations) wait(resolution string, key any, chain []string) ([]string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]bool)
	h, ok := a.holders[key]
	for ok && !seen[h.resolution] {
		if h.resolution == resolution {
			return chain, true
		}
		seen[h.resolution] = true

		next, blocked := a.waiting[h.resolution]
		if !blocked {
			break
		}
		if h, ok = a.holders[next]; ok {
			chain = append(chain, h.name)
		}
	}

	a.waiting[resolution] = key
	return nil, false
}

func (a *activations) acquired(resolution string, key any, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.waiting, resolution)
	a.holders[key] = activationHolder{resolution: resolution, name: name}
}

func (a *activations) released(key any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.holders, key)
}

func (a *activations) leave(resolution string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.waiting, resolution)
}
