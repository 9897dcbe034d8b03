// Package registry indexes component descriptors by name and by the services
// they expose.
package registry

import (
	"slices"
	"sort"
	"sync"

	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/model"
)

// Observer is notified after a descriptor has been registered, outside the
// registry lock.
type Observer func(d *model.Descriptor)

type entry struct {
	descriptor *model.Descriptor
	seq        uint64
}

type Registry struct {
	mu           sync.RWMutex
	seq          uint64
	byName       map[string]*entry
	byService    map[string][]*entry
	byDefinition map[string][]*entry

	observersMu sync.RWMutex
	observers   []Observer
}

func New() *Registry {
	return &Registry{
		byName:       make(map[string]*entry),
		byService:    make(map[string][]*entry),
		byDefinition: make(map[string][]*entry),
	}
}

func (r *Registry) Observe(fn Observer) {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Registry) Register(d *model.Descriptor) error {
	r.mu.Lock()
	if _, exists := r.byName[d.Name]; exists {
		r.mu.Unlock()
		return errdefs.DuplicateName(d.Name)
	}

	r.seq++
	e := &entry{descriptor: d, seq: r.seq}
	r.byName[d.Name] = e
	for _, svc := range d.Services {
		key := svc.Key()
		r.byService[key] = append(r.byService[key], e)
		if svc.IsOpen() {
			def := svc.Definition()
			r.byDefinition[def] = append(r.byDefinition[def], e)
		}
	}
	r.mu.Unlock()

	r.observersMu.RLock()
	observers := slices.Clone(r.observers)
	r.observersMu.RUnlock()

	for _, fn := range observers {
		fn(d)
	}
	return nil
}

func (r *Registry) Unregister(name string) (*model.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.byName[name]
	if !exists {
		return nil, false
	}
	delete(r.byName, name)

	for _, svc := range e.descriptor.Services {
		key := svc.Key()
		r.byService[key] = without(r.byService[key], e)
		if len(r.byService[key]) == 0 {
			delete(r.byService, key)
		}
		if svc.IsOpen() {
			def := svc.Definition()
			r.byDefinition[def] = without(r.byDefinition[def], e)
			if len(r.byDefinition[def]) == 0 {
				delete(r.byDefinition, def)
			}
		}
	}
	return e.descriptor, true
}

func without(entries []*entry, e *entry) []*entry {
	return slices.DeleteFunc(slices.Clone(entries), func(x *entry) bool { return x == e })
}

func (r *Registry) Lookup(name string) (*model.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.byName[name]
	if !exists {
		return nil, false
	}
	return e.descriptor, true
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byName[name]
	return exists
}

// LookupByService returns every descriptor able to serve svc, in registration
// order. For a closed generic request, open generic registrations whose
// service matches are included. The first element is the default.
func (r *Registry) LookupByService(svc model.Service) []*model.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := slices.Clone(r.byService[svc.Key()])
	if svc.IsGeneric() && !svc.IsOpen() {
		for _, e := range r.byDefinition[svc.Definition()] {
			if slices.Contains(matches, e) {
				continue
			}
			for _, open := range e.descriptor.Services {
				if _, ok := open.Match(svc, nil); ok {
					matches = append(matches, e)
					break
				}
			}
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })
	}

	out := make([]*model.Descriptor, len(matches))
	for i, e := range matches {
		out[i] = e.descriptor
	}
	return out
}

func (r *Registry) HasService(svc model.Service) bool {
	return len(r.LookupByService(svc)) > 0
}

// Names returns component names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.descriptor.Name
	}
	return names
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byName)
}
