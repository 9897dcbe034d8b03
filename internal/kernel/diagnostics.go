package kernel

import (
	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/graph"
	"github.com/danpasecinic/keel/internal/model"
)

// SlotInfo describes a dependency slot in diagnostics.
type SlotInfo struct {
	Key       string
	Service   string
	Component string
	Optional  bool
}

// HandlerInfo is a point-in-time view of a registered component.
type HandlerInfo struct {
	Name       string
	Services   []string
	Lifestyle  string
	State      State
	Unresolved []SlotInfo

	// Generic components report how many closures they have built.
	Generic  bool
	Closures int

	// Live and Idle count the instances the lifestyle currently holds.
	Live int
	Idle int
}

func (k *Kernel) GetHandler(name string) (HandlerInfo, error) {
	h, ok := k.handler(name)
	if !ok {
		return HandlerInfo{}, errdefs.ComponentNotFound("name " + name)
	}
	return h.info(), nil
}

// Handlers describes every component in registration order.
func (k *Kernel) Handlers() []HandlerInfo {
	handlers := k.orderedHandlers()
	out := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		out[i] = h.info()
	}
	return out
}

// Graph builds the static dependency graph from the current registrations.
// A slot without a matching registration points at the name of its service.
func (k *Kernel) Graph() *graph.Graph {
	g := graph.New()
	for _, h := range k.orderedHandlers() {
		d := h.Descriptor()
		g.AddNode(d.Name, k.edges(d))
	}
	return g
}

func (k *Kernel) edges(d *model.Descriptor) []graph.Edge {
	var edges []graph.Edge
	for _, slot := range d.Implementation.Slots() {
		if _, ok := d.Parameters[slot.Key]; ok {
			continue
		}

		switch {
		case slot.Component != "":
			edges = append(edges, graph.Edge{To: slot.Component, Slot: slot.Key, Optional: slot.Optional})
		case slot.Service.IsOpen():
		case slot.Many:
			for _, target := range k.registry.LookupByService(slot.Service) {
				if target.Name != d.Name {
					edges = append(edges, graph.Edge{To: target.Name, Slot: slot.Key, Optional: true})
				}
			}
		case d.Exposes(slot.Service):
			edges = append(edges, graph.Edge{To: d.Name, Slot: slot.Key, Optional: slot.Optional})
		default:
			to := slot.Service.String()
			if targets := k.registry.LookupByService(slot.Service); len(targets) > 0 {
				to = targets[0].Name
			}
			edges = append(edges, graph.Edge{To: to, Slot: slot.Key, Optional: slot.Optional})
		}
	}
	return edges
}

func serviceNames(services []model.Service) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = s.String()
	}
	return out
}

func slotInfos(slots []model.Slot) []SlotInfo {
	if len(slots) == 0 {
		return nil
	}
	out := make([]SlotInfo, len(slots))
	for i, s := range slots {
		out[i] = SlotInfo{
			Key:       s.Key,
			Service:   s.Service.String(),
			Component: s.Component,
			Optional:  s.Optional,
		}
	}
	return out
}

// Instance is a resolved root the kernel still tracks.
type Instance struct {
	Component string
	Value     any
}

// Instances lists the tracked roots, oldest first.
func (k *Kernel) Instances() []Instance {
	roots := k.tracker.Roots()
	out := make([]Instance, 0, len(roots))
	for _, b := range roots {
		if b.Owner() == nil {
			continue
		}
		out = append(out, Instance{Component: b.Owner().Name(), Value: b.Instance()})
	}
	return out
}
