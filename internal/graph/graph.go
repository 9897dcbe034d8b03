// Package graph is the static view of the component dependency graph, built
// from descriptors for validation, ordering and diagnostics.
package graph

import (
	"slices"
	"sort"
	"sync"
)

// Edge points from a component to one of its dependencies. Slot is the key
// of the dependency slot that produced it.
type Edge struct {
	To       string
	Slot     string
	Optional bool
}

type Node struct {
	ID    string
	Edges []Edge
	seq   uint64
}

// Dependencies returns the distinct targets of n's edges in slot order.
func (n *Node) Dependencies() []string {
	var out []string
	for _, e := range n.Edges {
		if !slices.Contains(out, e.To) {
			out = append(out, e.To)
		}
	}
	return out
}

type Graph struct {
	mu    sync.RWMutex
	seq   uint64
	nodes map[string]*Node
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds or replaces id. A replaced node keeps its position in
// insertion order.
func (g *Graph) AddNode(id string, edges []Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seq := g.seq + 1
	if existing, ok := g.nodes[id]; ok {
		seq = existing.seq
	} else {
		g.seq = seq
	}
	g.nodes[id] = &Node{
		ID:    id,
		Edges: slices.Clone(edges),
		seq:   seq,
	}
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[id]
	return exists
}

func (g *Graph) GetNode(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[id]
	if !exists {
		return nil, false
	}
	return &Node{ID: node.ID, Edges: slices.Clone(node.Edges), seq: node.seq}, true
}

// GetDependents returns the nodes with an edge to id, in insertion order.
func (g *Graph) GetDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, node := range g.orderedUnsafe() {
		if node.ID == id {
			continue
		}
		for _, e := range node.Edges {
			if e.To == id {
				dependents = append(dependents, node.ID)
				break
			}
		}
	}
	return dependents
}

func (g *Graph) orderedUnsafe() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })
	return nodes
}

// Missing returns the targets of required edges that are not nodes.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool)

	for _, node := range g.orderedUnsafe() {
		for _, e := range node.Edges {
			if e.Optional {
				continue
			}
			if _, exists := g.nodes[e.To]; !exists && !seen[e.To] {
				missing = append(missing, e.To)
				seen[e.To] = true
			}
		}
	}

	return missing
}
