package graph

import "errors"

var ErrCycleDetected = errors.New("cycle detected in graph")

// TopologicalSort orders nodes dependencies first. Ties are broken by
// insertion order, so the result is deterministic.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ordered := g.orderedUnsafe()
	dependents := make(map[string][]string, len(ordered))
	inDegree := make(map[string]int, len(ordered))

	for _, node := range ordered {
		inDegree[node.ID] += 0
		for _, dep := range node.Dependencies() {
			if _, exists := g.nodes[dep]; exists {
				dependents[dep] = append(dependents[dep], node.ID)
				inDegree[node.ID]++
			}
		}
	}

	var queue []string
	for _, node := range ordered {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	sorted := make([]string, 0, len(ordered))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) != len(ordered) {
		return nil, ErrCycleDetected
	}

	return sorted, nil
}
