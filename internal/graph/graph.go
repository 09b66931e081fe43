package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrNodeNotFound is returned when a knowledge point id is not in the graph.
var ErrNodeNotFound = errors.New("knowledge point not found")

// Graph holds the knowledge point DAG with precomputed indices.
// A Graph is immutable once built and safe for concurrent readers.
type Graph struct {
	nodes      []KnowledgePoint
	byID       map[string]*KnowledgePoint
	roots      []KnowledgePoint
	dependents map[string][]string
	topoOrder  []KnowledgePoint
	topoIndex  map[string]int
	depths     map[string]int
}

// New validates the given knowledge points and builds the graph.
func New(nodes []KnowledgePoint) (*Graph, error) {
	if err := Validate(nodes); err != nil {
		return nil, err
	}
	return build(nodes), nil
}

// build constructs all indices including topological order (Kahn's algorithm).
// It assumes nodes already passed Validate.
func build(nodes []KnowledgePoint) *Graph {
	g := &Graph{
		nodes:      slices.Clone(nodes),
		byID:       make(map[string]*KnowledgePoint, len(nodes)),
		dependents: make(map[string][]string),
		topoIndex:  make(map[string]int, len(nodes)),
		depths:     make(map[string]int, len(nodes)),
	}

	for i := range g.nodes {
		g.nodes[i].Prerequisites = slices.Clone(g.nodes[i].Prerequisites)
		g.byID[g.nodes[i].ID] = &g.nodes[i]
	}

	// Reverse edges, kept sorted for deterministic iteration.
	for i := range g.nodes {
		for _, prereqID := range g.nodes[i].Prerequisites {
			g.dependents[prereqID] = append(g.dependents[prereqID], g.nodes[i].ID)
		}
	}
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}

	inDegree := make(map[string]int, len(g.nodes))
	for i := range g.nodes {
		inDegree[g.nodes[i].ID] = len(g.nodes[i].Prerequisites)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		kp := g.byID[id]
		g.topoIndex[id] = len(g.topoOrder)
		g.topoOrder = append(g.topoOrder, *kp)

		for _, depID := range g.dependents[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	// Longest path from any root, computed in topological order.
	for _, kp := range g.topoOrder {
		depth := 0
		for _, prereqID := range kp.Prerequisites {
			if d := g.depths[prereqID] + 1; d > depth {
				depth = d
			}
		}
		g.depths[kp.ID] = depth
	}

	for _, kp := range g.topoOrder {
		if kp.IsRoot() {
			g.roots = append(g.roots, kp)
		}
	}

	return g
}

// Node returns a knowledge point by id.
func (g *Graph) Node(id string) (KnowledgePoint, error) {
	kp, ok := g.byID[id]
	if !ok {
		return KnowledgePoint{}, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return *kp, nil
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// All returns every node in declaration order.
func (g *Graph) All() []KnowledgePoint {
	return slices.Clone(g.nodes)
}

// Roots returns the nodes without prerequisites, in topological order.
func (g *Graph) Roots() []KnowledgePoint {
	return slices.Clone(g.roots)
}

// Prerequisites returns the direct prerequisite nodes of id.
// Prerequisite ids that do not resolve are skipped.
func (g *Graph) Prerequisites(id string) []KnowledgePoint {
	kp, ok := g.byID[id]
	if !ok {
		return nil
	}
	result := make([]KnowledgePoint, 0, len(kp.Prerequisites))
	for _, prereqID := range kp.Prerequisites {
		if p, ok := g.byID[prereqID]; ok {
			result = append(result, *p)
		}
	}
	return result
}

// Dependents returns the nodes whose prerequisites contain id.
// Only direct successors are returned.
func (g *Graph) Dependents(id string) []KnowledgePoint {
	depIDs := g.dependents[id]
	result := make([]KnowledgePoint, 0, len(depIDs))
	for _, depID := range depIDs {
		if kp, ok := g.byID[depID]; ok {
			result = append(result, *kp)
		}
	}
	return result
}

// HasChildren reports whether any node depends directly on id.
func (g *Graph) HasChildren(id string) bool {
	return len(g.dependents[id]) > 0
}

// Children returns the direct dependents of parentID, or the roots when
// parentID is empty. Used by the progressive graph view.
func (g *Graph) Children(parentID string) ([]KnowledgePoint, error) {
	if parentID == "" {
		return g.Roots(), nil
	}
	if !g.Has(parentID) {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, parentID)
	}
	return g.Dependents(parentID), nil
}

// Edges returns every prerequisite edge, ordered by target topological position.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, kp := range g.topoOrder {
		for _, prereqID := range kp.Prerequisites {
			edges = append(edges, Edge{Source: prereqID, Target: kp.ID})
		}
	}
	return edges
}

// TopologicalOrder returns all nodes in a valid topological order.
// Ties are broken by id so the order is deterministic.
func (g *Graph) TopologicalOrder() []KnowledgePoint {
	return slices.Clone(g.topoOrder)
}

// TopoIndex returns the position of id in TopologicalOrder, or -1.
func (g *Graph) TopoIndex(id string) int {
	if i, ok := g.topoIndex[id]; ok {
		return i
	}
	return -1
}

// Depth returns the longest path length from any root to id.
func (g *Graph) Depth(id string) int {
	return g.depths[id]
}

// Depths returns a copy of the depth of every node.
func (g *Graph) Depths() map[string]int {
	out := make(map[string]int, len(g.depths))
	for id, d := range g.depths {
		out[id] = d
	}
	return out
}

// IsUnlocked returns true if every prerequisite of id is in the mastered set.
// A prerequisite that is not a node of the graph never counts as mastered.
func (g *Graph) IsUnlocked(id string, mastered map[string]bool) bool {
	kp, ok := g.byID[id]
	if !ok {
		return false
	}
	for _, prereqID := range kp.Prerequisites {
		if _, known := g.byID[prereqID]; !known || !mastered[prereqID] {
			return false
		}
	}
	return true
}
