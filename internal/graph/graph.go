package graph

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

type Edge struct {
	To       string
	Optional bool
}

type Node struct {
	ID string
	// Repairable nodes can hand out a placeholder while a cycle through
	// them is still being constructed.
	Repairable bool
	Edges      []Edge
}

type Missing struct {
	From string
	To   string
}

type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode merges edges into an existing node with the same id.
func (g *Graph) AddNode(id string, repairable bool, edges ...Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[id]
	if !exists {
		node = &Node{ID: id}
		g.nodes[id] = node
	}
	node.Repairable = node.Repairable || repairable
	for _, e := range edges {
		if !slices.ContainsFunc(node.Edges, func(x Edge) bool { return x.To == e.To }) {
			node.Edges = append(node.Edges, e)
		}
	}
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[id]
	if !exists {
		return nil
	}
	return lo.Map(node.Edges, func(e Edge, _ int) string { return e.To })
}

func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for nodeID, node := range g.nodes {
		if slices.ContainsFunc(node.Edges, func(e Edge) bool { return e.To == id }) {
			dependents = append(dependents, nodeID)
		}
	}
	slices.Sort(dependents)
	return dependents
}

// Validate lists required edges pointing at unknown nodes.
func (g *Graph) Validate() []Missing {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []Missing
	for _, id := range g.sortedIDs() {
		for _, e := range g.nodes[id].Edges {
			if _, exists := g.nodes[e.To]; !exists && !e.Optional {
				missing = append(missing, Missing{From: id, To: e.To})
			}
		}
	}
	return missing
}

func (g *Graph) sortedIDs() []string {
	ids := lo.Keys(g.nodes)
	slices.Sort(ids)
	return ids
}
