package graph

import (
	"slices"

	"github.com/samber/lo"
)

type cycleDetector struct {
	graph   *Graph
	index   int
	stack   []string
	onStack map[string]bool
	indices map[string]int
	lowlink map[string]int
	sccs    [][]string
}

// DetectCycles returns every strongly connected component that forms a
// cycle, members sorted by id.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.detectCycles()
}

func (g *Graph) detectCycles() [][]string {
	d := &cycleDetector{
		graph:   g,
		onStack: make(map[string]bool),
		indices: make(map[string]int),
		lowlink: make(map[string]int),
	}

	for _, id := range g.sortedIDs() {
		if _, visited := d.indices[id]; !visited {
			d.strongConnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range d.sccs {
		if len(scc) == 1 && !g.selfLoop(scc[0]) {
			continue
		}
		slices.Sort(scc)
		cycles = append(cycles, scc)
	}
	return cycles
}

func (g *Graph) selfLoop(id string) bool {
	return slices.ContainsFunc(g.nodes[id].Edges, func(e Edge) bool { return e.To == id })
}

func (d *cycleDetector) strongConnect(id string) {
	d.indices[id] = d.index
	d.lowlink[id] = d.index
	d.index++
	d.stack = append(d.stack, id)
	d.onStack[id] = true

	for _, e := range d.graph.nodes[id].Edges {
		if _, exists := d.graph.nodes[e.To]; !exists {
			continue
		}

		if _, visited := d.indices[e.To]; !visited {
			d.strongConnect(e.To)
			d.lowlink[id] = min(d.lowlink[id], d.lowlink[e.To])
		} else if d.onStack[e.To] {
			d.lowlink[id] = min(d.lowlink[id], d.indices[e.To])
		}
	}

	if d.lowlink[id] == d.indices[id] {
		var scc []string
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == id {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}

// Unrepairable returns the cycles in which no member can be handed out
// as a placeholder, so resolving any of them always fails.
func (g *Graph) Unrepairable() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return lo.Filter(g.detectCycles(), func(scc []string, _ int) bool {
		return !lo.SomeBy(scc, func(id string) bool { return g.nodes[id].Repairable })
	})
}

// FindCyclePath returns a path that starts and ends at the first node
// revisited from start, or nil.
func (g *Graph) FindCyclePath(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	inPath := make(map[string]bool)
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		if inPath[id] {
			idx := slices.Index(path, id)
			return append(slices.Clone(path[idx:]), id)
		}
		if visited[id] {
			return nil
		}

		visited[id] = true
		path = append(path, id)
		inPath[id] = true

		for _, e := range g.nodes[id].Edges {
			if _, exists := g.nodes[e.To]; !exists {
				continue
			}
			if cycle := dfs(e.To); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		inPath[id] = false
		return nil
	}

	if _, exists := g.nodes[start]; !exists {
		return nil
	}
	return dfs(start)
}
