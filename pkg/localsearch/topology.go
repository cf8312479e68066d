package localsearch

import (
	"slices"

	"loop_router/pkg/tour"
)

// Topology removes dead ends using only the shape of the tour. The tour's
// consecutive nodes form an undirected graph; every leaf other than the start
// hangs off a backtrack, which is cut back to the nearest branch node.
// One pass removes one layer of nesting.
//
// With Paths set the tour is first expanded to street level; otherwise it is
// taken as given.
type Topology struct {
	Paths tour.PathFinder
}

func (tp Topology) Refine(t tour.Tour) (tour.Tour, error) {
	if len(t) < 2 {
		return slices.Clone(t), nil
	}
	if tp.Paths != nil {
		var err error
		if t, err = tour.Expand(t, tp.Paths); err != nil {
			return nil, err
		}
	}
	start := t[0]
	g := newTourGraph(t)

	var leaves, branches []uint32
	for _, v := range g.order {
		switch d := g.degree(v); {
		case d == 1 && v != start:
			leaves = append(leaves, v)
		case d > 2:
			branches = append(branches, v)
		}
	}
	if len(branches) == 0 {
		return slices.Clone(t), nil
	}

	for _, leaf := range leaves {
		if !g.has(leaf) {
			continue
		}
		path := g.pathToNearest(leaf, branches)
		if path == nil {
			continue
		}
		for _, v := range path[:len(path)-1] {
			if v != start {
				g.remove(v)
			}
		}
	}

	out := tour.Tour{start}
	for _, v := range t[1:] {
		if g.has(v) && g.degree(v) > 0 && v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	if out[len(out)-1] != start || len(out) == 1 {
		out = append(out, start)
	}
	return out, nil
}

// tourGraph is the simple undirected graph of a tour's consecutive nodes.
type tourGraph struct {
	order []uint32 // nodes by first appearance
	adj   map[uint32][]uint32
	loops map[uint32]bool
}

func newTourGraph(t tour.Tour) *tourGraph {
	g := &tourGraph{
		adj:   make(map[uint32][]uint32),
		loops: make(map[uint32]bool),
	}
	for _, v := range t {
		if _, ok := g.adj[v]; !ok {
			g.adj[v] = nil
			g.order = append(g.order, v)
		}
	}
	for i := 0; i+1 < len(t); i++ {
		a, b := t[i], t[i+1]
		if a == b {
			g.loops[a] = true
			continue
		}
		if !slices.Contains(g.adj[a], b) {
			g.adj[a] = append(g.adj[a], b)
			g.adj[b] = append(g.adj[b], a)
		}
	}
	return g
}

func (g *tourGraph) has(v uint32) bool {
	_, ok := g.adj[v]
	return ok
}

// degree counts a self-loop twice.
func (g *tourGraph) degree(v uint32) int {
	d := len(g.adj[v])
	if g.loops[v] {
		d += 2
	}
	return d
}

func (g *tourGraph) remove(v uint32) {
	for _, w := range g.adj[v] {
		g.adj[w] = slices.DeleteFunc(g.adj[w], func(x uint32) bool { return x == v })
	}
	delete(g.adj, v)
	delete(g.loops, v)
}

// pathToNearest runs a breadth-first search from src and returns the path to
// the closest present target, src first. It returns nil if none is reachable.
func (g *tourGraph) pathToNearest(src uint32, targets []uint32) []uint32 {
	prev := map[uint32]uint32{src: src}
	queue := []uint32{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if v != src && slices.Contains(targets, v) {
			var path []uint32
			for ; v != src; v = prev[v] {
				path = append(path, v)
			}
			path = append(path, src)
			slices.Reverse(path)
			return path
		}
		for _, w := range g.adj[v] {
			if _, seen := prev[w]; !seen {
				prev[w] = v
				queue = append(queue, w)
			}
		}
	}
	return nil
}
