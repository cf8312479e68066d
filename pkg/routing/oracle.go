package routing

import (
	"errors"
	"fmt"
	"math"

	"loop_router/pkg/graph"
)

var (
	// ErrNodeNotFound is returned when a queried node is not a vertex of the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrGraphNotBuilt is returned when the oracle is used without a graph.
	ErrGraphNotBuilt = errors.New("graph has not been built")
	// ErrNoRoute is returned when the target is unreachable from the source.
	ErrNoRoute = errors.New("no route found")
)

const unreached = math.MaxUint32

// spTree is the full single-source result for one source: distances in
// millimeters and predecessors toward the source.
type spTree struct {
	dist []uint32
	pred []uint32
}

// Oracle answers shortest-path and distance queries over an immutable graph.
// The first query for a source runs a single-source Dijkstra whose full
// result is cached for the lifetime of the oracle; later queries from the
// same source are lookups. An Oracle is not safe for concurrent use.
type Oracle struct {
	g     *graph.Graph
	trees map[uint32]*spTree
	pq    MinHeap
}

// NewOracle creates an oracle over g. A nil g yields an oracle whose every
// query fails with ErrGraphNotBuilt.
func NewOracle(g *graph.Graph) *Oracle {
	return &Oracle{
		g:     g,
		trees: make(map[uint32]*spTree),
	}
}

// Graph returns the graph the oracle answers for.
func (o *Oracle) Graph() *graph.Graph {
	return o.g
}

// Len returns the number of sources with a cached shortest-path tree.
func (o *Oracle) Len() int {
	return len(o.trees)
}

// Distance returns the shortest-path length from source to target in meters.
func (o *Oracle) Distance(source, target uint32) (float64, error) {
	t, err := o.lookup(source, target)
	if err != nil {
		return 0, err
	}
	return float64(t.dist[target]) / 1000, nil
}

// ShortestPath returns the node sequence of the shortest path from source to
// target, both included. ShortestPath(s, s) is [s].
func (o *Oracle) ShortestPath(source, target uint32) ([]uint32, error) {
	t, err := o.lookup(source, target)
	if err != nil {
		return nil, err
	}

	var path []uint32
	for node := target; node != graph.NoNode; node = t.pred[node] {
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// PathLength returns the summed shortest-path distance along nodes in meters.
func (o *Oracle) PathLength(nodes []uint32) (float64, error) {
	var total float64
	for i := 0; i+1 < len(nodes); i++ {
		d, err := o.Distance(nodes[i], nodes[i+1])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

func (o *Oracle) lookup(source, target uint32) (*spTree, error) {
	if o.g == nil {
		return nil, ErrGraphNotBuilt
	}
	if !o.g.HasNode(source) {
		return nil, fmt.Errorf("source %d: %w", source, ErrNodeNotFound)
	}
	if !o.g.HasNode(target) {
		return nil, fmt.Errorf("target %d: %w", target, ErrNodeNotFound)
	}

	t, ok := o.trees[source]
	if !ok {
		t = o.dijkstra(source)
		o.trees[source] = t
	}
	if t.dist[target] == unreached {
		return nil, fmt.Errorf("%d -> %d: %w", source, target, ErrNoRoute)
	}
	return t, nil
}

// dijkstra computes the full shortest-path tree rooted at source.
func (o *Oracle) dijkstra(source uint32) *spTree {
	g := o.g
	dist := make([]uint32, g.NumNodes)
	pred := make([]uint32, g.NumNodes)
	for i := range dist {
		dist[i] = unreached
		pred[i] = graph.NoNode
	}

	o.pq.Reset()
	dist[source] = 0
	o.pq.Push(source, 0)

	for o.pq.Len() > 0 {
		item := o.pq.Pop()
		u, d := item.Node, item.Dist
		if d > dist[u] {
			continue // stale entry
		}

		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			newDist := d + g.Weight[e]
			if newDist < dist[v] {
				dist[v] = newDist
				pred[v] = u
				o.pq.Push(v, newDist)
			}
		}
	}

	return &spTree{dist: dist, pred: pred}
}
