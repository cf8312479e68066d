// Package savings builds closed tours around a depot with the Clarke-Wright
// savings heuristic: every candidate starts on its own [depot, v, depot] tour
// and tours are merged greedily in order of the distance the merge saves,
// subject to a node cap and a total-length budget.
package savings

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"loop_router/pkg/routing"
	"loop_router/pkg/tour"
)

// ErrAdjacencyViolation is returned when an operation requires two nodes to
// be neighbours on a route and they are not.
var ErrAdjacencyViolation = errors.New("nodes are not adjacent on route")

// Distancer reports shortest-path distances in meters.
type Distancer interface {
	Distance(source, target uint32) (float64, error)
}

// RouteSet is the working set of tours during one solve.
type RouteSet []tour.Tour

// find returns the index of the route holding v as an interior node, or -1.
func (rs RouteSet) find(v uint32) int {
	for i, r := range rs {
		if r.Contains(v) {
			return i
		}
	}
	return -1
}

// Saving is the distance saved by serving A and B on one tour instead of two.
type Saving struct {
	A, B  uint32
	Value float64
}

// Savings computes d(depot,a) + d(b,depot) - d(a,b) for every unordered pair
// of non-depot candidates and returns them by descending value. Equal values
// keep pair generation order.
func Savings(o Distancer, depot uint32, candidates []uint32) ([]Saving, error) {
	nodes := customers(depot, candidates)

	var out []Saving
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			da, err := o.Distance(depot, a)
			if err != nil {
				return nil, err
			}
			db, err := o.Distance(b, depot)
			if err != nil {
				return nil, err
			}
			dab, err := o.Distance(a, b)
			if err != nil {
				return nil, err
			}
			out = append(out, Saving{A: a, B: b, Value: da + db - dab})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

// customers drops the depot and repeated entries, keeping first occurrences.
func customers(depot uint32, candidates []uint32) []uint32 {
	seen := make(map[uint32]bool, len(candidates))
	nodes := make([]uint32, 0, len(candidates))
	for _, v := range candidates {
		if v == depot || seen[v] {
			continue
		}
		seen[v] = true
		nodes = append(nodes, v)
	}
	return nodes
}

// RotateInteriorRoute returns the interior of route as a cycle starting at
// pivot. With a nil hint the walk follows route order; otherwise it heads
// toward hint, which must sit right next to pivot in the route. The depot
// separates the first and last interior nodes, so they are not adjacent.
func RotateInteriorRoute(route tour.Tour, pivot uint32, hint *uint32) ([]uint32, error) {
	in := route.Interior()
	idx := slices.Index(in, pivot)
	if idx < 0 {
		return nil, fmt.Errorf("pivot %d: %w", pivot, routing.ErrNodeNotFound)
	}
	n := len(in)

	step := 1
	if hint != nil {
		switch {
		case idx+1 < n && in[idx+1] == *hint:
		case idx > 0 && in[idx-1] == *hint:
			step = -1
		default:
			return nil, fmt.Errorf("pivot %d, hint %d: %w", pivot, *hint, ErrAdjacencyViolation)
		}
	}

	out := make([]uint32, n)
	for k := range n {
		out[k] = in[((idx+step*k)%n+n)%n]
	}
	return out, nil
}

// SplitRoute cuts route between the adjacent nodes a and b (either order).
// The halves keep route order and left followed by right is the route.
func SplitRoute(route tour.Tour, a, b uint32) (left, right tour.Tour, err error) {
	for i := 0; i+1 < len(route); i++ {
		x, y := route[i], route[i+1]
		if (x == a && y == b) || (x == b && y == a) {
			return slices.Clone(route[:i+1]), slices.Clone(route[i+1:]), nil
		}
	}
	return nil, nil, fmt.Errorf("split %d-%d: %w", a, b, ErrAdjacencyViolation)
}

// routeNeighbours returns the nodes before and after the interior node v on
// route.
func routeNeighbours(route tour.Tour, v uint32) [2]uint32 {
	i := slices.Index(route.Interior(), v) + 1
	return [2]uint32{route[i-1], route[i+1]}
}
