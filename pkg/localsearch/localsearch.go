// Package localsearch removes backtracking from tours: stretches where a
// runner goes down a street, turns around and comes back the same way.
package localsearch

import (
	"fmt"
	"slices"

	"loop_router/pkg/tour"
)

// Refiner rewrites one tour. Implementations keep the depot at both ends.
type Refiner interface {
	Refine(t tour.Tour) (tour.Tour, error)
}

// Strategy builds a refiner bound to one request's path source.
type Strategy func(paths tour.PathFinder) Refiner

// Strategy names accepted by ByName.
const (
	NameTopology   = "topology"
	NameDivergence = "divergence"
)

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch name {
	case NameTopology:
		return func(p tour.PathFinder) Refiner { return Topology{Paths: p} }, nil
	case NameDivergence:
		return func(p tour.PathFinder) Refiner { return Divergence{Paths: p} }, nil
	default:
		return nil, fmt.Errorf("unknown refine strategy %q", name)
	}
}

// Repeated wraps s so that its refiner runs up to times passes.
func Repeated(s Strategy, times int) Strategy {
	if times <= 1 {
		return s
	}
	return func(p tour.PathFinder) Refiner {
		return Repeat{Refiner: s(p), Times: times}
	}
}

// Expand turns a tour over candidate nodes into a street-level walk.
type Expand struct {
	Paths tour.PathFinder
}

func (e Expand) Refine(t tour.Tour) (tour.Tour, error) {
	return tour.Expand(t, e.Paths)
}

// Repeat applies Refiner up to Times passes, stopping early once a pass
// leaves the tour unchanged.
type Repeat struct {
	Refiner Refiner
	Times   int
}

func (r Repeat) Refine(t tour.Tour) (tour.Tour, error) {
	cur := t
	for range max(r.Times, 1) {
		next, err := r.Refiner.Refine(cur)
		if err != nil {
			return nil, err
		}
		if slices.Equal(next, cur) {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}
