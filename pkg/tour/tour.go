// Package tour defines the closed node sequence shared by route construction,
// refinement and assembly.
package tour

import (
	"fmt"
	"slices"
)

// Tour is a closed walk over graph nodes: the first and last entries are the
// depot. A tour of length 2 ([D, D]) visits nothing.
type Tour []uint32

// New returns the single-customer tour [depot, v, depot].
func New(depot, v uint32) Tour {
	return Tour{depot, v, depot}
}

// Depot returns the start and end node.
func (t Tour) Depot() uint32 {
	return t[0]
}

// Interior returns the nodes strictly between the depot endpoints. The
// returned slice aliases t.
func (t Tour) Interior() []uint32 {
	if len(t) < 2 {
		return nil
	}
	return t[1 : len(t)-1]
}

// Contains reports whether v is an interior node of t.
func (t Tour) Contains(v uint32) bool {
	return slices.Contains(t.Interior(), v)
}

// IsExterior reports whether v sits next to the depot on t.
func (t Tour) IsExterior(v uint32) bool {
	in := t.Interior()
	return len(in) > 0 && (in[0] == v || in[len(in)-1] == v)
}

// Validate checks the closed-walk invariants.
func (t Tour) Validate() error {
	if len(t) < 2 {
		return fmt.Errorf("tour of length %d: need at least 2 nodes", len(t))
	}
	if t[0] != t[len(t)-1] {
		return fmt.Errorf("tour starts at %d but ends at %d", t[0], t[len(t)-1])
	}
	return nil
}

// Dedup collapses runs of equal consecutive nodes.
func Dedup(nodes []uint32) []uint32 {
	return slices.Compact(slices.Clone(nodes))
}

// Reversed returns a reversed copy of nodes.
func Reversed(nodes []uint32) []uint32 {
	out := slices.Clone(nodes)
	slices.Reverse(out)
	return out
}

// PathFinder yields street-level shortest paths between two nodes.
type PathFinder interface {
	ShortestPath(source, target uint32) ([]uint32, error)
}

// Expand replaces every edge of t by its shortest street path and collapses
// the consecutive duplicates produced at segment joints.
func Expand(t Tour, paths PathFinder) (Tour, error) {
	if len(t) < 2 {
		return slices.Clone(t), nil
	}
	out := Tour{t[0]}
	for i := 0; i+1 < len(t); i++ {
		p, err := paths.ShortestPath(t[i], t[i+1])
		if err != nil {
			return nil, fmt.Errorf("expand edge %d -> %d: %w", t[i], t[i+1], err)
		}
		out = append(out, p...)
	}
	out = slices.Compact(out)
	if len(out) == 1 {
		out = append(out, out[0])
	}
	return out, nil
}
