package localsearch

import (
	"fmt"
	"slices"

	"loop_router/pkg/tour"
)

// Divergence moves every turning point of a tour to where the street path
// into it and the street path out of it part ways. Where the outbound path
// retraces the inbound one, the retraced stretch is dropped.
type Divergence struct {
	Paths tour.PathFinder
}

func (d Divergence) Refine(t tour.Tour) (tour.Tour, error) {
	if len(t) < 3 {
		return slices.Clone(t), nil
	}

	segments := make([][]uint32, len(t)-1)
	for i := range segments {
		p, err := d.Paths.ShortestPath(t[i], t[i+1])
		if err != nil {
			return nil, fmt.Errorf("segment %d -> %d: %w", t[i], t[i+1], err)
		}
		segments[i] = p
	}

	out := tour.Tour{t[0]}
	for i := 0; i+1 < len(segments); i++ {
		out = append(out, joint(segments[i], segments[i+1]))
	}
	out = append(out, t[0])

	out = slices.Compact(out)
	if len(out) == 1 {
		out = append(out, t[0])
	}
	return out, nil
}

// joint walks in backward and out forward from their shared node and returns
// the last node they have in common. If one path is nested in the other the
// shared node itself is the joint.
func joint(in, out []uint32) uint32 {
	m := min(len(in), len(out))
	j := 0
	for j < m && in[len(in)-1-j] == out[j] {
		j++
	}
	if j == 0 || j == m {
		j = 1
	}
	return out[j-1]
}
