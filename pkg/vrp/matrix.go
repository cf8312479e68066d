// Package vrp constructs closed tours by solving a capacitated vehicle
// routing problem over a dense distance matrix. Index 0 of every matrix is
// the depot.
package vrp

import (
	"errors"
	"fmt"

	"loop_router/pkg/routing"
)

// ErrInvalidDistanceMatrix is returned for an empty or non-square matrix.
var ErrInvalidDistanceMatrix = errors.New("invalid distance matrix")

// Distancer reports shortest-path distances in meters.
type Distancer interface {
	Distance(source, target uint32) (float64, error)
}

// DistanceMatrix returns the pairwise distances between nodes. Pairs the
// oracle cannot answer because a node is missing or unreachable get fallback.
func DistanceMatrix(o Distancer, nodes []uint32, fallback float64) ([][]float64, error) {
	if len(nodes) == 0 {
		return nil, ErrInvalidDistanceMatrix
	}
	m := make([][]float64, len(nodes))
	for i, s := range nodes {
		m[i] = make([]float64, len(nodes))
		for j, t := range nodes {
			d, err := o.Distance(s, t)
			switch {
			case errors.Is(err, routing.ErrNodeNotFound), errors.Is(err, routing.ErrNoRoute):
				d = fallback
			case err != nil:
				return nil, fmt.Errorf("distance %d -> %d: %w", s, t, err)
			}
			m[i][j] = d
		}
	}
	return m, nil
}

func validate(m [][]float64) error {
	if len(m) == 0 {
		return ErrInvalidDistanceMatrix
	}
	for i, row := range m {
		if len(row) != len(m) {
			return fmt.Errorf("row %d has %d entries, want %d: %w", i, len(row), len(m), ErrInvalidDistanceMatrix)
		}
	}
	return nil
}
