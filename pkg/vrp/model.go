package vrp

import (
	"context"
	"log/slog"
	"time"

	"loop_router/pkg/routing"
	"loop_router/pkg/tour"
)

// Model adapts a Solver to the route construction stage: it builds the
// depot-first distance matrix from the oracle, solves within TimeLimit and
// maps matrix indices back to graph nodes.
type Model struct {
	Solver    Solver
	TimeLimit time.Duration
	Logger    *slog.Logger
}

// Construct solves for n tours of at most budget meters over candidates.
// Tours that serve no candidate are left out.
func (m Model) Construct(ctx context.Context, n int, depot uint32, budget float64, oracle *routing.Oracle, candidates []uint32) ([]tour.Tour, error) {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	solver := m.Solver
	if solver == nil {
		solver = CheapestArc{}
	}

	nodes := []uint32{depot}
	seen := map[uint32]bool{depot: true}
	for _, v := range candidates {
		if !seen[v] {
			seen[v] = true
			nodes = append(nodes, v)
		}
	}

	matrix, err := DistanceMatrix(oracle, nodes, budget)
	if err != nil {
		return nil, err
	}

	if m.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.TimeLimit)
		defer cancel()
	}
	sol, err := solver.Solve(ctx, n, matrix, budget)
	if err != nil {
		return nil, err
	}
	logger.Debug("vrp solved",
		"nodes", len(nodes),
		"dropped", len(sol.Dropped),
		"cost", sol.Cost,
		"penalty", sol.Penalty,
	)

	var tours []tour.Tour
	for _, r := range sol.Routes {
		if len(r) <= 2 {
			continue
		}
		t := make(tour.Tour, len(r))
		for i, idx := range r {
			t[i] = nodes[idx]
		}
		tours = append(tours, t)
	}
	return tours, nil
}
