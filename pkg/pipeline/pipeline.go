// Package pipeline wires the stages that turn a start point and a target
// distance into closed running tours: graph extraction, candidate sampling,
// route construction, refinement and assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loop_router/pkg/geo"
	"loop_router/pkg/graph"
	"loop_router/pkg/localsearch"
	"loop_router/pkg/routing"
	"loop_router/pkg/tour"
)

// GraphProvider supplies the street graph around a point.
type GraphProvider interface {
	Graph(ctx context.Context, center geo.LatLng, radius float64) (*graph.Graph, error)
}

// Downsampler reduces a graph to representative coordinates.
type Downsampler interface {
	Sample(ctx context.Context, g *graph.Graph) ([]geo.LatLng, error)
}

// Constructor builds up to n tours from depot over candidates, each at most
// budget meters long.
type Constructor interface {
	Construct(ctx context.Context, n int, depot uint32, budget float64, oracle *routing.Oracle, candidates []uint32) ([]tour.Tour, error)
}

// Snapper maps a coordinate to its nearest graph node.
type Snapper interface {
	Nearest(ll geo.LatLng) (uint32, error)
}

// Request is one planning query.
type Request struct {
	N        int
	Start    geo.LatLng
	Distance float64 // meters
}

// Result holds the tours of one request together with the graph and oracle
// they were planned on, for assembly.
type Result struct {
	Request Request
	Graph   *graph.Graph
	Oracle  *routing.Oracle
	Depot   uint32
	Tours   []tour.Tour
}

// Pipeline runs the planning stages in order.
type Pipeline struct {
	Graphs      GraphProvider
	Sampler     Downsampler
	Constructor Constructor
	Refiners    []localsearch.Strategy
	Logger      *slog.Logger
}

// Run plans req. The street graph is cut to a disc of radius Distance/2
// around the start.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	g, err := p.Graphs.Graph(ctx, req.Start, req.Distance/2)
	if err != nil {
		return nil, fmt.Errorf("street graph: %w", err)
	}
	logger.Debug("graph extracted", "nodes", g.NumNodes, "edges", g.NumEdges)

	samples, err := p.Sampler.Sample(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("downsample: %w", err)
	}
	candidates, err := CandidateNodes(routing.NewSnapper(g), req.Start, samples)
	if err != nil {
		return nil, err
	}
	depot := candidates[0]
	logger.Debug("candidates selected", "samples", len(samples), "candidates", len(candidates))

	oracle := routing.NewOracle(g)
	tours, err := constructAndRefine(ctx, req.N, depot, req.Distance, oracle, p.Constructor, candidates, p.Refiners)
	if err != nil {
		return nil, err
	}

	logger.Info("tours planned",
		"n", req.N,
		"distance", req.Distance,
		"tours", len(tours),
		"cached_sources", oracle.Len(),
		"elapsed", time.Since(start),
	)
	return &Result{
		Request: req,
		Graph:   g,
		Oracle:  oracle,
		Depot:   depot,
		Tours:   tours,
	}, nil
}

// CandidateNodes snaps the start and every sample to graph nodes. The start
// node comes first; later duplicates are dropped. Samples too far from any
// street are skipped, while an unsnappable start is an error.
func CandidateNodes(s Snapper, start geo.LatLng, samples []geo.LatLng) ([]uint32, error) {
	depot, err := s.Nearest(start)
	if err != nil {
		return nil, fmt.Errorf("snap start: %w", err)
	}
	nodes := []uint32{depot}
	seen := map[uint32]bool{depot: true}
	for _, ll := range samples {
		v, err := s.Nearest(ll)
		if errors.Is(err, routing.ErrPointTooFar) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("snap sample: %w", err)
		}
		if !seen[v] {
			seen[v] = true
			nodes = append(nodes, v)
		}
	}
	return nodes, nil
}

// ConstructAndRefine builds up to n tours from depot within budget meters on
// g, applies each refinement strategy in order and expands the results to
// street level.
func ConstructAndRefine(ctx context.Context, n int, depot uint32, budget float64, g *graph.Graph, c Constructor, candidates []uint32, refiners []localsearch.Strategy) ([]tour.Tour, error) {
	return constructAndRefine(ctx, n, depot, budget, routing.NewOracle(g), c, candidates, refiners)
}

func constructAndRefine(ctx context.Context, n int, depot uint32, budget float64, oracle *routing.Oracle, c Constructor, candidates []uint32, strategies []localsearch.Strategy) ([]tour.Tour, error) {
	tours, err := c.Construct(ctx, n, depot, budget, oracle, candidates)
	if err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}

	refiners := make([]localsearch.Refiner, 0, len(strategies)+1)
	for _, s := range strategies {
		refiners = append(refiners, s(oracle))
	}
	refiners = append(refiners, localsearch.Expand{Paths: oracle})

	out := make([]tour.Tour, 0, len(tours))
	for _, t := range tours {
		for _, r := range refiners {
			if t, err = r.Refine(t); err != nil {
				return nil, fmt.Errorf("refine: %w", err)
			}
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("refined tour: %w", err)
		}
		if t.Depot() != depot {
			return nil, fmt.Errorf("refined tour starts at %d, want depot %d", t.Depot(), depot)
		}
		out = append(out, t)
	}
	return out, nil
}
