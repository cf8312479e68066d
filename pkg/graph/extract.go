package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"loop_router/pkg/geo"
)

// ErrEmptyGraph is returned when no street nodes lie within the requested area.
var ErrEmptyGraph = errors.New("no street nodes in requested area")

// ExtractRadius returns the subgraph of g made of the nodes within radius
// meters of center, reduced to its largest strongly connected component so
// that every node can reach every other one, one-way streets included.
func ExtractRadius(g *Graph, center geo.LatLng, radius float64) (*Graph, error) {
	if g == nil || g.NumNodes == 0 {
		return nil, ErrEmptyGraph
	}

	bound := geo.BoundAround(center, radius)
	inside := roaring.New()
	for u := uint32(0); u < g.NumNodes; u++ {
		p := g.Coord(u)
		if !bound.Contains(p.Point()) {
			continue
		}
		if geo.WithinRadius(center, p, radius) {
			inside.Add(u)
		}
	}
	if inside.IsEmpty() {
		return nil, fmt.Errorf("radius %.0fm around (%f, %f): %w", radius, center.Lat, center.Lng, ErrEmptyGraph)
	}

	sub := Induced(g, inside.ToArray())
	sub = Induced(sub, LargestStrongComponent(sub))
	if sub.NumEdges == 0 {
		return nil, fmt.Errorf("radius %.0fm around (%f, %f) has no streets: %w", radius, center.Lat, center.Lng, ErrEmptyGraph)
	}
	return sub, nil
}

// RegionProvider serves per-request street graphs cut out of a preprocessed
// region graph. The region graph is shared read-only; every call returns a
// freshly built graph owned by the caller.
type RegionProvider struct {
	region *Graph
}

// NewRegionProvider wraps a region graph.
func NewRegionProvider(region *Graph) *RegionProvider {
	return &RegionProvider{region: region}
}

// Graph extracts the street graph within radius meters of center.
func (p *RegionProvider) Graph(ctx context.Context, center geo.LatLng, radius float64) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ExtractRadius(p.region, center, radius)
}
