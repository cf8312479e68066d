package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"loop_router/pkg/geo"
	"loop_router/pkg/graph"
)

const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any street node.
var ErrPointTooFar = errors.New("point too far from road")

// Snapper maps coordinates to their nearest graph node using an R-tree of
// node positions. Longitudes are scaled by the cosine of the graph's mean
// latitude so that planar nearest-neighbour order matches ground distance.
type Snapper struct {
	tr       rtree.RTreeG[uint32]
	g        *graph.Graph
	lngScale float64
}

// NewSnapper indexes every node of g.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g, lngScale: 1}
	if g == nil || g.NumNodes == 0 {
		return s
	}

	var sumLat float64
	for _, lat := range g.NodeLat {
		sumLat += lat
	}
	s.lngScale = math.Cos(sumLat / float64(g.NumNodes) * math.Pi / 180)

	for u := uint32(0); u < g.NumNodes; u++ {
		p := s.project(g.Coord(u))
		s.tr.Insert(p, p, u)
	}
	return s
}

func (s *Snapper) project(ll geo.LatLng) [2]float64 {
	return [2]float64{ll.Lng * s.lngScale, ll.Lat}
}

// Nearest returns the graph node closest to ll.
func (s *Snapper) Nearest(ll geo.LatLng) (uint32, error) {
	if s.g == nil || s.g.NumNodes == 0 {
		return 0, ErrGraphNotBuilt
	}

	target := s.project(ll)
	best := graph.NoNode
	s.tr.Nearby(
		rtree.BoxDist[float64, uint32](target, target, nil),
		func(_, _ [2]float64, node uint32, _ float64) bool {
			best = node
			return false
		},
	)
	if best == graph.NoNode {
		return 0, ErrPointTooFar
	}
	if geo.Distance(ll, s.g.Coord(best)) > maxSnapDistMeters {
		return 0, ErrPointTooFar
	}
	return best, nil
}

// NearestNodes snaps every coordinate, failing on the first that cannot be snapped.
func (s *Snapper) NearestNodes(lls []geo.LatLng) ([]uint32, error) {
	nodes := make([]uint32, len(lls))
	for i, ll := range lls {
		n, err := s.Nearest(ll)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}
