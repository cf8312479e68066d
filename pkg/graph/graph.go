package graph

import "loop_router/pkg/geo"

// NoNode is the sentinel for "no node".
const NoNode = ^uint32(0)

// Graph represents an immutable directed street graph in CSR (Compressed
// Sparse Row) format. Nodes are compact uint32 indices; OSMID maps them back
// to the source map data.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	FirstOut []uint32  // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32  // len: NumEdges; target node for each edge
	Weight   []uint32  // len: NumEdges; distance in millimeters
	NodeLat  []float64 // len: NumNodes
	NodeLon  []float64 // len: NumNodes
	OSMID    []int64   // len: NumNodes; original OSM node id
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// HasNode reports whether u is a vertex of the graph.
func (g *Graph) HasNode(u uint32) bool {
	return u < g.NumNodes
}

// Coord returns the coordinate of node u.
func (g *Graph) Coord(u uint32) geo.LatLng {
	return geo.LatLng{Lat: g.NodeLat[u], Lng: g.NodeLon[u]}
}
