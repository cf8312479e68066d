package graph

import (
	"sort"

	"github.com/paulmach/osm"

	osmparser "loop_router/pkg/osm"
)

// Build creates a CSR Graph from parsed OSM edges.
func Build(result *osmparser.ParseResult) *Graph {
	edges := result.Edges
	if len(edges) == 0 {
		return &Graph{FirstOut: []uint32{0}}
	}

	// Step 1: Collect all unique node IDs and build a compact mapping.
	nodeSet := make(map[osm.NodeID]uint32)
	var nodeIDs []osm.NodeID

	addNode := func(id osm.NodeID) uint32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := uint32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	for i := range edges {
		addNode(edges[i].FromNodeID)
		addNode(edges[i].ToNodeID)
	}

	numNodes := uint32(len(nodeIDs))

	// Step 2: Remap to compact indices and sort by source node.
	compact := make([]rawEdge, len(edges))
	for i, e := range edges {
		compact[i] = rawEdge{
			from:   nodeSet[e.FromNodeID],
			to:     nodeSet[e.ToNodeID],
			weight: e.Weight,
		}
	}

	// Step 3: Populate node attributes.
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	osmIDs := make([]int64, numNodes)
	for idx, id := range nodeIDs {
		nodeLat[idx] = result.NodeLat[id]
		nodeLon[idx] = result.NodeLon[id]
		osmIDs[idx] = int64(id)
	}

	return fromEdges(numNodes, compact, nodeLat, nodeLon, osmIDs)
}

// rawEdge is an edge between compact node indices.
type rawEdge struct {
	from, to, weight uint32
}

// fromEdges assembles CSR arrays. Edges are sorted by (from, to) so that
// neighbour iteration order is deterministic.
func fromEdges(numNodes uint32, edges []rawEdge, nodeLat, nodeLon []float64, osmIDs []int64) *Graph {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})

	numEdges := uint32(len(edges))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)

	for i, e := range edges {
		head[i] = e.to
		weight[i] = e.weight
		firstOut[e.from+1]++
	}
	// Prefix sum.
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	return &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
		NodeLat:  nodeLat,
		NodeLon:  nodeLon,
		OSMID:    osmIDs,
	}
}
