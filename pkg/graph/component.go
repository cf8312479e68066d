package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node indices belonging to the largest
// weakly connected component (treating the directed graph as undirected),
// in ascending order.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}

	// Ties go to the component containing the lowest node index.
	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// LargestStrongComponent returns the node indices of the largest strongly
// connected component in ascending order: every node in it can reach every
// other one along directed edges. Ties go to the component containing the
// lowest node index.
func LargestStrongComponent(g *Graph) []uint32 {
	n := g.NumNodes
	if n == 0 {
		return nil
	}

	// Iterative Tarjan; NoNode marks unvisited nodes.
	index := make([]uint32, n)
	low := make([]uint32, n)
	comp := make([]uint32, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = NoNode
	}

	type frame struct{ u, e uint32 }
	var (
		stack []uint32
		calls []frame
		sizes []uint32
		next  uint32
	)
	visit := func(u uint32) {
		index[u], low[u] = next, next
		next++
		stack = append(stack, u)
		onStack[u] = true
		calls = append(calls, frame{u, g.FirstOut[u]})
	}

	for root := uint32(0); root < n; root++ {
		if index[root] != NoNode {
			continue
		}
		visit(root)
		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			u := f.u
			if f.e < g.FirstOut[u+1] {
				v := g.Head[f.e]
				f.e++
				if index[v] == NoNode {
					visit(v)
				} else if onStack[v] {
					low[u] = min(low[u], index[v])
				}
				continue
			}

			if low[u] == index[u] {
				id := uint32(len(sizes))
				var size uint32
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = id
					size++
					if w == u {
						break
					}
				}
				sizes = append(sizes, size)
			}
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].u
				low[parent] = min(low[parent], low[u])
			}
		}
	}

	best, bestSize := uint32(0), uint32(0)
	for u := uint32(0); u < n; u++ {
		if s := sizes[comp[u]]; s > bestSize {
			best, bestSize = comp[u], s
		}
	}
	nodes := make([]uint32, 0, bestSize)
	for u := uint32(0); u < n; u++ {
		if comp[u] == best {
			nodes = append(nodes, u)
		}
	}
	return nodes
}

// Induced creates a new graph containing only the specified nodes and the
// edges between them. Node i of the result is nodes[i] of g.
func Induced(g *Graph, nodes []uint32) *Graph {
	if len(nodes) == 0 {
		return &Graph{FirstOut: []uint32{0}}
	}

	oldToNew := make(map[uint32]uint32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	var edges []rawEdge
	for _, oldU := range nodes {
		start, end := g.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			if newV, ok := oldToNew[g.Head[e]]; ok {
				edges = append(edges, rawEdge{
					from:   oldToNew[oldU],
					to:     newV,
					weight: g.Weight[e],
				})
			}
		}
	}

	numNodes := uint32(len(nodes))
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	osmIDs := make([]int64, numNodes)
	for newIdx, oldIdx := range nodes {
		nodeLat[newIdx] = g.NodeLat[oldIdx]
		nodeLon[newIdx] = g.NodeLon[oldIdx]
		if g.OSMID != nil {
			osmIDs[newIdx] = g.OSMID[oldIdx]
		}
	}

	return fromEdges(numNodes, edges, nodeLat, nodeLon, osmIDs)
}
