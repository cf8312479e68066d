package routing

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/osm"

	"loop_router/pkg/graph"
	osmparser "loop_router/pkg/osm"
)

// buildTestGraph creates a small bidirectional grid.
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
//
// Weights in millimeters.
func buildTestGraph(t testing.TB) *graph.Graph {
	t.Helper()
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
			{FromNodeID: 30, ToNodeID: 60, Weight: 400},
			{FromNodeID: 60, ToNodeID: 30, Weight: 400},
			{FromNodeID: 40, ToNodeID: 50, Weight: 500},
			{FromNodeID: 50, ToNodeID: 40, Weight: 500},
			{FromNodeID: 50, ToNodeID: 60, Weight: 600},
			{FromNodeID: 60, ToNodeID: 50, Weight: 600},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.300, 20: 1.300, 30: 1.300, 40: 1.301, 50: 1.301, 60: 1.301},
		NodeLon: map[osm.NodeID]float64{10: 103.800, 20: 103.801, 30: 103.802, 40: 103.800, 50: 103.801, 60: 103.802},
	}
	return graph.Build(result)
}

// plainDijkstra runs an O(n²) Dijkstra as a reference.
func plainDijkstra(g *graph.Graph, source, target uint32) uint32 {
	dist := make([]uint32, g.NumNodes)
	done := make([]bool, g.NumNodes)
	for i := range dist {
		dist[i] = math.MaxUint32
	}
	dist[source] = 0

	for {
		u := graph.NoNode
		for v := uint32(0); v < g.NumNodes; v++ {
			if !done[v] && dist[v] != math.MaxUint32 && (u == graph.NoNode || dist[v] < dist[u]) {
				u = v
			}
		}
		if u == graph.NoNode {
			break
		}
		done[u] = true
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if nd := dist[u] + g.Weight[e]; nd < dist[g.Head[e]] {
				dist[g.Head[e]] = nd
			}
		}
	}
	return dist[target]
}

func TestOracleDistanceMatchesReference(t *testing.T) {
	g := buildTestGraph(t)
	o := NewOracle(g)

	for s := uint32(0); s < g.NumNodes; s++ {
		for d := uint32(0); d < g.NumNodes; d++ {
			got, err := o.Distance(s, d)
			if err != nil {
				t.Fatalf("Distance(%d,%d): %v", s, d, err)
			}
			want := float64(plainDijkstra(g, s, d)) / 1000
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("Distance(%d,%d) = %f, want %f", s, d, got, want)
			}
		}
	}
	if o.Len() != int(g.NumNodes) {
		t.Errorf("cached sources = %d, want %d", o.Len(), g.NumNodes)
	}
}

func TestOracleShortestPath(t *testing.T) {
	g := buildTestGraph(t)
	o := NewOracle(g)

	// 0 -> 5: 0-1-2-5 costs 700, 0-3-4-5 costs 1400.
	path, err := o.ShortestPath(0, 5)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	want := []uint32{0, 1, 2, 5}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}

	self, err := o.ShortestPath(3, 3)
	if err != nil || len(self) != 1 || self[0] != 3 {
		t.Errorf("ShortestPath(3,3) = %v, %v; want [3]", self, err)
	}

	length, err := o.PathLength([]uint32{0, 5, 0})
	if err != nil {
		t.Fatalf("PathLength: %v", err)
	}
	if math.Abs(length-1.4) > 1e-9 {
		t.Errorf("PathLength = %f, want 1.4", length)
	}
}

func TestOracleCachesPerSource(t *testing.T) {
	g := buildTestGraph(t)
	o := NewOracle(g)

	if _, err := o.Distance(0, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := o.ShortestPath(0, 4); err != nil {
		t.Fatal(err)
	}
	if o.Len() != 1 {
		t.Errorf("cached sources = %d, want 1", o.Len())
	}
	if _, err := o.Distance(5, 0); err != nil {
		t.Fatal(err)
	}
	if o.Len() != 2 {
		t.Errorf("cached sources = %d, want 2", o.Len())
	}
}

func TestOracleErrors(t *testing.T) {
	var empty *graph.Graph
	if _, err := NewOracle(empty).Distance(0, 1); !errors.Is(err, ErrGraphNotBuilt) {
		t.Errorf("nil graph: err = %v, want ErrGraphNotBuilt", err)
	}
	if _, err := NewOracle(empty).ShortestPath(0, 1); !errors.Is(err, ErrGraphNotBuilt) {
		t.Errorf("nil graph: err = %v, want ErrGraphNotBuilt", err)
	}

	o := NewOracle(buildTestGraph(t))
	if _, err := o.ShortestPath(0, 99); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("bad target: err = %v, want ErrNodeNotFound", err)
	}
	if _, err := o.Distance(99, 0); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("bad source: err = %v, want ErrNodeNotFound", err)
	}
	if o.Len() != 0 {
		t.Errorf("failed lookups should not populate the cache, got %d", o.Len())
	}
}

func TestOracleUnreachable(t *testing.T) {
	// One-way edge 1 -> 2: 2 cannot reach 1.
	g := graph.Build(&osmparser.ParseResult{
		Edges:   []osmparser.RawEdge{{FromNodeID: 1, ToNodeID: 2, Weight: 10}},
		NodeLat: map[osm.NodeID]float64{1: 0, 2: 0},
		NodeLon: map[osm.NodeID]float64{1: 0, 2: 0.001},
	})
	o := NewOracle(g)
	if _, err := o.Distance(1, 0); !errors.Is(err, ErrNoRoute) {
		t.Errorf("err = %v, want ErrNoRoute", err)
	}
}

func TestMinHeap(t *testing.T) {
	var h MinHeap

	h.Push(1, 30)
	h.Push(2, 10)
	h.Push(3, 20)
	h.Push(4, 5)

	want := []PQItem{{4, 5}, {2, 10}, {3, 20}, {1, 30}}
	for _, w := range want {
		if item := h.Pop(); item != w {
			t.Errorf("Pop = %+v, want %+v", item, w)
		}
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}

	h.Push(7, 1)
	h.Reset()
	if h.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", h.Len())
	}
}

func BenchmarkOracleColdSource(b *testing.B) {
	g := buildTestGraph(b)
	for b.Loop() {
		o := NewOracle(g)
		_, _ = o.Distance(0, 5)
	}
}
