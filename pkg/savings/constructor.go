package savings

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"loop_router/pkg/routing"
	"loop_router/pkg/tour"
)

// Constructor merges single-customer tours under a node cap and a length
// budget. It is used by one solve at a time.
type Constructor struct {
	Oracle Distancer
	// MaxNodes caps the length of a merged tour, depot endpoints included.
	MaxNodes int
	// Budget caps the summed oracle distance of a merged tour in meters.
	Budget float64
}

// splice is one way of inserting a chain between an outer node and one of
// its route neighbours.
type splice struct {
	outer, side uint32
	chain       []uint32
	cost        float64
}

// Merge tries to combine the routes holding s.A and s.B. On success the two
// routes are replaced by the merged one, appended at the end of the returned
// set. A rejected merge returns routes unchanged and false.
func (c *Constructor) Merge(routes RouteSet, s Saving) (RouteSet, bool, error) {
	iu, iv := routes.find(s.A), routes.find(s.B)
	if iu < 0 {
		return routes, false, fmt.Errorf("merge node %d: %w", s.A, routing.ErrNodeNotFound)
	}
	if iv < 0 {
		return routes, false, fmt.Errorf("merge node %d: %w", s.B, routing.ErrNodeNotFound)
	}
	if iu == iv {
		return routes, false, nil
	}
	ru, rv := routes[iu], routes[iv]
	if len(ru)+len(rv)-2 > c.MaxNodes {
		return routes, false, nil
	}

	var (
		merged tour.Tour
		err    error
	)
	uExt, vExt := ru.IsExterior(s.A), rv.IsExterior(s.B)
	switch {
	case uExt && vExt:
		merged = joinExterior(ru, s.A, rv, s.B)
	case uExt:
		merged, err = c.joinMixed(ru, s.A, rv, s.B)
	case vExt:
		merged, err = c.joinMixed(rv, s.B, ru, s.A)
	default:
		merged, err = c.joinInterior(ru, s.A, rv, s.B)
	}
	if err != nil {
		return routes, false, err
	}

	length, err := c.length(merged)
	if err != nil {
		return routes, false, err
	}
	if length > c.Budget {
		return routes, false, nil
	}

	out := make(RouteSet, 0, len(routes)-1)
	for i, r := range routes {
		if i != iu && i != iv {
			out = append(out, r)
		}
	}
	return append(out, merged), true, nil
}

// joinExterior links two routes end to end so that u is followed by v.
func joinExterior(ru tour.Tour, u uint32, rv tour.Tour, v uint32) tour.Tour {
	a := slices.Clone(ru.Interior())
	if a[len(a)-1] != u {
		slices.Reverse(a)
	}
	b := slices.Clone(rv.Interior())
	if b[0] != v {
		slices.Reverse(b)
	}

	depot := ru.Depot()
	out := make(tour.Tour, 0, len(a)+len(b)+2)
	out = append(out, depot)
	out = append(out, a...)
	out = append(out, b...)
	return append(out, depot)
}

// joinMixed opens the route holding the interior node m into a chain that
// starts at m and inserts it between the exterior node e and whichever
// neighbour of e lies closer to the chain's far end. The first neighbour
// wins ties.
func (c *Constructor) joinMixed(re tour.Tour, e uint32, ri tour.Tour, m uint32) (tour.Tour, error) {
	chain, err := RotateInteriorRoute(ri, m, nil)
	if err != nil {
		return nil, err
	}
	far := chain[len(chain)-1]

	best := splice{outer: e, chain: chain, cost: math.Inf(1)}
	for _, w := range routeNeighbours(re, e) {
		d, err := c.Oracle.Distance(far, w)
		if err != nil {
			return nil, err
		}
		if d < best.cost {
			best.side, best.cost = w, d
		}
	}
	return apply(re, best)
}

// joinInterior keeps the depot edges of the route that costs less to lose
// them and opens the other one into a chain inserted next to its merge node.
func (c *Constructor) joinInterior(ru tour.Tour, u uint32, rv tour.Tour, v uint32) (tour.Tour, error) {
	cu, err := c.depotEdges(ru)
	if err != nil {
		return nil, err
	}
	cv, err := c.depotEdges(rv)
	if err != nil {
		return nil, err
	}
	outer, o, inner, m := ru, u, rv, v
	if cv < cu {
		outer, o, inner, m = rv, v, ru, u
	}

	var chains [][]uint32
	for _, h := range routeNeighbours(inner, m) {
		chain, err := RotateInteriorRoute(inner, m, &h)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}
	best, err := c.bestSplice(outer, o, chains)
	if err != nil {
		return nil, err
	}
	return apply(outer, best)
}

// depotEdges returns d(D, first) + d(last, D) for the route's interior.
func (c *Constructor) depotEdges(r tour.Tour) (float64, error) {
	in := r.Interior()
	d1, err := c.Oracle.Distance(r.Depot(), in[0])
	if err != nil {
		return 0, err
	}
	d2, err := c.Oracle.Distance(in[len(in)-1], r.Depot())
	if err != nil {
		return 0, err
	}
	return d1 + d2, nil
}

// bestSplice evaluates every chain on both sides of o by crossing cost and
// returns the cheapest. The first of equal-cost options wins.
func (c *Constructor) bestSplice(outer tour.Tour, o uint32, chains [][]uint32) (splice, error) {
	best := splice{cost: math.Inf(1)}
	for _, w := range routeNeighbours(outer, o) {
		for _, chain := range chains {
			cost, err := c.crossing(o, w, chain)
			if err != nil {
				return splice{}, err
			}
			if cost < best.cost {
				best = splice{outer: o, side: w, chain: chain, cost: cost}
			}
		}
	}
	return best, nil
}

// crossing is the added length of replacing edge o-w by o, chain..., w.
func (c *Constructor) crossing(o, w uint32, chain []uint32) (float64, error) {
	in, err := c.Oracle.Distance(o, chain[0])
	if err != nil {
		return 0, err
	}
	out, err := c.Oracle.Distance(chain[len(chain)-1], w)
	if err != nil {
		return 0, err
	}
	direct, err := c.Oracle.Distance(o, w)
	if err != nil {
		return 0, err
	}
	return in + out - direct, nil
}

// apply inserts the splice chain between its outer node and side.
func apply(route tour.Tour, sp splice) (tour.Tour, error) {
	left, right, err := SplitRoute(route, sp.outer, sp.side)
	if err != nil {
		return nil, err
	}
	chain := sp.chain
	if left[len(left)-1] != sp.outer {
		chain = tour.Reversed(chain)
	}
	out := make(tour.Tour, 0, len(left)+len(chain)+len(right))
	out = append(out, left...)
	out = append(out, chain...)
	return append(out, right...), nil
}

func (c *Constructor) length(t tour.Tour) (float64, error) {
	var total float64
	for i := 0; i+1 < len(t); i++ {
		d, err := c.Oracle.Distance(t[i], t[i+1])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// Solve builds one tour per candidate, applies every saving in order and
// returns up to n of the longest tours that visit at least one node.
func (c *Constructor) Solve(n int, depot uint32, candidates []uint32) ([]tour.Tour, error) {
	nodes := customers(depot, candidates)
	routes := make(RouteSet, len(nodes))
	for i, v := range nodes {
		routes[i] = tour.New(depot, v)
	}

	ss, err := Savings(c.Oracle, depot, nodes)
	if err != nil {
		return nil, err
	}
	for _, s := range ss {
		routes, _, err = c.Merge(routes, s)
		if err != nil {
			return nil, fmt.Errorf("merge %d-%d: %w", s.A, s.B, err)
		}
	}
	return c.selectLongest(n, routes)
}

func (c *Constructor) selectLongest(n int, routes RouteSet) ([]tour.Tour, error) {
	type scored struct {
		t      tour.Tour
		length float64
	}
	var kept []scored
	for _, r := range routes {
		if len(r) <= 2 {
			continue
		}
		l, err := c.length(r)
		if err != nil {
			return nil, err
		}
		kept = append(kept, scored{r, l})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].length > kept[j].length })

	n = max(min(n, len(kept)), 0)
	out := make([]tour.Tour, 0, n)
	for _, k := range kept[:n] {
		out = append(out, k.t)
	}
	return out, nil
}

// Model adapts the savings heuristic to the route construction stage.
type Model struct {
	MaxNodes int
}

// Construct runs one savings solve over candidates.
func (m Model) Construct(ctx context.Context, n int, depot uint32, budget float64, oracle *routing.Oracle, candidates []uint32) ([]tour.Tour, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &Constructor{Oracle: oracle, MaxNodes: m.MaxNodes, Budget: budget}
	return c.Solve(n, depot, candidates)
}
