package vrp

import (
	"context"
	"math"
	"slices"
)

// Solution is the result of one solve. Every route starts and ends at
// index 0; routes that serve nobody are [0, 0].
type Solution struct {
	Routes  [][]int
	Dropped []int
	// Penalty is the drop penalty n*limit charged per dropped node.
	Penalty float64
	Cost    float64
}

// Solver builds n routes over matrix, each at most limit long.
type Solver interface {
	Solve(ctx context.Context, n int, matrix [][]float64, limit float64) (*Solution, error)
}

// CheapestArc extends each vehicle's route with the cheapest feasible arc
// until nothing fits, inserts dropped nodes where they still fit, and then
// improves every route with 2-opt until no move helps or ctx is done.
type CheapestArc struct{}

func (CheapestArc) Solve(ctx context.Context, n int, matrix [][]float64, limit float64) (*Solution, error) {
	if err := validate(matrix); err != nil {
		return nil, err
	}
	size := len(matrix)
	visited := make([]bool, size)
	visited[0] = true

	routes := make([][]int, n)
	for v := range routes {
		routes[v] = extend(matrix, limit, visited)
	}

	for {
		if ctx.Err() != nil {
			break
		}
		if !insertCheapest(matrix, limit, routes, visited) {
			break
		}
	}

	for v := range routes {
		routes[v] = improve2Opt(ctx, matrix, routes[v])
	}

	sol := &Solution{Routes: routes}
	for i := 1; i < size; i++ {
		if !visited[i] {
			sol.Dropped = append(sol.Dropped, i)
		}
	}
	sol.Penalty = float64(len(sol.Dropped)) * float64(n) * limit
	for _, r := range routes {
		sol.Cost += routeCost(matrix, r)
	}
	return sol, nil
}

// extend grows one route from the depot along the cheapest arc to an
// unvisited node that can still return to the depot within limit.
func extend(m [][]float64, limit float64, visited []bool) []int {
	route := []int{0}
	cur, used := 0, 0.0
	for {
		next, best := -1, math.Inf(1)
		for j := 1; j < len(m); j++ {
			if visited[j] || used+m[cur][j]+m[j][0] > limit {
				continue
			}
			if m[cur][j] < best {
				next, best = j, m[cur][j]
			}
		}
		if next < 0 {
			break
		}
		visited[next] = true
		route = append(route, next)
		used += best
		cur = next
	}
	return append(route, 0)
}

// insertCheapest places the unvisited node with the cheapest feasible
// insertion over all routes. It reports whether a node was placed.
func insertCheapest(m [][]float64, limit float64, routes [][]int, visited []bool) bool {
	bestNode, bestRoute, bestPos, bestDelta := -1, -1, -1, math.Inf(1)
	for j := 1; j < len(m); j++ {
		if visited[j] {
			continue
		}
		for r, route := range routes {
			cost := routeCost(m, route)
			for p := 1; p < len(route); p++ {
				a, b := route[p-1], route[p]
				delta := m[a][j] + m[j][b] - m[a][b]
				if cost+delta <= limit && delta < bestDelta {
					bestNode, bestRoute, bestPos, bestDelta = j, r, p, delta
				}
			}
		}
	}
	if bestNode < 0 {
		return false
	}
	visited[bestNode] = true
	routes[bestRoute] = slices.Insert(routes[bestRoute], bestPos, bestNode)
	return true
}

// improve2Opt reverses inner segments of route while that shortens it.
// Only shortening moves are kept, so a feasible route stays feasible.
func improve2Opt(ctx context.Context, m [][]float64, route []int) []int {
	best := slices.Clone(route)
	bestCost := routeCost(m, best)
	n := len(best)
	for {
		improved := false
		for i := 1; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				if ctx.Err() != nil {
					return best
				}
				cand := twoOptSwap(best, i, k)
				if c := routeCost(m, cand); c+1e-9 < bestCost {
					best, bestCost = cand, c
					improved = true
				}
			}
		}
		if !improved {
			return best
		}
	}
}

func twoOptSwap(ord []int, i, k int) []int {
	out := slices.Clone(ord)
	slices.Reverse(out[i : k+1])
	return out
}

func routeCost(m [][]float64, route []int) float64 {
	var total float64
	for i := 0; i+1 < len(route); i++ {
		total += m[route[i]][route[i+1]]
	}
	return total
}
