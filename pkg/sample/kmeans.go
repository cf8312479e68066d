// Package sample reduces a street graph to a bounded set of representative
// coordinates for route construction.
package sample

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"loop_router/pkg/geo"
	"loop_router/pkg/graph"
)

// ErrNoPoints is returned when there is nothing to cluster.
var ErrNoPoints = errors.New("no points to sample")

const defaultMaxIter = 50

// KMeans downsamples graph nodes to the centres of k clusters of their
// (lat, lng) positions, k = min(int(N * Percent), MaxSize) and at least 1.
type KMeans struct {
	Percent float64
	MaxSize int
	Seed    uint64
	// MaxIter bounds Lloyd iterations; zero means the default.
	MaxIter int
}

// K returns the number of clusters used for n points.
func (km KMeans) K(n int) int {
	k := min(int(float64(n)*km.Percent), km.MaxSize)
	return max(min(k, n), 1)
}

// Sample clusters every node of g.
func (km KMeans) Sample(ctx context.Context, g *graph.Graph) ([]geo.LatLng, error) {
	if g == nil || g.NumNodes == 0 {
		return nil, ErrNoPoints
	}
	points := make([]geo.LatLng, g.NumNodes)
	for u := range points {
		points[u] = g.Coord(uint32(u))
	}
	return km.Cluster(ctx, points)
}

// Cluster runs seeded k-means++ initialisation followed by Lloyd iterations
// and returns the cluster centres. Equal seeds give equal results.
func (km KMeans) Cluster(ctx context.Context, points []geo.LatLng) ([]geo.LatLng, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrNoPoints
	}
	k := km.K(n)
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed^0x9e3779b97f4a7c15))

	centroids := seed(points, k, rng)
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	sums := make([]geo.LatLng, k)
	counts := make([]int, k)

	for range maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		clear(sums)
		clear(counts)
		for i, p := range points {
			c := assignments[i]
			sums[c].Lat += p.Lat
			sums[c].Lng += p.Lng
			counts[c]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				// Re-seed an empty cluster from a random point.
				centroids[j] = points[rng.IntN(n)]
				continue
			}
			centroids[j] = geo.LatLng{
				Lat: sums[j].Lat / float64(counts[j]),
				Lng: sums[j].Lng / float64(counts[j]),
			}
		}
	}
	return centroids, nil
}

// seed picks k initial centres with k-means++: each next centre is drawn
// with probability proportional to its squared distance to the chosen ones.
func seed(points []geo.LatLng, k int, rng *rand.Rand) []geo.LatLng {
	centroids := make([]geo.LatLng, 0, k)
	centroids = append(centroids, points[rng.IntN(len(points))])

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range d2 {
			total += d
		}
		next := rng.IntN(len(points))
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		c := points[next]
		centroids = append(centroids, c)
		for i, p := range points {
			d2[i] = min(d2[i], sqDist(p, c))
		}
	}
	return centroids
}

func nearest(p geo.LatLng, centroids []geo.LatLng) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		if d := sqDist(p, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func sqDist(a, b geo.LatLng) float64 {
	dLat, dLng := a.Lat-b.Lat, a.Lng-b.Lng
	return dLat*dLat + dLng*dLng
}
