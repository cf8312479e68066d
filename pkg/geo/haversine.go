package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Point converts to an orb point (lon, lat order).
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// Valid reports whether the coordinate is finite and inside the WGS84 range.
func (ll LatLng) Valid() bool {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return false
	}
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lng >= -180 && ll.Lng <= 180
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b LatLng) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// BoundAround returns the bounding box enclosing a circle of radius meters
// around center. Used as a cheap prefilter before the exact Haversine test.
func BoundAround(center LatLng, radius float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center.Point(), radius)
}

// WithinRadius reports whether p lies within radius meters of center.
func WithinRadius(center, p LatLng, radius float64) bool {
	return Distance(center, p) <= radius
}
