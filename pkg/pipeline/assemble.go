package pipeline

import (
	"strconv"
	"strings"
)

// Assembler renders the tours of a result.
type Assembler[T any] interface {
	Assemble(r *Result) (T, error)
}

// Coordinate is a [lat, lng] pair.
type Coordinate [2]float64

// Route is a rendered tour.
type Route struct {
	Coordinates []Coordinate `json:"coordinates"`
	Distance    float64      `json:"distance"`
	URL         string       `json:"url"`
}

// Routes is the body served for a planning request.
type Routes struct {
	Routes []Route `json:"routes"`
}

const directionsURL = "https://google.com/maps/dir/"

// TourAssembler renders every tour as a list of coordinates.
type TourAssembler struct{}

func (TourAssembler) Assemble(r *Result) ([][]Coordinate, error) {
	out := make([][]Coordinate, len(r.Tours))
	for i, t := range r.Tours {
		out[i] = coordinates(r, t)
	}
	return out, nil
}

// RestAssembler renders tours with their street length and a map
// directions link through every node.
type RestAssembler struct{}

func (RestAssembler) Assemble(r *Result) (Routes, error) {
	routes := Routes{Routes: make([]Route, 0, len(r.Tours))}
	for _, t := range r.Tours {
		length, err := r.Oracle.PathLength(t)
		if err != nil {
			return Routes{}, err
		}
		coords := coordinates(r, t)
		routes.Routes = append(routes.Routes, Route{
			Coordinates: coords,
			Distance:    length,
			URL:         mapsURL(coords),
		})
	}
	return routes, nil
}

func coordinates(r *Result, nodes []uint32) []Coordinate {
	out := make([]Coordinate, len(nodes))
	for i, v := range nodes {
		ll := r.Graph.Coord(v)
		out[i] = Coordinate{ll.Lat, ll.Lng}
	}
	return out
}

func mapsURL(coords []Coordinate) string {
	var b strings.Builder
	b.WriteString(directionsURL)
	for i, c := range coords {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.FormatFloat(c[0], 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c[1], 'f', -1, 64))
	}
	return b.String()
}
