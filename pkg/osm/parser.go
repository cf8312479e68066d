package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"loop_router/pkg/geo"
)

// RawEdge represents a directed edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     uint32 // distance in millimeters
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// Network selects which ways are extracted and how their direction is read.
type Network string

const (
	NetworkWalk  Network = "walk"
	NetworkDrive Network = "drive"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkWalk, NetworkDrive:
		return Network(s), nil
	case "":
		return NetworkWalk, nil
	}
	return "", fmt.Errorf("unknown network type %q", s)
}

// walkHighways lists highway tag values a pedestrian can use.
var walkHighways = map[string]bool{
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
	"pedestrian":     true,
	"footway":        true,
	"path":           true,
	"steps":          true,
	"track":          true,
	"cycleway":       true,
	"corridor":       true,
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// accessible returns true if the way can be used on the given network.
func accessible(network Network, tags osm.Tags) bool {
	hw := tags.Find("highway")
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}

	switch network {
	case NetworkDrive:
		if !carHighways[hw] || tags.Find("area") == "yes" {
			return false
		}
		return tags.Find("motor_vehicle") != "no"
	default:
		if !walkHighways[hw] {
			return false
		}
		if foot := tags.Find("foot"); foot == "no" || foot == "private" {
			return false
		}
		// Sidewalk-less service alleys are still walkable; only parking aisles are not.
		return tags.Find("service") != "parking_aisle"
	}
}

// directionFlags returns (forward, backward) for the way on the given network.
// Pedestrians ignore oneway restrictions.
func directionFlags(network Network, tags osm.Tags) (forward, backward bool) {
	if network == NetworkWalk {
		return true, true
	}

	forward = true
	backward = true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent; skip entirely.
		forward, backward = false, false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Network Network   // defaults to NetworkWalk
	Bound   orb.Bound // if non-empty, keep only edges with both endpoints inside
}

func (o ParseOptions) hasBound() bool {
	return o.Bound != (orb.Bound{})
}

// Parse reads an OSM PBF file and returns directed edges for the requested
// network. The reader is consumed twice (seeks back to start for the second
// pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ParseOptions) (*ParseResult, error) {
	network := opts.Network
	if network == "" {
		network = NetworkWalk
	}

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !accessible(network, w.Tags) {
			continue
		}

		fwd, bwd := directionFlags(network, w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: nodeIDs, Forward: fwd, Backward: bwd})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	slog.Info("Pass 1 complete", "network", network, "ways", len(ways), "referenced_nodes", len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	slog.Info("Pass 2 complete", "node_coordinates", len(nodeLat))

	edges, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, opts)
	if skipped > 0 {
		slog.Warn("Skipped edges due to missing node coordinates", "count", skipped)
	}
	if filtered > 0 {
		slog.Info("Filtered edges outside bound", "count", filtered)
	}
	slog.Info("Built directed edges", "count", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// buildEdges expands way node lists into weighted directed edges.
func buildEdges(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, opts ParseOptions) (edges []RawEdge, skipped, filtered int) {
	useBound := opts.hasBound()

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			fromLat, fromOk := nodeLat[fromID]
			toLat, toOk := nodeLat[toID]
			if !fromOk || !toOk {
				skipped++
				continue
			}
			fromLon := nodeLon[fromID]
			toLon := nodeLon[toID]

			if useBound && (!opts.Bound.Contains(orb.Point{fromLon, fromLat}) || !opts.Bound.Contains(orb.Point{toLon, toLat})) {
				filtered++
				continue
			}

			weightMM := uint32(math.Round(geo.Haversine(fromLat, fromLon, toLat, toLon) * 1000))
			if weightMM == 0 {
				weightMM = 1 // avoid zero-weight edges
			}

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Weight: weightMM})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Weight: weightMM})
			}
		}
	}
	return edges, skipped, filtered
}
