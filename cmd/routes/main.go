package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loop_router/pkg/config"
	"loop_router/pkg/geo"
	"loop_router/pkg/graph"
	"loop_router/pkg/pipeline"
)

func main() {
	graphPath := flag.String("graph", "region.bin", "Path to preprocessed region graph")
	configPath := flag.String("config", "", "Path to planner HCL config (empty = defaults)")
	n := flag.Int("n", 1, "Number of tours, 1-10")
	lat := flag.Float64("lat", 0, "Start latitude")
	lng := flag.Float64("lng", 0, "Start longitude")
	distance := flag.Float64("distance", 5000, "Target tour length in meters, 500-10000")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := config.NewLogger(*logLevel, "text", os.Stderr)

	start := geo.LatLng{Lat: *lat, Lng: *lng}
	switch {
	case *n < 1 || *n > 10:
		fail("-n must be in [1, 10], got %d", *n)
	case *distance < 500 || *distance > 10000:
		fail("-distance must be in [500, 10000], got %.0f", *distance)
	case !start.Valid():
		fail("invalid start coordinate %f,%f", *lat, *lng)
	}

	planner, err := config.Load(*configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	region, err := graph.ReadBinary(*graphPath)
	if err != nil {
		fail("load graph: %v", err)
	}
	pl, err := planner.NewPipeline(region, logger)
	if err != nil {
		fail("build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t0 := time.Now()
	res, err := pl.Run(ctx, pipeline.Request{N: *n, Start: start, Distance: *distance})
	if err != nil {
		fail("plan: %v", err)
	}
	tours, err := pipeline.TourAssembler{}.Assemble(res)
	if err != nil {
		fail("assemble: %v", err)
	}
	logger.Info("planned", "tours", len(tours), "elapsed", time.Since(t0).Round(time.Millisecond))

	enc := json.NewEncoder(os.Stdout)
	for i, coords := range tours {
		length, err := res.Oracle.PathLength(res.Tours[i])
		if err != nil {
			fail("tour %d: %v", i, err)
		}
		enc.Encode(struct {
			Tour        int                   `json:"tour"`
			Distance    float64               `json:"distance"`
			Coordinates []pipeline.Coordinate `json:"coordinates"`
		}{i, length, coords})
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "routes: "+format+"\n", args...)
	os.Exit(1)
}
