package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"

	"loop_router/pkg/config"
	"loop_router/pkg/graph"
	osmparser "loop_router/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "region.bin", "Output binary graph file path")
	configPath := flag.String("config", "", "Path to planner HCL config; graph.network selects the street network")
	network := flag.String("network", "", "Street network: walk or drive (overrides config)")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	logger := config.NewLogger(*logLevel, *logFormat, os.Stderr)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output region.bin] [--network walk|drive] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	planner, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	opts := osmparser.ParseOptions{Network: planner.Graph.Network}
	if *network != "" {
		if opts.Network, err = osmparser.ParseNetwork(*network); err != nil {
			logger.Error("invalid network", "err", err)
			os.Exit(1)
		}
	}

	switch {
	case *kl:
		opts.Bound = orb.Bound{Min: orb.Point{101.2, 2.75}, Max: orb.Point{102.0, 3.5}}
	case *singapore:
		opts.Bound = orb.Bound{Min: orb.Point{103.6, 1.15}, Max: orb.Point{104.1, 1.48}}
	case *bbox != "":
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			logger.Error("invalid bbox format (expected minLat,minLng,maxLat,maxLng)", "err", err)
			os.Exit(1)
		}
		opts.Bound = orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
	}
	if opts.Bound != (orb.Bound{}) {
		logger.Info("using bounding box filter",
			"lat", [2]float64{opts.Bound.Min.Lat(), opts.Bound.Max.Lat()},
			"lng", [2]float64{opts.Bound.Min.Lon(), opts.Bound.Max.Lon()},
		)
	}

	start := time.Now()

	f, err := os.Open(*input)
	if err != nil {
		logger.Error("failed to open input file", "err", err)
		os.Exit(1)
	}
	defer f.Close()

	logger.Info("parsing OSM data", "network", opts.Network)
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		logger.Error("failed to parse OSM data", "err", err)
		os.Exit(1)
	}
	logger.Info("parsed", "edges", len(parseResult.Edges), "nodes", len(parseResult.NodeLat))

	g := graph.Build(parseResult)
	logger.Info("graph built", "nodes", g.NumNodes, "edges", g.NumEdges)

	componentNodes := graph.LargestComponent(g)
	if g.NumNodes > 0 {
		logger.Info("largest component",
			"nodes", len(componentNodes),
			"share", fmt.Sprintf("%.1f%%", float64(len(componentNodes))/float64(g.NumNodes)*100),
		)
	}
	g = graph.Induced(g, componentNodes)

	if err := graph.WriteBinary(*output, g); err != nil {
		logger.Error("failed to write binary", "err", err)
		os.Exit(1)
	}

	info, err := os.Stat(*output)
	if err != nil {
		logger.Error("failed to stat output", "err", err)
		os.Exit(1)
	}
	logger.Info("done",
		"elapsed", time.Since(start).Round(time.Second),
		"output", *output,
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)),
		"nodes", g.NumNodes,
		"edges", g.NumEdges,
	)
}
