package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"loop_router/pkg/api"
	"loop_router/pkg/config"
	"loop_router/pkg/graph"
)

const version = "1.0.0"

func main() {
	graphPath := flag.String("graph", "region.bin", "Path to preprocessed region graph")
	configPath := flag.String("config", "", "Path to planner HCL config (empty = defaults)")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin (empty = same-origin)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	logger := config.NewLogger(*logLevel, *logFormat, os.Stderr)

	planner, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	start := time.Now()
	logger.Info("loading graph", "path", *graphPath)
	region, err := graph.ReadBinary(*graphPath)
	if err != nil {
		logger.Error("failed to load graph", "err", err)
		os.Exit(1)
	}
	logger.Info("graph loaded", "nodes", region.NumNodes, "edges", region.NumEdges)

	pl, err := planner.NewPipeline(region, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	logger.Info("ready",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"strategy", planner.Solver.Strategy,
		"refiners", planner.Refine.Strategies,
	)

	cfg := api.DefaultConfig(fmt.Sprintf(":%d", *port))
	cfg.CORSOrigin = *corsOrigin
	cfg.RateLimit = rate.Limit(planner.Server.RateLimit)
	cfg.Burst = planner.Server.Burst
	if planner.Solver.Strategy == config.StrategyVRP {
		cfg.RequestTimeout = max(cfg.RequestTimeout, planner.Solver.TimeLimit+15*time.Second)
	}

	stats := api.StatsResponse{
		NumNodes: region.NumNodes,
		NumEdges: region.NumEdges,
		Network:  string(planner.Graph.Network),
		Strategy: planner.Solver.Strategy,
	}
	about := api.AboutResponse{
		Name:        "loop_router",
		Description: "Plans closed running tours of a target distance from a start point.",
		Version:     version,
	}

	handlers := api.NewHandlers(api.PipelinePlanner{Pipeline: pl}, stats, about, logger)
	srv := api.NewServer(cfg, handlers, logger)

	if err := api.ListenAndServe(context.Background(), srv, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
