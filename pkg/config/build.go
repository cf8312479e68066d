package config

import (
	"io"
	"log/slog"
	"strings"

	"loop_router/pkg/graph"
	"loop_router/pkg/pipeline"
	"loop_router/pkg/sample"
	"loop_router/pkg/savings"
	"loop_router/pkg/vrp"
)

// Constructor returns the route construction stage selected by
// solver.strategy.
func (p Planner) Constructor(logger *slog.Logger) pipeline.Constructor {
	if p.Solver.Strategy == StrategyVRP {
		return vrp.Model{Solver: vrp.CheapestArc{}, TimeLimit: p.Solver.TimeLimit, Logger: logger}
	}
	return savings.Model{MaxNodes: p.Savings.MaxNodes}
}

// NewPipeline assembles the planning pipeline over a preprocessed region
// graph.
func (p Planner) NewPipeline(region *graph.Graph, logger *slog.Logger) (*pipeline.Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	refiners, err := p.RefineStrategies()
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Graphs:      graph.NewRegionProvider(region),
		Sampler:     sample.KMeans{Percent: p.Sample.Percent, MaxSize: p.Sample.MaxSize, Seed: p.Sample.Seed},
		Constructor: p.Constructor(logger),
		Refiners:    refiners,
		Logger:      logger,
	}, nil
}

// NewLogger builds a logger writing to w. level is one of debug, info, warn
// or error; format is text or json. Unknown values fall back to info and
// text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
