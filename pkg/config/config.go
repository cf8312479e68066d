// Package config holds the planner tunables and loads them from an optional
// HCL file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"loop_router/pkg/localsearch"
	osmparser "loop_router/pkg/osm"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Constructor names accepted in solver.strategy.
const (
	StrategySavings = "savings"
	StrategyVRP     = "vrp"
)

// Planner is the full set of tunables for one deployment.
type Planner struct {
	Sample  Sample
	Savings Savings
	Solver  Solver
	Refine  Refine
	Graph   Graph
	Server  Server
}

type Sample struct {
	Percent float64
	MaxSize int
	Seed    uint64
}

type Savings struct {
	MaxNodes int
}

type Solver struct {
	Strategy  string
	TimeLimit time.Duration
}

type Refine struct {
	Strategies []string
	Passes     int
}

type Graph struct {
	Network osmparser.Network
}

// Server holds the HTTP throttling settings.
type Server struct {
	RateLimit float64 // requests per second
	Burst     int
}

// Default returns the built-in configuration.
func Default() Planner {
	return Planner{
		Sample:  Sample{Percent: 0.2, MaxSize: 100, Seed: 1234},
		Savings: Savings{MaxNodes: 40},
		Solver:  Solver{Strategy: StrategySavings, TimeLimit: 10 * time.Second},
		Refine:  Refine{Strategies: []string{localsearch.NameDivergence, localsearch.NameTopology}, Passes: 1},
		Graph:   Graph{Network: osmparser.NetworkWalk},
		Server:  Server{RateLimit: 5, Burst: 10},
	}
}

// Validate reports the first out-of-range setting.
func (p Planner) Validate() error {
	switch {
	case p.Sample.Percent <= 0 || p.Sample.Percent > 1:
		return fmt.Errorf("sample.percent %v not in (0, 1]: %w", p.Sample.Percent, ErrInvalid)
	case p.Sample.MaxSize < 1:
		return fmt.Errorf("sample.max_size %d < 1: %w", p.Sample.MaxSize, ErrInvalid)
	case p.Savings.MaxNodes < 3:
		return fmt.Errorf("savings.max_nodes %d < 3: %w", p.Savings.MaxNodes, ErrInvalid)
	case p.Solver.Strategy != StrategySavings && p.Solver.Strategy != StrategyVRP:
		return fmt.Errorf("solver.strategy %q: %w", p.Solver.Strategy, ErrInvalid)
	case p.Solver.TimeLimit <= 0:
		return fmt.Errorf("solver.time_limit %v: %w", p.Solver.TimeLimit, ErrInvalid)
	case p.Refine.Passes < 1:
		return fmt.Errorf("refine.passes %d < 1: %w", p.Refine.Passes, ErrInvalid)
	case p.Server.RateLimit <= 0:
		return fmt.Errorf("server.rate_limit %v: %w", p.Server.RateLimit, ErrInvalid)
	case p.Server.Burst < 1:
		return fmt.Errorf("server.burst %d < 1: %w", p.Server.Burst, ErrInvalid)
	}
	for _, name := range p.Refine.Strategies {
		if _, err := localsearch.ByName(name); err != nil {
			return fmt.Errorf("refine.strategies: %w: %w", err, ErrInvalid)
		}
	}
	if _, err := osmparser.ParseNetwork(string(p.Graph.Network)); err != nil {
		return fmt.Errorf("graph.network: %w: %w", err, ErrInvalid)
	}
	return nil
}

// RefineStrategies resolves the configured refinement strategies, each
// repeated Passes times.
func (p Planner) RefineStrategies() ([]localsearch.Strategy, error) {
	out := make([]localsearch.Strategy, 0, len(p.Refine.Strategies))
	for _, name := range p.Refine.Strategies {
		s, err := localsearch.ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, localsearch.Repeated(s, p.Refine.Passes))
	}
	return out, nil
}

// hclFile mirrors the file layout. Absent attributes stay nil and keep the
// default.
type hclFile struct {
	Sample *struct {
		Percent *float64 `hcl:"percent,optional"`
		MaxSize *int     `hcl:"max_size,optional"`
		Seed    *int64   `hcl:"seed,optional"`
	} `hcl:"sample,block"`
	Savings *struct {
		MaxNodes *int `hcl:"max_nodes,optional"`
	} `hcl:"savings,block"`
	Solver *struct {
		Strategy  *string `hcl:"strategy,optional"`
		TimeLimit *string `hcl:"time_limit,optional"`
	} `hcl:"solver,block"`
	Refine *struct {
		Strategies *[]string `hcl:"strategies,optional"`
		Passes     *int      `hcl:"passes,optional"`
	} `hcl:"refine,block"`
	Graph *struct {
		Network *string `hcl:"network,optional"`
	} `hcl:"graph,block"`
	Server *struct {
		RateLimit *float64 `hcl:"rate_limit,optional"`
		Burst     *int     `hcl:"burst,optional"`
	} `hcl:"server,block"`
}

// Load reads the HCL file at path over the defaults and validates the
// result. An empty path yields the defaults.
func Load(path string) (Planner, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Planner{}, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(f.Body, path, p)
}

// Parse is Load for in-memory source; filename is used in diagnostics.
func Parse(src []byte, filename string) (Planner, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Planner{}, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}
	return decode(f.Body, filename, Default())
}

func decode(body hcl.Body, filename string, p Planner) (Planner, error) {
	var raw hclFile
	if diags := gohcl.DecodeBody(body, evalContext(), &raw); diags.HasErrors() {
		return Planner{}, fmt.Errorf("failed to decode config file %s: %w", filename, diags)
	}

	if b := raw.Sample; b != nil {
		set(&p.Sample.Percent, b.Percent)
		set(&p.Sample.MaxSize, b.MaxSize)
		if b.Seed != nil {
			p.Sample.Seed = uint64(*b.Seed)
		}
	}
	if b := raw.Savings; b != nil {
		set(&p.Savings.MaxNodes, b.MaxNodes)
	}
	if b := raw.Solver; b != nil {
		set(&p.Solver.Strategy, b.Strategy)
		if b.TimeLimit != nil {
			d, err := time.ParseDuration(*b.TimeLimit)
			if err != nil {
				return Planner{}, fmt.Errorf("solver.time_limit: %w: %w", err, ErrInvalid)
			}
			p.Solver.TimeLimit = d
		}
	}
	if b := raw.Refine; b != nil {
		set(&p.Refine.Strategies, b.Strategies)
		set(&p.Refine.Passes, b.Passes)
	}
	if b := raw.Graph; b != nil && b.Network != nil {
		p.Graph.Network = osmparser.Network(*b.Network)
	}
	if b := raw.Server; b != nil {
		set(&p.Server.RateLimit, b.RateLimit)
		set(&p.Server.Burst, b.Burst)
	}

	if err := p.Validate(); err != nil {
		return Planner{}, err
	}
	return p, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// evalContext exposes the process environment as env.NAME.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
