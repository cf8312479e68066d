package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loop_router/pkg/graph"
	osmparser "loop_router/pkg/osm"
	"loop_router/pkg/sample"
	"loop_router/pkg/savings"
	"loop_router/pkg/vrp"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestParseOverlaysDefaults(t *testing.T) {
	src := `
sample {
  percent = 0.5
}

savings {
  max_nodes = 12
}

solver {
  strategy   = "vrp"
  time_limit = "250ms"
}

refine {
  strategies = ["topology"]
  passes     = 3
}

graph {
  network = "drive"
}
`
	p, err := Parse([]byte(src), "planner.hcl")
	require.NoError(t, err)

	assert.Equal(t, 0.5, p.Sample.Percent)
	assert.Equal(t, 100, p.Sample.MaxSize, "unset attributes keep their default")
	assert.Equal(t, uint64(1234), p.Sample.Seed)
	assert.Equal(t, 12, p.Savings.MaxNodes)
	assert.Equal(t, StrategyVRP, p.Solver.Strategy)
	assert.Equal(t, 250*time.Millisecond, p.Solver.TimeLimit)
	assert.Equal(t, []string{"topology"}, p.Refine.Strategies)
	assert.Equal(t, 3, p.Refine.Passes)
	assert.Equal(t, osmparser.NetworkDrive, p.Graph.Network)
	assert.Equal(t, Default().Server, p.Server)

	strategies, err := p.RefineStrategies()
	require.NoError(t, err)
	assert.Len(t, strategies, 1)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("LOOP_ROUTER_TEST_SEED", "99")
	p, err := Parse([]byte(`sample { seed = env.LOOP_ROUTER_TEST_SEED }`), "env.hcl")
	require.NoError(t, err)
	assert.Equal(t, uint64(99), p.Sample.Seed)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `sample {`},
		{"unknown block", `cache { size = 1 }`},
		{"unknown attribute", `sample { ratio = 1 }`},
		{"percent out of range", `sample { percent = 1.5 }`},
		{"tiny node cap", `savings { max_nodes = 2 }`},
		{"unknown solver", `solver { strategy = "ortools" }`},
		{"bad duration", `solver { time_limit = "soon" }`},
		{"unknown refiner", `refine { strategies = ["2-opt"] }`},
		{"zero passes", `refine { passes = 0 }`},
		{"unknown network", `graph { network = "boat" }`},
		{"zero burst", `server { burst = 0 }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
		})
	}

	_, err := Parse([]byte(`savings { max_nodes = 2 }`), "bad.hcl")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {\n  rate_limit = 2.5\n  burst = 4\n}\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Server{RateLimit: 2.5, Burst: 4}, p.Server)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestConstructorSelection(t *testing.T) {
	p := Default()
	assert.IsType(t, savings.Model{}, p.Constructor(nil))
	assert.Equal(t, savings.Model{MaxNodes: 40}, p.Constructor(nil))

	p.Solver.Strategy = StrategyVRP
	m, ok := p.Constructor(nil).(vrp.Model)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, m.TimeLimit)
}

func TestNewPipeline(t *testing.T) {
	region := &graph.Graph{FirstOut: []uint32{0}}
	pl, err := Default().NewPipeline(region, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Refiners, 2)
	assert.Equal(t, sample.KMeans{Percent: 0.2, MaxSize: 100, Seed: 1234}, pl.Sampler)

	bad := Default()
	bad.Refine.Passes = 0
	_, err = bad.NewPipeline(region, nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	buf.Reset()
	NewLogger("verbose", "text", &buf).Info("fallback")
	assert.Contains(t, buf.String(), "msg=fallback")
}
