package graph_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"

	"loop_router/pkg/graph"
	osmparser "loop_router/pkg/osm"
)

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1, 30: 1.2, 40: 1.3},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.3},
	}
	return graph.Build(result)
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "region.bin")

	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)
	require.Equal(t, original, loaded)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestBinaryRoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	empty := &graph.Graph{FirstOut: []uint32{0}}
	require.NoError(t, graph.Encode(&buf, empty))

	loaded, err := graph.Decode(&buf)
	require.NoError(t, err)
	require.Zero(t, loaded.NumNodes)
	require.Zero(t, loaded.NumEdges)
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_LOOP_REGION_FILE_AT_ALL_PADDING"), 0o644))

	_, err := graph.ReadBinary(path)
	require.Error(t, err)
}

func TestBinaryTruncatedFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, graph.Encode(&buf, buildTestGraph(t)))

	truncated := buf.Bytes()[:buf.Len()/2]
	_, err := graph.Decode(bytes.NewReader(truncated))
	require.Error(t, err)
}
