package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

const (
	magicBytes = "LOOPRGN1"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

// fileHeader is the uncompressed binary header. Everything after it is a
// single zstd frame (which carries its own checksum).
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// WriteBinary serializes a region graph to path. The file is written to a
// temporary sibling and renamed into place.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	if err := Encode(f, g); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Encode writes g to w.
func Encode(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)

	hdr := fileHeader{
		Version:  version,
		NumNodes: g.NumNodes,
		NumEdges: g.NumEdges,
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	zw, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}

	fields := []struct {
		name string
		data any
	}{
		{"FirstOut", g.FirstOut},
		{"Head", g.Head},
		{"Weight", g.Weight},
		{"NodeLat", g.NodeLat},
		{"NodeLon", g.NodeLon},
		{"OSMID", osmIDsOrZero(g)},
	}
	for _, field := range fields {
		if err := binary.Write(zw, binary.LittleEndian, field.data); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", field.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zstd: %w", err)
	}
	return bw.Flush()
}

func osmIDsOrZero(g *Graph) []int64 {
	if len(g.OSMID) == int(g.NumNodes) {
		return g.OSMID
	}
	return make([]int64, g.NumNodes)
}

// ReadBinary deserializes a region graph from path.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// Decode reads a graph written by Encode and validates its CSR invariants.
func Decode(r io.Reader) (*Graph, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	g := &Graph{
		NumNodes: hdr.NumNodes,
		NumEdges: hdr.NumEdges,
		FirstOut: make([]uint32, hdr.NumNodes+1),
		Head:     make([]uint32, hdr.NumEdges),
		Weight:   make([]uint32, hdr.NumEdges),
		NodeLat:  make([]float64, hdr.NumNodes),
		NodeLon:  make([]float64, hdr.NumNodes),
		OSMID:    make([]int64, hdr.NumNodes),
	}
	fields := []struct {
		name string
		data any
	}{
		{"FirstOut", g.FirstOut},
		{"Head", g.Head},
		{"Weight", g.Weight},
		{"NodeLat", g.NodeLat},
		{"NodeLon", g.NodeLon},
		{"OSMID", g.OSMID},
	}
	for _, field := range fields {
		if err := binary.Read(zr, binary.LittleEndian, field.data); err != nil {
			return nil, fmt.Errorf("read %s: %w", field.name, err)
		}
	}

	if err := validateCSR(g.FirstOut, g.Head, g.NumNodes); err != nil {
		return nil, fmt.Errorf("CSR invalid: %w", err)
	}
	return g, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}
