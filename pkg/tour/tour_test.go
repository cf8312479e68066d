package tour

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linePaths walks integer node ids one step at a time.
type linePaths struct{}

func (linePaths) ShortestPath(s, t uint32) ([]uint32, error) {
	if s == 99 || t == 99 {
		return nil, errors.New("missing")
	}
	p := []uint32{s}
	for s != t {
		if s < t {
			s++
		} else {
			s--
		}
		p = append(p, s)
	}
	return p, nil
}

func TestTourAccessors(t *testing.T) {
	tr := Tour{0, 4, 5, 6, 0}
	assert.Equal(t, uint32(0), tr.Depot())
	assert.Equal(t, []uint32{4, 5, 6}, tr.Interior())
	assert.True(t, tr.Contains(5))
	assert.False(t, tr.Contains(0))
	assert.True(t, tr.IsExterior(4))
	assert.True(t, tr.IsExterior(6))
	assert.False(t, tr.IsExterior(5))
	assert.False(t, Tour{0, 0}.IsExterior(0))
	assert.Equal(t, Tour{3, 7, 3}, New(3, 7))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Tour{1, 1}.Validate())
	require.NoError(t, Tour{1, 2, 1}.Validate())
	require.Error(t, Tour{1}.Validate())
	require.Error(t, Tour{1, 2, 3}.Validate())
}

func TestDedupAndReversed(t *testing.T) {
	in := []uint32{1, 1, 2, 2, 2, 3, 1, 1}
	assert.Equal(t, []uint32{1, 2, 3, 1}, Dedup(in))
	assert.Equal(t, []uint32{1, 1, 2, 2, 2, 3, 1, 1}, in, "input must not be modified")
	assert.Equal(t, []uint32{3, 2, 1}, Reversed([]uint32{1, 2, 3}))
}

func TestExpand(t *testing.T) {
	got, err := Expand(Tour{0, 3, 1, 0}, linePaths{})
	require.NoError(t, err)
	assert.Equal(t, Tour{0, 1, 2, 3, 2, 1, 0}, got)

	got, err = Expand(Tour{5, 5}, linePaths{})
	require.NoError(t, err)
	assert.Equal(t, Tour{5, 5}, got)

	_, err = Expand(Tour{0, 99, 0}, linePaths{})
	require.Error(t, err)
}
