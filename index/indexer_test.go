package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSelectionDefaults(t *testing.T) {
	sel, err := NormalizeSelection(nil, []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, Selection{{0, 4, 1}, {0, 5, 1}}, sel)
}

func TestNormalizeSelectionNegativeIndices(t *testing.T) {
	sel, err := NormalizeSelection(Selection{{-3, -1, 1}}, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, Range{7, 9, 1}, sel[0])
}

func TestNormalizeSelectionOutOfBounds(t *testing.T) {
	_, err := NormalizeSelection(Selection{{0, 11, 1}}, []int64{10})
	assert.Error(t, err)
}

func TestNormalizeSelectionNegativeStep(t *testing.T) {
	_, err := NormalizeSelection(Selection{{0, 5, -1}}, []int64{10})
	assert.Error(t, err)
}

// E1 from spec section 8: 1D int32 shape=[10] chunks=[3]; get([2:8:2]) must
// enumerate chunks 0,1,2 and cover output positions 0,1,2 exactly once.
func TestEnumerateStridedSingleAxis(t *testing.T) {
	sel, err := NormalizeSelection(Selection{{2, 8, 2}}, []int64{10})
	require.NoError(t, err)

	projections, err := Enumerate(sel, []int64{3})
	require.NoError(t, err)
	require.Len(t, projections, 3)

	seenOut := map[int64]bool{}
	for _, p := range projections {
		require.Len(t, p.OutSelection, 1)
		for i := p.OutSelection[0].Start; i < p.OutSelection[0].Stop; i += p.OutSelection[0].Step {
			assert.False(t, seenOut[i], "out index %d covered twice", i)
			seenOut[i] = true
		}
	}
	assert.Equal(t, map[int64]bool{0: true, 1: true, 2: true}, seenOut)

	expectedChunks := [][]int64{{0}, {1}, {2}}
	var gotChunks [][]int64
	for _, p := range projections {
		gotChunks = append(gotChunks, p.ChunkCoord)
	}
	assert.Equal(t, expectedChunks, gotChunks)
}

func TestEnumerateFullCoverageNoOverlap2D(t *testing.T) {
	shape := []int64{7, 5}
	chunkShape := []int64{3, 2}

	sel, err := NormalizeSelection(nil, shape)
	require.NoError(t, err)

	projections, err := Enumerate(sel, chunkShape)
	require.NoError(t, err)

	covered := make(map[[2]int64]bool)
	total := int64(0)
	for _, p := range projections {
		require.Len(t, p.OutSelection, 2)
		for r0 := p.OutSelection[0].Start; r0 < p.OutSelection[0].Stop; r0++ {
			for r1 := p.OutSelection[1].Start; r1 < p.OutSelection[1].Stop; r1++ {
				key := [2]int64{r0, r1}
				assert.False(t, covered[key], "output %v covered twice", key)
				covered[key] = true
				total++
			}
		}
	}
	assert.Equal(t, int64(35), total)
}

// Row-major order over chunk_coord is a documented, tested contract.
func TestEnumerateRowMajorOrder(t *testing.T) {
	sel, err := NormalizeSelection(nil, []int64{4, 4})
	require.NoError(t, err)
	projections, err := Enumerate(sel, []int64{2, 2})
	require.NoError(t, err)

	var coords [][]int64
	for _, p := range projections {
		coords = append(coords, p.ChunkCoord)
	}
	assert.Equal(t, [][]int64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, coords)
}

func TestCoordMapperTruncatedTailChunk(t *testing.T) {
	cm, err := NewCoordMapper([]int64{25, 35}, []int64{10, 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, cm.NumChunks())
	assert.Equal(t, int64(12), cm.TotalChunks())

	assert.Equal(t, []int64{10, 10}, cm.ChunkExtent([]int64{0, 0}))
	assert.Equal(t, []int64{10, 5}, cm.ChunkExtent([]int64{0, 3}))
	assert.Equal(t, []int64{5, 10}, cm.ChunkExtent([]int64{2, 0}))
	assert.Equal(t, []int64{5, 5}, cm.ChunkExtent([]int64{2, 3}))
}

func TestCoordMapperRoundTrip(t *testing.T) {
	cm, err := NewCoordMapper([]int64{100, 200}, []int64{10, 20})
	require.NoError(t, err)
	all := cm.AllCoords()
	assert.Len(t, all, 100)
	assert.Equal(t, []int64{0, 0}, all[0])
	assert.Equal(t, []int64{9, 9}, all[len(all)-1])
}
