package index

import "fmt"

// CoordMapper converts between linear chunk indices and N-dimensional chunk
// coordinates over a regular grid, and reports each chunk's true (possibly
// truncated) size. Grounded on the teacher's
// internal/writer/chunk_coordinator.go ChunkCoordinator, generalized from a
// fixed on-disk dataset to any (shape, chunk_shape) pair — used by the array
// engine's chunk iterator and by the sharding codec's inner-chunk grid.
type CoordMapper struct {
	shape      []int64
	chunkShape []int64
	numChunks  []int64
}

// NewCoordMapper builds a mapper for the given logical shape and chunk
// shape, computing the number of chunks per axis by ceiling division.
func NewCoordMapper(shape, chunkShape []int64) (*CoordMapper, error) {
	if len(shape) != len(chunkShape) {
		return nil, fmt.Errorf("shape rank %d != chunk_shape rank %d", len(shape), len(chunkShape))
	}
	numChunks := make([]int64, len(shape))
	for i := range shape {
		if chunkShape[i] <= 0 {
			return nil, fmt.Errorf("chunk_shape[%d] must be positive", i)
		}
		if shape[i] < 0 {
			return nil, fmt.Errorf("shape[%d] must be non-negative", i)
		}
		numChunks[i] = ceilDiv(shape[i], chunkShape[i])
	}
	return &CoordMapper{shape: shape, chunkShape: chunkShape, numChunks: numChunks}, nil
}

func ceilDiv(a, b int64) int64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// TotalChunks returns the total number of chunks in the grid.
func (cm *CoordMapper) TotalChunks() int64 {
	total := int64(1)
	for _, n := range cm.numChunks {
		total *= n
	}
	return total
}

// NumChunks returns the per-axis chunk counts.
func (cm *CoordMapper) NumChunks() []int64 {
	out := make([]int64, len(cm.numChunks))
	copy(out, cm.numChunks)
	return out
}

// CoordForIndex converts a row-major linear chunk index into its
// N-dimensional coordinate (last axis fastest-varying).
func (cm *CoordMapper) CoordForIndex(index int64) []int64 {
	coord := make([]int64, len(cm.numChunks))
	remaining := index
	for i := len(cm.numChunks) - 1; i >= 0; i-- {
		coord[i] = remaining % cm.numChunks[i]
		remaining /= cm.numChunks[i]
	}
	return coord
}

// ChunkExtent returns the true (possibly truncated by the array's shape)
// size of the chunk at coord.
func (cm *CoordMapper) ChunkExtent(coord []int64) []int64 {
	extent := make([]int64, len(coord))
	for i, c := range coord {
		start := c * cm.chunkShape[i]
		end := start + cm.chunkShape[i]
		if end > cm.shape[i] {
			end = cm.shape[i]
		}
		extent[i] = end - start
	}
	return extent
}

// AllCoords enumerates every chunk coordinate in the grid, row-major order.
func (cm *CoordMapper) AllCoords() [][]int64 {
	total := cm.TotalChunks()
	out := make([][]int64, 0, total)
	for i := int64(0); i < total; i++ {
		out = append(out, cm.CoordForIndex(i))
	}
	return out
}
