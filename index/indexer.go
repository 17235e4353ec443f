package index

import "fmt"

// Projection is one chunk touched by a selection: which chunk (ChunkCoord),
// which sub-region of that chunk is selected (ChunkSelection, chunk-local
// 0-based coordinates), and where in the caller's dense output buffer that
// sub-region lands (OutSelection, output-local 0-based coordinates).
//
// Grounded on the teacher's ChunkCoordinator + hyperslab chunk-overlap logic
// (dataset_read_hyperslab.go: findOverlappingChunks/generateChunkCoordinates/
// extractChunkPortion), which together compute exactly this triple, just for
// a dataset fixed to on-disk HDF5 chunk layout rather than an abstract grid.
type Projection struct {
	ChunkCoord     []int64
	ChunkSelection Selection
	OutSelection   Selection
}

// axisProjection is one chunk's contribution along a single axis.
type axisProjection struct {
	chunkIndex int64
	chunkLocal Range
	outLocal   Range
}

// Enumerate produces, in row-major order over ChunkCoord (last axis varies
// fastest), every chunk projection touched by sel over an array with the
// given chunk_shape. sel must already be normalized (NormalizeSelection).
func Enumerate(sel Selection, chunkShape []int64) ([]Projection, error) {
	if len(sel) != len(chunkShape) {
		return nil, fmt.Errorf("selection rank %d != chunk_shape rank %d", len(sel), len(chunkShape))
	}

	perAxis := make([][]axisProjection, len(sel))
	for i, r := range sel {
		axisProjs, err := axisChunkProjections(r, chunkShape[i])
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		perAxis[i] = axisProjs
	}

	var out []Projection
	combo := make([]int, len(perAxis))
	var recurse func(dim int)
	recurse = func(dim int) {
		if dim == len(perAxis) {
			coord := make([]int64, len(perAxis))
			chunkSel := make(Selection, len(perAxis))
			outSel := make(Selection, len(perAxis))
			for i, idx := range combo {
				ap := perAxis[i][idx]
				coord[i] = ap.chunkIndex
				chunkSel[i] = ap.chunkLocal
				outSel[i] = ap.outLocal
			}
			out = append(out, Projection{ChunkCoord: coord, ChunkSelection: chunkSel, OutSelection: outSel})
			return
		}
		for i := range perAxis[dim] {
			combo[dim] = i
			recurse(dim + 1)
		}
	}
	recurse(0)

	return out, nil
}

// axisChunkProjections computes, for a single axis selection r over chunks
// of size chunkSize, the ordered list of chunks that contribute and their
// chunk-local / output-local sub-ranges.
//
// Algorithm (spec section 4.2): the first touched chunk is floor(S/C), the
// last is ceil(E/C)-1. For each such chunk j, the first selected position
// >= j*C that is congruent to S mod K is found; if it lies before
// min((j+1)*C, E) the chunk contributes a strided run with step K in
// chunk-local coordinates, landing as a dense run with step 1 in
// output-local coordinates.
func axisChunkProjections(r Range, chunkSize int64) ([]axisProjection, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	s, e, k := r.Start, r.Stop, r.Step
	if e <= s {
		return nil, nil
	}

	firstChunk := s / chunkSize
	lastChunk := (e + chunkSize - 1) / chunkSize
	if lastChunk > 0 {
		lastChunk--
	}

	var out []axisProjection
	outIndex := int64(0)

	for j := firstChunk; j <= lastChunk; j++ {
		chunkStart := j * chunkSize
		chunkEnd := chunkStart + chunkSize
		regionEnd := min64(chunkEnd, e)

		// First position >= chunkStart congruent to s (mod k).
		pos := firstCongruent(s, k, chunkStart)
		if pos >= regionEnd {
			continue
		}

		count := (regionEnd - pos + k - 1) / k
		if count <= 0 {
			continue
		}

		out = append(out, axisProjection{
			chunkIndex: j,
			chunkLocal: Range{Start: pos - chunkStart, Stop: pos - chunkStart + (count-1)*k + 1, Step: k},
			outLocal:   Range{Start: outIndex, Stop: outIndex + count, Step: 1},
		})
		outIndex += count
	}

	return out, nil
}

// firstCongruent returns the smallest value >= floor that is >= s and
// congruent to s modulo k (i.e. s + m*k for the smallest non-negative
// integer m with s+m*k >= floor).
func firstCongruent(s, k, floor int64) int64 {
	if floor <= s {
		return s
	}
	delta := floor - s
	m := (delta + k - 1) / k
	return s + m*k
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
