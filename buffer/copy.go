package buffer

import (
	"fmt"

	"github.com/scigolib/zart/index"
)

// CopyRegion copies the rectangular, possibly strided region srcSel of src
// into dstSel of dst, element by element. srcSel and dstSel must describe
// regions of identical shape (spec section 4.5 step 3: chunk_selection into
// out_selection, and back again for partial-chunk writes).
func CopyRegion(dst *Dense, dstSel index.Selection, src *Dense, srcSel index.Selection) error {
	if dst.ElemSize != src.ElemSize {
		return fmt.Errorf("element size mismatch: dst=%d src=%d", dst.ElemSize, src.ElemSize)
	}
	if len(dstSel) != len(srcSel) {
		return fmt.Errorf("selection rank mismatch: dst=%d src=%d", len(dstSel), len(srcSel))
	}
	for i := range dstSel {
		if dstSel[i].Len() != srcSel[i].Len() {
			return fmt.Errorf("axis %d: selection length mismatch: dst=%d src=%d", i, dstSel[i].Len(), srcSel[i].Len())
		}
	}

	rank := len(dstSel)
	dstCoord := make([]int64, rank)
	srcCoord := make([]int64, rank)

	var recurse func(dim int) error
	recurse = func(dim int) error {
		if dim == rank {
			srcElem, err := src.Element(srcCoord)
			if err != nil {
				return err
			}
			dstOff, err := dst.Offset(dstCoord)
			if err != nil {
				return err
			}
			copy(dst.Data[dstOff:dstOff+int64(dst.ElemSize)], srcElem)
			return nil
		}
		dr, sr := dstSel[dim], srcSel[dim]
		si := sr.Start
		for di := dr.Start; di < dr.Stop; di += dr.Step {
			dstCoord[dim] = di
			srcCoord[dim] = si
			if err := recurse(dim + 1); err != nil {
				return err
			}
			si += sr.Step
		}
		return nil
	}

	return recurse(0)
}

// Fill sets every element of d to the bytes in fillValue (len(fillValue) ==
// d.ElemSize).
func Fill(d *Dense, fillValue []byte) {
	for off := 0; off+len(fillValue) <= len(d.Data); off += len(fillValue) {
		copy(d.Data[off:off+len(fillValue)], fillValue)
	}
}

// IsAllFill reports whether every element of d equals fillValue.
func IsAllFill(d *Dense, fillValue []byte) bool {
	for off := 0; off+len(fillValue) <= len(d.Data); off += len(fillValue) {
		for i, b := range fillValue {
			if d.Data[off+i] != b {
				return false
			}
		}
	}
	return true
}
