package codec

import (
	"encoding/json"
	"fmt"

	"github.com/scigolib/zart/buffer"
)

// Transpose is an array->array codec that permutes axes, materializing a
// new row-major dense buffer in the permuted order (spec section 9 calls
// out that array->array codecs may change shape/strides but the engine
// must restore canonical row-major order before returning to callers).
type Transpose struct {
	order []int
}

type transposeConfig struct {
	Order []int `json:"order"`
}

// NewTranspose builds a transpose codec for the given axis permutation
// (order[i] names which input axis becomes output axis i).
func NewTranspose(order []int) *Transpose {
	return &Transpose{order: append([]int(nil), order...)}
}

// NewTransposeFromConfig builds a transpose codec from a JSON configuration
// blob of the form {"order": [...]}.
func NewTransposeFromConfig(raw json.RawMessage) (*Transpose, error) {
	var cfg transposeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("transpose codec: invalid configuration: %w", err)
	}
	if len(cfg.Order) == 0 {
		return nil, fmt.Errorf("transpose codec: configuration.order is required")
	}
	return NewTranspose(cfg.Order), nil
}

func (t *Transpose) Name() string { return "transpose" }

func (t *Transpose) inverseOrder() []int {
	inv := make([]int, len(t.order))
	for i, o := range t.order {
		inv[o] = i
	}
	return inv
}

// EncodeArray permutes in's axes according to order.
func (t *Transpose) EncodeArray(in *buffer.Dense) (*buffer.Dense, error) {
	return t.permute(in, t.order)
}

// DecodeArray applies the inverse permutation.
func (t *Transpose) DecodeArray(in *buffer.Dense) (*buffer.Dense, error) {
	return t.permute(in, t.inverseOrder())
}

// EncodeShape reports the shape EncodeArray produces for an input of the
// given shape: outShape[i] = shape[order[i]].
func (t *Transpose) EncodeShape(shape []int64) ([]int64, error) {
	return permutedShape(shape, t.order)
}

func permutedShape(shape []int64, order []int) ([]int64, error) {
	rank := len(shape)
	if len(order) != rank {
		return nil, fmt.Errorf("transpose codec: order length %d != array rank %d", len(order), rank)
	}
	outShape := make([]int64, rank)
	for i, o := range order {
		if o < 0 || o >= rank {
			return nil, fmt.Errorf("transpose codec: order[%d]=%d out of range", i, o)
		}
		outShape[i] = shape[o]
	}
	return outShape, nil
}

func (t *Transpose) permute(in *buffer.Dense, order []int) (*buffer.Dense, error) {
	rank := len(in.Shape)
	outShape, err := permutedShape(in.Shape, order)
	if err != nil {
		return nil, err
	}

	out := buffer.NewDense(outShape, in.ElemSize)
	inCoord := make([]int64, rank)
	outCoord := make([]int64, rank)

	var recurse func(dim int) error
	recurse = func(dim int) error {
		if dim == rank {
			for i, o := range order {
				outCoord[i] = inCoord[o]
			}
			src, err := in.Element(inCoord)
			if err != nil {
				return err
			}
			dstOff, err := out.Offset(outCoord)
			if err != nil {
				return err
			}
			copy(out.Data[dstOff:dstOff+int64(out.ElemSize)], src)
			return nil
		}
		for i := int64(0); i < in.Shape[dim]; i++ {
			inCoord[dim] = i
			if err := recurse(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recurse(0); err != nil {
		return nil, err
	}
	return out, nil
}
