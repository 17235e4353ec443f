// Package codec implements the ordered chain of transforms applied to a
// chunk's bytes during encode, and reversed during decode: zero or more
// array->array codecs, exactly one array->bytes serializer, then zero or
// more bytes->bytes codecs. Grounded on the teacher's FilterPipeline
// (internal/writer/filter_pipeline.go and internal/core/filterpipeline.go):
// an ordered list of named transforms applied forward on write and in
// reverse on read, generalized from HDF5's fixed
// shuffle->compress->checksum ordering to the spec's closed A*·B·C* grammar
// with a pluggable-by-name registry (spec section 9's "closed tagged-variant
// plus registry" design note).
package codec

import (
	"encoding/json"

	"github.com/scigolib/zart/buffer"
)

// Spec is the JSON-serializable configuration for one codec in a pipeline,
// matching the "codecs" array entries of spec section 6's metadata
// document: {"name": "...", "configuration": {...}}.
type Spec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// Kind classifies a codec by where it sits in the A*·B·C* pipeline grammar.
type Kind uint8

const (
	KindArrayToArray Kind = iota // A: transforms one dense array into another
	KindArrayToBytes             // B: the single serializer, array -> bytes
	KindBytesToBytes             // C: bytes -> bytes (compression, checksum, ...)
)

// ArrayCodec is an array->array transform (e.g. transpose): encode takes a
// dense array and returns a (possibly differently shaped) dense array;
// decode inverts it.
type ArrayCodec interface {
	Name() string
	EncodeArray(in *buffer.Dense) (*buffer.Dense, error)
	DecodeArray(in *buffer.Dense) (*buffer.Dense, error)
	// EncodeShape reports the shape EncodeArray would produce for an input
	// of the given shape, without touching any data. Pipeline uses this to
	// derive the shape the serializer must reconstruct on decode, since a
	// shape-altering array codec (e.g. transpose over non-cubic chunks)
	// means that shape differs from the chunk's own logical shape.
	EncodeShape(shape []int64) ([]int64, error)
}

// Serializer is the single array->bytes codec required in every pipeline
// (spec section 3: "exactly one array->bytes codec must appear").
type Serializer interface {
	Name() string
	EncodeBytes(in *buffer.Dense) ([]byte, error)
	// DecodeBytes reconstructs a dense array of the given shape/element size
	// from encoded bytes.
	DecodeBytes(data []byte, shape []int64, elemSize int) (*buffer.Dense, error)
	// ComputeEncodedSize returns the encoded size for a chunk with the given
	// number of input bytes, or false if unknown (used to pre-allocate).
	ComputeEncodedSize(inputSize int64) (size int64, known bool)
}

// BytesCodec is a bytes->bytes transform (e.g. compression, checksum).
type BytesCodec interface {
	Name() string
	EncodeBytes(in []byte) ([]byte, error)
	DecodeBytes(in []byte) ([]byte, error)
	ComputeEncodedSize(inputSize int64) (size int64, known bool)
}
