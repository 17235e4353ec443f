package codec

import (
	"fmt"

	"github.com/scigolib/zart/buffer"
)

// Pipeline is an ordered codec chain matching the grammar A* B C*: zero or
// more array codecs, exactly one serializer, zero or more bytes codecs.
// Grounded on the teacher's FilterPipeline (internal/writer/filter_pipeline.go),
// which applies filters forward on write and in reverse on read; generalized
// here to a closed three-kind grammar with a required serializer stage
// instead of an open list of uniform byte filters.
type Pipeline struct {
	arrayCodecs []ArrayCodec
	serializer  Serializer
	bytesCodecs []BytesCodec
}

// NewPipeline validates and builds a pipeline from its stages. arrayCodecs
// run first-to-last on encode (last-to-first on decode); bytesCodecs run
// first-to-last on encode (last-to-first on decode), after the serializer.
func NewPipeline(arrayCodecs []ArrayCodec, serializer Serializer, bytesCodecs []BytesCodec) (*Pipeline, error) {
	if serializer == nil {
		return nil, fmt.Errorf("codec pipeline: exactly one array->bytes serializer is required")
	}
	return &Pipeline{
		arrayCodecs: append([]ArrayCodec(nil), arrayCodecs...),
		serializer:  serializer,
		bytesCodecs: append([]BytesCodec(nil), bytesCodecs...),
	}, nil
}

// Serializer returns the pipeline's single array->bytes stage, so callers
// can type-assert for codec-specific setup (e.g. sharding's fill value).
func (p *Pipeline) Serializer() Serializer { return p.serializer }

// Encode runs the full pipeline over a dense chunk buffer, producing the
// stored byte representation.
func (p *Pipeline) Encode(chunk *buffer.Dense) ([]byte, error) {
	arr := chunk
	for _, c := range p.arrayCodecs {
		next, err := c.EncodeArray(arr)
		if err != nil {
			return nil, fmt.Errorf("codec %q encode: %w", c.Name(), err)
		}
		arr = next
	}
	data, err := p.serializer.EncodeBytes(arr)
	if err != nil {
		return nil, fmt.Errorf("codec %q encode: %w", p.serializer.Name(), err)
	}
	for _, c := range p.bytesCodecs {
		next, err := c.EncodeBytes(data)
		if err != nil {
			return nil, fmt.Errorf("codec %q encode: %w", c.Name(), err)
		}
		data = next
	}
	return data, nil
}

// Decode reverses Encode, given the chunk's own logical shape (the shape
// Encode was called with) and element size. Array codecs earlier in the
// chain may change shape before the serializer ever sees the data (e.g.
// transpose over non-cubic chunks), so Decode derives the shape the
// serializer must reconstruct by running the array codecs' forward shape
// transform over chunkShape, rather than handing chunkShape to the
// serializer directly.
func (p *Pipeline) Decode(data []byte, chunkShape []int64, elemSize int) (*buffer.Dense, error) {
	for i := len(p.bytesCodecs) - 1; i >= 0; i-- {
		c := p.bytesCodecs[i]
		next, err := c.DecodeBytes(data)
		if err != nil {
			return nil, fmt.Errorf("codec %q decode: %w", c.Name(), err)
		}
		data = next
	}
	serializerShape := chunkShape
	for _, c := range p.arrayCodecs {
		next, err := c.EncodeShape(serializerShape)
		if err != nil {
			return nil, fmt.Errorf("codec %q encode shape: %w", c.Name(), err)
		}
		serializerShape = next
	}
	arr, err := p.serializer.DecodeBytes(data, serializerShape, elemSize)
	if err != nil {
		return nil, fmt.Errorf("codec %q decode: %w", p.serializer.Name(), err)
	}
	for i := len(p.arrayCodecs) - 1; i >= 0; i-- {
		c := p.arrayCodecs[i]
		prev, err := c.DecodeArray(arr)
		if err != nil {
			return nil, fmt.Errorf("codec %q decode: %w", c.Name(), err)
		}
		arr = prev
	}
	return arr, nil
}

// ComputeEncodedSize chains compute_encoded_size through the bytes stages;
// returns false as soon as any stage's size is unknown.
func (p *Pipeline) ComputeEncodedSize(inputSize int64) (int64, bool) {
	size, known := p.serializer.ComputeEncodedSize(inputSize)
	if !known {
		return 0, false
	}
	for _, c := range p.bytesCodecs {
		size, known = c.ComputeEncodedSize(size)
		if !known {
			return 0, false
		}
	}
	return size, true
}
