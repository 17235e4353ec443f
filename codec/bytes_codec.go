package codec

import (
	"encoding/json"
	"fmt"

	"github.com/scigolib/zart/buffer"
)

// BytesSerializer is the mandatory array->bytes codec ("bytes" in the
// registry): it lays out a dense buffer's elements in the requested byte
// order. For single-byte element types the endianness choice is a no-op.
// Grounded on the teacher's internal/utils.ReadUint64/ReadUint16-style
// endian-aware accessors, generalized from fixed-width HDF5 field reads to
// a whole-buffer element-wise byte swap.
type BytesSerializer struct {
	order Endian
}

type bytesConfig struct {
	Endian string `json:"endian"`
}

// NewBytesSerializer builds a bytes codec for the given byte order.
func NewBytesSerializer(order Endian) *BytesSerializer {
	return &BytesSerializer{order: order}
}

// NewBytesSerializerFromConfig builds a bytes codec from a JSON
// configuration blob of the form {"endian": "little"|"big"}.
func NewBytesSerializerFromConfig(raw json.RawMessage) (*BytesSerializer, error) {
	order := LittleEndian
	if len(raw) > 0 {
		var cfg bytesConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("bytes codec: invalid configuration: %w", err)
		}
		switch cfg.Endian {
		case "", "little":
			order = LittleEndian
		case "big":
			order = BigEndian
		default:
			return nil, fmt.Errorf("bytes codec: unknown endian %q", cfg.Endian)
		}
	}
	return NewBytesSerializer(order), nil
}

func (b *BytesSerializer) Name() string { return "bytes" }

// EncodeBytes returns the buffer's row-major bytes, byte-swapped per
// element if the requested order differs from native storage order (the
// buffer model always stores elements in little-endian layout internally).
func (b *BytesSerializer) EncodeBytes(in *buffer.Dense) ([]byte, error) {
	if in.ElemSize <= 1 || b.order == LittleEndian {
		out := make([]byte, len(in.Data))
		copy(out, in.Data)
		return out, nil
	}
	return swapElements(in.Data, in.ElemSize), nil
}

// DecodeBytes reconstructs a dense buffer of the given shape/element size
// from encoded bytes, reversing any byte swap applied on encode.
func (b *BytesSerializer) DecodeBytes(data []byte, shape []int64, elemSize int) (*buffer.Dense, error) {
	want := buffer.NumElements(shape) * int64(elemSize)
	if int64(len(data)) != want {
		return nil, fmt.Errorf("bytes codec: expected %d bytes, got %d", want, len(data))
	}
	raw := data
	if elemSize > 1 && b.order == BigEndian {
		raw = swapElements(data, elemSize)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return buffer.WrapDense(out, shape, elemSize), nil
}

func (b *BytesSerializer) ComputeEncodedSize(inputSize int64) (int64, bool) {
	return inputSize, true
}

func swapElements(data []byte, elemSize int) []byte {
	out := make([]byte, len(data))
	tmp := make([]byte, elemSize)
	for off := 0; off+elemSize <= len(data); off += elemSize {
		copy(tmp, data[off:off+elemSize])
		for i := 0; i < elemSize; i++ {
			out[off+i] = tmp[elemSize-1-i]
		}
	}
	return out
}
