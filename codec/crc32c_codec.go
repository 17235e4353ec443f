package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// CRC32C is a bytes->bytes checksum codec appending a 4-byte CRC-32C
// (Castagnoli) checksum on encode and verifying/stripping it on decode.
// Grounded on the teacher's internal/writer/filter_fletcher32.go
// Fletcher32Filter append/verify/strip shape, substituting the
// Castagnoli polynomial since no third-party Castagnoli-CRC package is
// available (see DESIGN.md).
type CRC32C struct{}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// NewCRC32C builds a crc32c checksum codec.
func NewCRC32C() *CRC32C { return &CRC32C{} }

func (c *CRC32C) Name() string { return "crc32c" }

// EncodeBytes appends a 4-byte little-endian CRC-32C of in to the end of in.
func (c *CRC32C) EncodeBytes(in []byte) ([]byte, error) {
	sum := crc32.Checksum(in, crc32cTable)
	out := make([]byte, len(in)+4)
	copy(out, in)
	binary.LittleEndian.PutUint32(out[len(in):], sum)
	return out, nil
}

// DecodeBytes verifies and strips the trailing 4-byte checksum.
func (c *CRC32C) DecodeBytes(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("crc32c codec: data too short (%d bytes)", len(in))
	}
	payload := in[:len(in)-4]
	want := binary.LittleEndian.Uint32(in[len(in)-4:])
	got := crc32.Checksum(payload, crc32cTable)
	if got != want {
		return nil, fmt.Errorf("crc32c codec: checksum mismatch: got %08x want %08x", got, want)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (c *CRC32C) ComputeEncodedSize(inputSize int64) (int64, bool) {
	return inputSize + 4, true
}
