package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/zart/buffer"
)

func int32Chunk(vals []int32, shape []int64) *buffer.Dense {
	d := buffer.NewDense(shape, 4)
	for i, v := range vals {
		off := int64(i) * 4
		d.Data[off] = byte(v)
		d.Data[off+1] = byte(v >> 8)
		d.Data[off+2] = byte(v >> 16)
		d.Data[off+3] = byte(v >> 24)
	}
	return d
}

func TestBytesCodecRoundTripLittleEndian(t *testing.T) {
	in := int32Chunk([]int32{1, 2, 3, 4}, []int64{4})
	ser := NewBytesSerializer(LittleEndian)

	encoded, err := ser.EncodeBytes(in)
	require.NoError(t, err)
	out, err := ser.DecodeBytes(encoded, in.Shape, in.ElemSize)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestBytesCodecRoundTripBigEndian(t *testing.T) {
	in := int32Chunk([]int32{1, 2, 3, 4}, []int64{4})
	ser := NewBytesSerializer(BigEndian)

	encoded, err := ser.EncodeBytes(in)
	require.NoError(t, err)
	assert.NotEqual(t, in.Data, encoded)

	out, err := ser.DecodeBytes(encoded, in.Shape, in.ElemSize)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestTransposeRoundTrip2D(t *testing.T) {
	in := int32Chunk([]int32{1, 2, 3, 4, 5, 6}, []int64{2, 3})
	tr := NewTranspose([]int{1, 0})

	transposed, err := tr.EncodeArray(in)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, transposed.Shape)

	back, err := tr.DecodeArray(transposed)
	require.NoError(t, err)
	assert.Equal(t, in.Data, back.Data)
	assert.Equal(t, in.Shape, back.Shape)
}

func TestGzipRoundTrip(t *testing.T) {
	g := NewGzip(6)
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated. the quick brown fox jumps over the lazy dog.")

	compressed, err := g.EncodeBytes(payload)
	require.NoError(t, err)

	decompressed, err := g.DecodeBytes(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestCRC32CRoundTrip(t *testing.T) {
	c := NewCRC32C()
	payload := []byte{1, 2, 3, 4, 5}

	encoded, err := c.EncodeBytes(payload)
	require.NoError(t, err)
	assert.Len(t, encoded, len(payload)+4)

	decoded, err := c.DecodeBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCRC32CDetectsCorruption(t *testing.T) {
	c := NewCRC32C()
	encoded, err := c.EncodeBytes([]byte{1, 2, 3})
	require.NoError(t, err)
	encoded[0] ^= 0xFF

	_, err = c.DecodeBytes(encoded)
	assert.Error(t, err)
}

func TestBloscRoundTrip(t *testing.T) {
	b := NewBlosc(0)
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}

	compressed, err := b.EncodeBytes(payload)
	require.NoError(t, err)

	decompressed, err := b.DecodeBytes(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

// Pipeline round-trip invariant (spec section 8, invariant 3): for a chain of
// transpose, bytes, gzip and crc32c, decode(encode(chunk)) reproduces the
// chunk (blosc and sharding are covered by their own tests below).
// The chunk shape [2,3] with a non-cubic transpose order [1,0] is
// deliberately shape-altering: Decode must derive the serializer's expected
// shape [3,2] from the chunk's own shape rather than being handed [2,3]
// directly, or this assertion fails.
func TestPipelineRoundTripAllBaselineCodecs(t *testing.T) {
	in := int32Chunk([]int32{10, 20, 30, 40, 50, 60}, []int64{2, 3})

	specs := []Spec{
		{Name: "transpose", Configuration: json.RawMessage(`{"order":[1,0]}`)},
		{Name: "bytes", Configuration: json.RawMessage(`{"endian":"little"}`)},
		{Name: "gzip", Configuration: json.RawMessage(`{"level":6}`)},
		{Name: "crc32c"},
	}
	pipeline, err := BuildPipeline(specs)
	require.NoError(t, err)

	encoded, err := pipeline.Encode(in)
	require.NoError(t, err)

	out, err := pipeline.Decode(encoded, in.Shape, in.ElemSize)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, in.Shape, out.Shape)
}

// TestTransposeEncodeShapeNonSquare pins down the shape arithmetic Pipeline
// relies on for a non-cubic chunk: a [2,3] input transposed under order
// [1,0] must report [3,2] as the shape the serializer will see.
func TestTransposeEncodeShapeNonSquare(t *testing.T) {
	tr := NewTranspose([]int{1, 0})
	shape, err := tr.EncodeShape([]int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, shape)
}

func TestBuildPipelineRejectsMissingSerializer(t *testing.T) {
	_, err := BuildPipeline([]Spec{{Name: "gzip"}})
	assert.Error(t, err)
}

func TestBuildPipelineRejectsArrayCodecAfterSerializer(t *testing.T) {
	_, err := BuildPipeline([]Spec{{Name: "bytes"}, {Name: "transpose", Configuration: json.RawMessage(`{"order":[0]}`)}})
	assert.Error(t, err)
}

// E6 from spec section 8: shape=[8], chunks=[8], inner-chunks=[2], fill=0.
// Writing [0,0,0,0,5,6,0,0] must round-trip and leave exactly one non-empty
// inner entry, at inner-chunk coordinate 2.
func TestShardingE6(t *testing.T) {
	in := int32Chunk([]int32{0, 0, 0, 0, 5, 6, 0, 0}, []int64{8})

	cfg := json.RawMessage(`{"chunk_shape":[2],"codecs":[{"name":"bytes"}],"index_codecs":[]}`)
	shard, err := NewShardingFromConfig(cfg)
	require.NoError(t, err)
	shard.SetFillValue([]byte{0, 0, 0, 0})

	encoded, err := shard.EncodeBytes(in)
	require.NoError(t, err)

	out, err := shard.DecodeBytes(encoded, in.Shape, in.ElemSize)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)

	footerLen, ok := shard.IndexByteSize(4)
	require.True(t, ok)
	footer := encoded[int64(len(encoded))-footerLen:]
	entries, err := shard.decodeIndex(footer, 4)
	require.NoError(t, err)

	nonEmpty := 0
	for i, e := range entries {
		if !e.Empty() {
			nonEmpty++
			assert.Equal(t, 2, i, "expected the single non-empty inner chunk at coordinate 2")
		}
	}
	assert.Equal(t, 1, nonEmpty)
}

func TestShardingEmptyShardAllFill(t *testing.T) {
	in := int32Chunk([]int32{0, 0, 0, 0}, []int64{4})

	cfg := json.RawMessage(`{"chunk_shape":[2],"codecs":[{"name":"bytes"}]}`)
	shard, err := NewShardingFromConfig(cfg)
	require.NoError(t, err)
	shard.SetFillValue([]byte{0, 0, 0, 0})

	encoded, err := shard.EncodeBytes(in)
	require.NoError(t, err)

	out, err := shard.DecodeBytes(encoded, in.Shape, in.ElemSize)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}
