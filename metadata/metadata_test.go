package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/zart/codec"
)

func TestParseDataTypeBuiltins(t *testing.T) {
	dt, err := ParseDataType("int32")
	require.NoError(t, err)
	assert.Equal(t, 4, dt.ByteSize)
	assert.Equal(t, KindInt, dt.Kind)
}

func TestParseDataTypeRawBytes(t *testing.T) {
	dt, err := ParseDataType("r128")
	require.NoError(t, err)
	assert.Equal(t, 16, dt.ByteSize)
	assert.Equal(t, KindRawBytes, dt.Kind)
}

func TestParseDataTypeUnknown(t *testing.T) {
	_, err := ParseDataType("nonsense")
	assert.Error(t, err)
}

func TestFillValueFloatSpecialTokens(t *testing.T) {
	dt, _ := ParseDataType("float64")

	nan, err := ParseFillValue(json.RawMessage(`"NaN"`), dt)
	require.NoError(t, err)
	tok, err := SerializeFillValue(nan, dt)
	require.NoError(t, err)
	assert.Equal(t, `"NaN"`, string(tok))

	posInf, err := ParseFillValue(json.RawMessage(`"Infinity"`), dt)
	require.NoError(t, err)
	tok, err = SerializeFillValue(posInf, dt)
	require.NoError(t, err)
	assert.Equal(t, `"Infinity"`, string(tok))
}

func TestFillValueIntegerZeroDecodesToFloatZero(t *testing.T) {
	dt, _ := ParseDataType("float64")
	fv, err := ParseFillValue(json.RawMessage(`0`), dt)
	require.NoError(t, err)
	tok, err := SerializeFillValue(fv, dt)
	require.NoError(t, err)
	assert.Equal(t, `0`, string(tok))
}

func TestFillValueDefaultIsZero(t *testing.T) {
	dt, _ := ParseDataType("int32")
	fv, err := ParseFillValue(nil, dt)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), fv)
}

func TestFillValueRawBytesRoundTrip(t *testing.T) {
	dt, _ := ParseDataType("r32")
	raw := json.RawMessage(`"AQIDBA=="`) // base64 of 0x01 0x02 0x03 0x04
	fv, err := ParseFillValue(raw, dt)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, fv)

	tok, err := SerializeFillValue(fv, dt)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(tok))
}

const sampleArrayDoc = `{
  "zarr_format": 3,
  "node_type": "array",
  "shape": [10, 20],
  "data_type": "int32",
  "chunk_grid": {"name": "regular", "configuration": {"chunk_shape": [5, 5]}},
  "chunk_key_encoding": {"name": "default", "configuration": {"separator": "/"}},
  "fill_value": 0,
  "codecs": [{"name": "bytes", "configuration": {"endian": "little"}}],
  "attributes": {"units": "meters"},
  "dimension_names": ["x", "y"],
  "custom_extension": {"vendor": "acme"}
}`

func TestParseArrayMetadataV3(t *testing.T) {
	m, err := ParseArrayMetadataV3([]byte(sampleArrayDoc))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, m.Shape)
	assert.Equal(t, []int64{5, 5}, m.ChunkShape)
	assert.Equal(t, "int32", m.DataType.Name)
	assert.Equal(t, "default", m.ChunkKeyEncoding.Name)
	assert.Contains(t, m.Extra, "custom_extension")
}

// Metadata round-trip (spec section 8, invariant 5): parse(serialize(m)) ==
// m, including preservation of unknown keys.
func TestArrayMetadataV3RoundTrip(t *testing.T) {
	m, err := ParseArrayMetadataV3([]byte(sampleArrayDoc))
	require.NoError(t, err)

	out, err := m.MarshalV3()
	require.NoError(t, err)

	m2, err := ParseArrayMetadataV3(out)
	require.NoError(t, err)

	assert.Equal(t, m.Shape, m2.Shape)
	assert.Equal(t, m.ChunkShape, m2.ChunkShape)
	assert.Equal(t, m.DataType, m2.DataType)
	assert.Equal(t, m.Extra["custom_extension"], m2.Extra["custom_extension"])
}

func TestArrayMetadataValidateRejectsRankMismatch(t *testing.T) {
	m := &ArrayMetadata{
		Shape:            []int64{10},
		ChunkShape:       []int64{2, 2},
		DataType:         builtinDataTypes["int32"],
		ChunkKeyEncoding: DefaultChunkKeyEncoding(),
		Codecs:           []codec.Spec{{Name: "bytes"}},
	}
	err := m.Validate()
	assert.Error(t, err)
}

func TestChunkKeyEncodingDefault(t *testing.T) {
	enc := DefaultChunkKeyEncoding()
	key, err := enc.Format([]int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "c/1/2/3", key)
}

func TestChunkKeyEncodingV2(t *testing.T) {
	enc := V2ChunkKeyEncoding()
	key, err := enc.Format([]int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", key)
}

func TestChunkKeyEncodingZeroDimensional(t *testing.T) {
	def := DefaultChunkKeyEncoding()
	k, err := def.Format(nil)
	require.NoError(t, err)
	assert.Equal(t, "c", k)

	v2 := V2ChunkKeyEncoding()
	k, err = v2.Format(nil)
	require.NoError(t, err)
	assert.Equal(t, "0", k)
}

func TestParseGroupMetadataV3RequiresGroupNodeType(t *testing.T) {
	_, err := ParseGroupMetadataV3([]byte(`{"zarr_format":3,"node_type":"array"}`))
	assert.Error(t, err)
}

func TestGroupMetadataV3RoundTrip(t *testing.T) {
	g, err := ParseGroupMetadataV3([]byte(`{"zarr_format":3,"node_type":"group","attributes":{"a":1},"vendor_ext":true}`))
	require.NoError(t, err)

	out, err := g.MarshalV3()
	require.NoError(t, err)

	g2, err := ParseGroupMetadataV3(out)
	require.NoError(t, err)
	assert.JSONEq(t, string(g.Attributes), string(g2.Attributes))
	assert.Contains(t, g2.Extra, "vendor_ext")
}

func TestParseDtypeStringV2(t *testing.T) {
	dt, order, err := parseDtypeStringV2("<i4")
	require.NoError(t, err)
	assert.Equal(t, "int32", dt.Name)
	assert.Equal(t, 0, int(order))

	dt, order, err = parseDtypeStringV2(">f8")
	require.NoError(t, err)
	assert.Equal(t, "float64", dt.Name)
	assert.Equal(t, 1, int(order))
}

func TestArrayMetadataV2RoundTrip(t *testing.T) {
	zarray := `{
	  "zarr_format": 2,
	  "shape": [5],
	  "chunks": [2],
	  "dtype": "<u1",
	  "compressor": {"id":"gzip","level":5},
	  "filters": null,
	  "fill_value": 0,
	  "order": "C"
	}`
	m, err := ParseArrayMetadataV2([]byte(zarray), []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, m.Shape)
	assert.Equal(t, "uint8", m.DataType.Name)
	assert.Equal(t, "v2", m.ChunkKeyEncoding.Name)
	require.Len(t, m.Codecs, 2)
	assert.Equal(t, "bytes", m.Codecs[0].Name)
	assert.Equal(t, "gzip", m.Codecs[1].Name)

	out, err := m.MarshalV2()
	require.NoError(t, err)

	m2, err := ParseArrayMetadataV2(out, nil)
	require.NoError(t, err)
	assert.Equal(t, m.Shape, m2.Shape)
	assert.Equal(t, m.DataType, m2.DataType)
}
