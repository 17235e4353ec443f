package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/scigolib/zart/codec"
	"github.com/scigolib/zart/internal/zerr"
)

// v2 support: the legacy two-sentinel-key format (.zarray/.zattrs for
// arrays, .zgroup/.zattrs for groups) kept for interoperability (spec
// section 6). Dtype strings carry an explicit endianness prefix
// ("<"=little, ">"=big, "|"=not-applicable/single-byte).

// arrayDocV2 mirrors the legacy .zarray structural document.
type arrayDocV2 struct {
	ZarrFormat int             `json:"zarr_format"`
	Shape      []int64         `json:"shape"`
	Chunks     []int64         `json:"chunks"`
	Dtype      string          `json:"dtype"`
	Compressor json.RawMessage `json:"compressor"`
	Filters    json.RawMessage `json:"filters"`
	FillValue  json.RawMessage `json:"fill_value"`
	Order      string          `json:"order"`
}

// dtypeStringV2 renders a DataType and byte order as a v2 dtype string,
// e.g. "<i4", ">f8", "|u1", "|b1".
func dtypeStringV2(dt DataType, order codec.Endian) (string, error) {
	prefix := "<"
	if dt.ByteSize == 1 || dt.Kind == KindBool {
		prefix = "|"
	} else if order == codec.BigEndian {
		prefix = ">"
	}
	var kindChar string
	switch dt.Kind {
	case KindBool:
		return "|b1", nil
	case KindInt:
		kindChar = "i"
	case KindUint:
		kindChar = "u"
	case KindFloat:
		kindChar = "f"
	case KindComplex:
		kindChar = "c"
	case KindRawBytes:
		return fmt.Sprintf("|S%d", dt.ByteSize), nil
	default:
		return "", fmt.Errorf("metadata: unsupported data_type kind for v2 dtype string")
	}
	return fmt.Sprintf("%s%s%d", prefix, kindChar, dt.ByteSize), nil
}

// parseDtypeStringV2 parses a v2 dtype string back into a DataType and byte
// order.
func parseDtypeStringV2(s string) (DataType, codec.Endian, error) {
	if len(s) < 2 {
		return DataType{}, codec.LittleEndian, fmt.Errorf("metadata: malformed v2 dtype %q", s)
	}
	order := codec.LittleEndian
	switch s[0] {
	case '<':
		order = codec.LittleEndian
	case '>':
		order = codec.BigEndian
	case '|':
		order = codec.LittleEndian
	default:
		return DataType{}, order, fmt.Errorf("metadata: malformed v2 dtype %q", s)
	}
	kindChar := s[1]
	rest := s[2:]
	if kindChar == 'b' {
		return builtinDataTypes["bool"], order, nil
	}
	if kindChar == 'S' {
		n, ok := parseDigits(rest)
		if !ok {
			return DataType{}, order, fmt.Errorf("metadata: malformed v2 dtype %q", s)
		}
		return DataType{Name: fmt.Sprintf("r%d", n*8), ByteSize: n, Kind: KindRawBytes}, order, nil
	}
	width, ok := parseDigits(rest)
	if !ok {
		return DataType{}, order, fmt.Errorf("metadata: malformed v2 dtype %q", s)
	}
	var name string
	switch kindChar {
	case 'i':
		name = fmt.Sprintf("int%d", width*8)
	case 'u':
		name = fmt.Sprintf("uint%d", width*8)
	case 'f':
		name = fmt.Sprintf("float%d", width*8)
	case 'c':
		name = fmt.Sprintf("complex%d", width*8)
	default:
		return DataType{}, order, fmt.Errorf("metadata: unsupported v2 dtype kind %q", string(kindChar))
	}
	dt, err := ParseDataType(name)
	return dt, order, err
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// ParseArrayMetadataV2 parses a .zarray document plus its companion
// .zattrs document (attrsData may be nil if absent).
func ParseArrayMetadataV2(zarrayData, attrsData []byte) (*ArrayMetadata, error) {
	var doc arrayDocV2
	if err := json.Unmarshal(zarrayData, &doc); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing .zarray", err)
	}
	if doc.ZarrFormat != 2 {
		return nil, zerr.New(zerr.KindInvalidMetadata, fmt.Sprintf("expected zarr_format 2, got %d", doc.ZarrFormat))
	}
	dt, order, err := parseDtypeStringV2(doc.Dtype)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "dtype", err)
	}

	specs, err := v2CodecSpecs(order, doc.Compressor, doc.Filters)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "compressor/filters", err)
	}

	m := &ArrayMetadata{
		Shape:            doc.Shape,
		DataType:         dt,
		ChunkShape:       doc.Chunks,
		ChunkKeyEncoding: V2ChunkKeyEncoding(),
		FillValueRaw:     doc.FillValue,
		Codecs:           specs,
		Attributes:       attrsData,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// v2CodecSpecs builds the v3-style codec pipeline equivalent to a v2
// compressor+filters pair: bytes serializer, then the compressor as a bytes
// codec. filters is not translated: any v2 filters are ignored and do not
// appear in the returned pipeline.
func v2CodecSpecs(order codec.Endian, compressor, filters json.RawMessage) ([]codec.Spec, error) {
	endianName := "little"
	if order == codec.BigEndian {
		endianName = "big"
	}
	specs := []codec.Spec{
		{Name: "bytes", Configuration: json.RawMessage(fmt.Sprintf(`{"endian":%q}`, endianName))},
	}
	if len(compressor) == 0 || string(compressor) == "null" {
		return specs, nil
	}
	var c struct {
		ID     string `json:"id"`
		Level  int    `json:"level"`
		Clevel int    `json:"clevel"`
		Cname  string `json:"cname"`
	}
	if err := json.Unmarshal(compressor, &c); err != nil {
		return nil, err
	}
	switch c.ID {
	case "gzip", "zlib":
		specs = append(specs, codec.Spec{Name: "gzip", Configuration: json.RawMessage(fmt.Sprintf(`{"level":%d}`, c.Level))})
	case "blosc":
		specs = append(specs, codec.Spec{Name: "blosc", Configuration: compressor})
	default:
		return nil, fmt.Errorf("unsupported v2 compressor id %q", c.ID)
	}
	return specs, nil
}

// MarshalV2 serializes m to its legacy .zarray document. Only a
// bytes(+gzip|blosc) pipeline round-trips through v2; richer v3 pipelines
// should be persisted as v3 documents instead.
func (m *ArrayMetadata) MarshalV2() ([]byte, error) {
	order := codec.LittleEndian
	var compressor json.RawMessage = json.RawMessage("null")
	for _, s := range m.Codecs {
		switch s.Name {
		case "bytes":
			var cfg struct {
				Endian string `json:"endian"`
			}
			_ = json.Unmarshal(s.Configuration, &cfg)
			if cfg.Endian == "big" {
				order = codec.BigEndian
			}
		case "gzip":
			var cfg struct {
				Level int `json:"level"`
			}
			_ = json.Unmarshal(s.Configuration, &cfg)
			compressor = json.RawMessage(fmt.Sprintf(`{"id":"gzip","level":%d}`, cfg.Level))
		case "blosc":
			compressor = s.Configuration
		}
	}
	dtypeStr, err := dtypeStringV2(m.DataType, order)
	if err != nil {
		return nil, err
	}
	doc := arrayDocV2{
		ZarrFormat: 2,
		Shape:      m.Shape,
		Chunks:     m.ChunkShape,
		Dtype:      dtypeStr,
		Compressor: compressor,
		Filters:    json.RawMessage("null"),
		FillValue:  m.FillValueRaw,
		Order:      "C",
	}
	return json.Marshal(doc)
}

type groupDocV2 struct {
	ZarrFormat int `json:"zarr_format"`
}

// ParseGroupMetadataV2 parses a .zgroup document plus its companion
// .zattrs document (attrsData may be nil if absent).
func ParseGroupMetadataV2(zgroupData, attrsData []byte) (*GroupMetadata, error) {
	var doc groupDocV2
	if err := json.Unmarshal(zgroupData, &doc); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing .zgroup", err)
	}
	if doc.ZarrFormat != 2 {
		return nil, zerr.New(zerr.KindInvalidMetadata, fmt.Sprintf("expected zarr_format 2, got %d", doc.ZarrFormat))
	}
	return &GroupMetadata{Attributes: attrsData}, nil
}

// MarshalV2 serializes g to its legacy .zgroup document (attributes are
// serialized separately to .zattrs by the caller).
func (g *GroupMetadata) MarshalV2() ([]byte, error) {
	return json.Marshal(groupDocV2{ZarrFormat: 2})
}
