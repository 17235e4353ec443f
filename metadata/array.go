package metadata

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/scigolib/zart/codec"
	"github.com/scigolib/zart/internal/zerr"
)

// ArrayMetadata is the parsed form of an array node's sentinel metadata
// document (spec section 3/6). Unknown top-level keys are preserved in
// Extra so a document can be re-serialized without loss (spec section 8,
// invariant 5).
type ArrayMetadata struct {
	Shape            []int64
	DataType         DataType
	ChunkShape       []int64
	ChunkKeyEncoding ChunkKeyEncoding
	FillValueRaw     json.RawMessage
	Codecs           []codec.Spec
	Attributes       json.RawMessage
	DimensionNames   []*string

	Extra map[string]json.RawMessage
}

// FillValue resolves FillValueRaw to its in-memory byte representation.
func (m *ArrayMetadata) FillValue() ([]byte, error) {
	return ParseFillValue(m.FillValueRaw, m.DataType)
}

// Validate checks the invariants of spec section 4.4/3: rank consistency,
// positive chunk shape, non-negative shape, a well-formed codec pipeline
// shape, and a fill_value that coerces to DataType. DataType itself is not
// re-checked here; ParseDataType resolves it during parsing.
func (m *ArrayMetadata) Validate() error {
	if len(m.Shape) == 0 {
		return zerr.New(zerr.KindInvalidMetadata, "rank must be > 0")
	}
	if len(m.ChunkShape) != len(m.Shape) {
		return zerr.New(zerr.KindInvalidMetadata, "chunk_shape rank must match shape rank")
	}
	for i, c := range m.ChunkShape {
		if c <= 0 {
			return zerr.New(zerr.KindInvalidMetadata, fmt.Sprintf("chunk_shape[%d] must be positive", i))
		}
	}
	for _, d := range m.Shape {
		if d < 0 {
			return zerr.New(zerr.KindInvalidMetadata, "shape dimensions must be non-negative")
		}
	}
	if m.DimensionNames != nil && len(m.DimensionNames) != len(m.Shape) {
		return zerr.New(zerr.KindInvalidMetadata, "dimension_names length must match rank")
	}
	if err := codec.ValidateSpecsShape(m.Codecs); err != nil {
		return zerr.Wrap(zerr.KindInvalidMetadata, "codecs", err)
	}
	if _, err := m.FillValue(); err != nil {
		return zerr.Wrap(zerr.KindInvalidMetadata, "fill_value", err)
	}
	return nil
}

// arrayDocV3 mirrors the v3 zarr.json wire document (spec section 6).
type arrayDocV3 struct {
	ZarrFormat       int              `json:"zarr_format"`
	NodeType         string           `json:"node_type"`
	Shape            []int64          `json:"shape"`
	DataType         string           `json:"data_type"`
	ChunkGrid        chunkGridDoc     `json:"chunk_grid"`
	ChunkKeyEncoding chunkKeyDoc      `json:"chunk_key_encoding"`
	FillValue        json.RawMessage  `json:"fill_value"`
	Codecs           []codec.Spec     `json:"codecs"`
	Attributes       json.RawMessage  `json:"attributes,omitempty"`
	DimensionNames   []*string        `json:"dimension_names,omitempty"`
}

type chunkGridDoc struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []int64 `json:"chunk_shape"`
	} `json:"configuration"`
}

type chunkKeyDoc struct {
	Name          string `json:"name"`
	Configuration struct {
		Separator string `json:"separator,omitempty"`
	} `json:"configuration"`
}

var arrayV3KnownKeys = map[string]bool{
	"zarr_format": true, "node_type": true, "shape": true, "data_type": true,
	"chunk_grid": true, "chunk_key_encoding": true, "fill_value": true,
	"codecs": true, "attributes": true, "dimension_names": true,
}

// ParseArrayMetadataV3 parses a zarr.json document for an array node.
func ParseArrayMetadataV3(data []byte) (*ArrayMetadata, error) {
	var doc arrayDocV3
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing zarr.json", err)
	}
	if doc.NodeType != "array" {
		return nil, zerr.New(zerr.KindInvalidMetadata, fmt.Sprintf("expected node_type \"array\", got %q", doc.NodeType))
	}
	dt, err := ParseDataType(doc.DataType)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "data_type", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing zarr.json", err)
	}
	extra := map[string]json.RawMessage{}
	for k, v := range raw {
		if !arrayV3KnownKeys[k] {
			extra[k] = v
		}
	}

	encName := doc.ChunkKeyEncoding.Name
	if encName == "" {
		encName = "default"
	}
	enc := ChunkKeyEncoding{Name: encName, Separator: doc.ChunkKeyEncoding.Configuration.Separator}
	if enc.Separator == "" {
		if enc.Name == "v2" {
			enc.Separator = "."
		} else {
			enc.Separator = "/"
		}
	}

	m := &ArrayMetadata{
		Shape:            doc.Shape,
		DataType:         dt,
		ChunkShape:       doc.ChunkGrid.Configuration.ChunkShape,
		ChunkKeyEncoding: enc,
		FillValueRaw:     doc.FillValue,
		Codecs:           doc.Codecs,
		Attributes:       doc.Attributes,
		DimensionNames:   doc.DimensionNames,
		Extra:            extra,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalV3 serializes m back to a zarr.json document, preserving unknown
// top-level keys captured at parse time.
func (m *ArrayMetadata) MarshalV3() ([]byte, error) {
	doc := arrayDocV3{
		ZarrFormat:       3,
		NodeType:         "array",
		Shape:            m.Shape,
		DataType:         m.DataType.Name,
		FillValue:        m.FillValueRaw,
		Codecs:           m.Codecs,
		Attributes:       m.Attributes,
		DimensionNames:   m.DimensionNames,
		ChunkKeyEncoding: chunkKeyDoc{Name: m.ChunkKeyEncoding.Name},
	}
	doc.ChunkGrid.Name = "regular"
	doc.ChunkGrid.Configuration.ChunkShape = m.ChunkShape
	doc.ChunkKeyEncoding.Configuration.Separator = m.ChunkKeyEncoding.Separator

	base, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return base, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		merged[k] = v
	}
	return marshalSorted(merged)
}

// marshalSorted serializes a string-keyed raw-message map with
// deterministic (sorted) key order, for reproducible round-trip output.
func marshalSorted(m map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}
