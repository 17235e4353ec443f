// Package metadata parses and serializes array/group metadata documents
// (spec section 6) and validates the invariants of spec section 4.4.
// Grounded on the teacher's internal/core.DatatypeMessage/DataspaceMessage
// (class+size-tagged type descriptors with a String() diagnostic),
// generalized from HDF5's binary class/version/properties encoding to
// named data_type strings in a JSON document.
package metadata

import "fmt"

// DataType identifies a primitive element type by name, byte width, and
// kind (spec section 6: "at minimum bool, int{8,16,32,64}, uint{8,16,32,64},
// float{16,32,64}, complex{64,128}, fixed-length raw bytes (r* families)").
type DataType struct {
	Name     string
	ByteSize int
	Kind     DataTypeKind
}

// DataTypeKind classifies a DataType for fill-value coercion and codec
// element-size arithmetic.
type DataTypeKind uint8

const (
	KindBool DataTypeKind = iota
	KindInt
	KindUint
	KindFloat
	KindComplex
	KindRawBytes
)

var builtinDataTypes = map[string]DataType{
	"bool":       {Name: "bool", ByteSize: 1, Kind: KindBool},
	"int8":       {Name: "int8", ByteSize: 1, Kind: KindInt},
	"int16":      {Name: "int16", ByteSize: 2, Kind: KindInt},
	"int32":      {Name: "int32", ByteSize: 4, Kind: KindInt},
	"int64":      {Name: "int64", ByteSize: 8, Kind: KindInt},
	"uint8":      {Name: "uint8", ByteSize: 1, Kind: KindUint},
	"uint16":     {Name: "uint16", ByteSize: 2, Kind: KindUint},
	"uint32":     {Name: "uint32", ByteSize: 4, Kind: KindUint},
	"uint64":     {Name: "uint64", ByteSize: 8, Kind: KindUint},
	"float16":    {Name: "float16", ByteSize: 2, Kind: KindFloat},
	"float32":    {Name: "float32", ByteSize: 4, Kind: KindFloat},
	"float64":    {Name: "float64", ByteSize: 8, Kind: KindFloat},
	"complex64":  {Name: "complex64", ByteSize: 8, Kind: KindComplex},
	"complex128": {Name: "complex128", ByteSize: 16, Kind: KindComplex},
}

// ParseDataType resolves a data_type string to its DataType descriptor. The
// fixed-length raw-bytes family is named "r<N>" with N a positive multiple
// of 8 counting bits (e.g. "r16" for 2 raw bytes per element).
func ParseDataType(name string) (DataType, error) {
	if dt, ok := builtinDataTypes[name]; ok {
		return dt, nil
	}
	if n, ok := parseRawBytesName(name); ok {
		return DataType{Name: name, ByteSize: n, Kind: KindRawBytes}, nil
	}
	return DataType{}, fmt.Errorf("metadata: unrecognized data_type %q", name)
}

func parseRawBytesName(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'r' {
		return 0, false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return 0, false
	}
	if n%8 != 0 {
		return 0, false
	}
	return n / 8, true
}

// String reports a human-readable description, e.g. "int32 (size=4 bytes)".
func (dt DataType) String() string {
	return fmt.Sprintf("%s (size=%d bytes)", dt.Name, dt.ByteSize)
}
