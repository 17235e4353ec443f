package metadata

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// ParseFillValue coerces a JSON fill_value token (spec section 4.4: "integer
// 0 decodes to 0.0 for floats, special tokens NaN/Infinity/-Infinity allowed
// for floating types; fixed-length byte strings use a defined encoding")
// into the little-endian in-memory byte representation used by the buffer
// model.
func ParseFillValue(raw json.RawMessage, dt DataType) ([]byte, error) {
	if len(raw) == 0 {
		return ZeroFillValue(dt), nil
	}

	switch dt.Kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("metadata: fill_value for bool: %w", err)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case KindInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s: %w", dt.Name, err)
		}
		return encodeInt(n, dt.ByteSize), nil

	case KindUint:
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s: %w", dt.Name, err)
		}
		return encodeUint(n, dt.ByteSize), nil

	case KindFloat:
		f, err := parseFloatToken(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s: %w", dt.Name, err)
		}
		return encodeFloat(f, dt.ByteSize)

	case KindComplex:
		var parts [2]json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s must be [real, imag]: %w", dt.Name, err)
		}
		re, err := parseFloatToken(parts[0])
		if err != nil {
			return nil, err
		}
		im, err := parseFloatToken(parts[1])
		if err != nil {
			return nil, err
		}
		half := dt.ByteSize / 2
		reBytes, err := encodeFloat(re, half)
		if err != nil {
			return nil, err
		}
		imBytes, err := encodeFloat(im, half)
		if err != nil {
			return nil, err
		}
		return append(reBytes, imBytes...), nil

	case KindRawBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s: %w", dt.Name, err)
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("metadata: fill_value for %s: invalid base64: %w", dt.Name, err)
		}
		if len(decoded) != dt.ByteSize {
			return nil, fmt.Errorf("metadata: fill_value for %s: expected %d bytes, got %d", dt.Name, dt.ByteSize, len(decoded))
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("metadata: unsupported data_type kind for fill_value")
}

// ZeroFillValue returns the all-zero-bytes fill value (the default when a
// metadata document omits fill_value).
func ZeroFillValue(dt DataType) []byte {
	return make([]byte, dt.ByteSize)
}

// SerializeFillValue renders a fill value back to its JSON token form.
func SerializeFillValue(value []byte, dt DataType) (json.RawMessage, error) {
	switch dt.Kind {
	case KindBool:
		if len(value) != 1 {
			return nil, fmt.Errorf("metadata: malformed bool fill_value")
		}
		return json.Marshal(value[0] != 0)

	case KindInt:
		return json.Marshal(decodeInt(value))

	case KindUint:
		return json.Marshal(decodeUint(value))

	case KindFloat:
		f, err := decodeFloat(value)
		if err != nil {
			return nil, err
		}
		return marshalFloatToken(f)

	case KindComplex:
		half := dt.ByteSize / 2
		re, err := decodeFloat(value[:half])
		if err != nil {
			return nil, err
		}
		im, err := decodeFloat(value[half:])
		if err != nil {
			return nil, err
		}
		reTok, err := marshalFloatToken(re)
		if err != nil {
			return nil, err
		}
		imTok, err := marshalFloatToken(im)
		if err != nil {
			return nil, err
		}
		return json.Marshal([2]json.RawMessage{reTok, imTok})

	case KindRawBytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(value))
	}
	return nil, fmt.Errorf("metadata: unsupported data_type kind for fill_value")
}

func parseFloatToken(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		default:
			return 0, fmt.Errorf("unrecognized float token %q", s)
		}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func marshalFloatToken(f float64) (json.RawMessage, error) {
	switch {
	case math.IsNaN(f):
		return json.Marshal("NaN")
	case math.IsInf(f, 1):
		return json.Marshal("Infinity")
	case math.IsInf(f, -1):
		return json.Marshal("-Infinity")
	default:
		return json.Marshal(f)
	}
}

func encodeInt(n int64, size int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf[:size]
}

func decodeInt(b []byte) int64 {
	buf := make([]byte, 8)
	copy(buf, b)
	v := binary.LittleEndian.Uint64(buf)
	switch len(b) {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

func encodeUint(n uint64, size int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	return buf[:size]
}

func decodeUint(b []byte) uint64 {
	buf := make([]byte, 8)
	copy(buf, b)
	return binary.LittleEndian.Uint64(buf)
}

func encodeFloat(f float64, size int) ([]byte, error) {
	switch size {
	case 4:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil
	case 8:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case 2:
		return encodeFloat16(f), nil
	default:
		return nil, fmt.Errorf("metadata: unsupported float byte size %d", size)
	}
}

func decodeFloat(b []byte) (float64, error) {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case 2:
		return decodeFloat16(b), nil
	default:
		return 0, fmt.Errorf("metadata: unsupported float byte size %d", len(b))
	}
}

// encodeFloat16/decodeFloat16 implement IEEE 754 binary16 (1 sign, 5
// exponent, 10 mantissa bits); used only for fill_value coercion of the
// float16 data_type.
func encodeFloat16(f float64) []byte {
	bits := math.Float32bits(float32(f))
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	var half uint16
	switch {
	case exp <= 0:
		half = sign
	case exp >= 0x1F:
		half = sign | 0x7C00
		if (bits>>23)&0xFF == 0xFF && mant != 0 {
			half |= 0x200 // NaN stays NaN rather than becoming Infinity
		}
	default:
		half = sign | uint16(exp)<<10 | uint16(mant>>13)
	}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, half)
	return buf
}

func decodeFloat16(b []byte) float64 {
	half := binary.LittleEndian.Uint16(b)
	sign := uint32(half&0x8000) << 16
	exp := (half >> 10) & 0x1F
	mant := uint32(half & 0x3FF)

	var bits uint32
	switch {
	case exp == 0:
		bits = sign
	case exp == 0x1F:
		bits = sign | 0x7F800000 | (mant << 13)
	default:
		bits = sign | (uint32(exp)-15+127)<<23 | (mant << 13)
	}
	return float64(math.Float32frombits(bits))
}
