package codec

import "fmt"

// BuildPipeline constructs a Pipeline from an ordered list of codec specs,
// matching each by name against the baseline codecs and validating that the
// overall shape matches the closed grammar A* B C* (spec section 4.3):
// zero or more array codecs, exactly one serializer, then zero or more
// bytes codecs, with no interleaving.
func BuildPipeline(specs []Spec) (*Pipeline, error) {
	var arrayCodecs []ArrayCodec
	var serializer Serializer
	var bytesCodecs []BytesCodec

	for i, s := range specs {
		kind, err := kindOf(s.Name)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindArrayToArray:
			if serializer != nil {
				return nil, fmt.Errorf("codec pipeline: array codec %q at position %d appears after the serializer", s.Name, i)
			}
			c, err := buildArrayCodec(s)
			if err != nil {
				return nil, err
			}
			arrayCodecs = append(arrayCodecs, c)
		case KindArrayToBytes:
			if serializer != nil {
				return nil, fmt.Errorf("codec pipeline: more than one array->bytes serializer (%q at position %d)", s.Name, i)
			}
			c, err := buildSerializer(s)
			if err != nil {
				return nil, err
			}
			serializer = c
		case KindBytesToBytes:
			if serializer == nil {
				return nil, fmt.Errorf("codec pipeline: bytes codec %q at position %d appears before the serializer", s.Name, i)
			}
			c, err := buildBytesCodec(s)
			if err != nil {
				return nil, err
			}
			bytesCodecs = append(bytesCodecs, c)
		}
	}

	return NewPipeline(arrayCodecs, serializer, bytesCodecs)
}

// ValidateSpecsShape checks that specs matches the closed grammar A* B C*
// by name alone, without constructing codec instances (used by metadata
// parsing to validate a pipeline shape before any configuration is known
// to be well-formed).
func ValidateSpecsShape(specs []Spec) error {
	seenSerializer := false
	for i, s := range specs {
		kind, err := kindOf(s.Name)
		if err != nil {
			return err
		}
		switch kind {
		case KindArrayToArray:
			if seenSerializer {
				return fmt.Errorf("codec pipeline: array codec %q at position %d appears after the serializer", s.Name, i)
			}
		case KindArrayToBytes:
			if seenSerializer {
				return fmt.Errorf("codec pipeline: more than one array->bytes serializer (%q at position %d)", s.Name, i)
			}
			seenSerializer = true
		case KindBytesToBytes:
			if !seenSerializer {
				return fmt.Errorf("codec pipeline: bytes codec %q at position %d appears before the serializer", s.Name, i)
			}
		}
	}
	if !seenSerializer {
		return fmt.Errorf("codec pipeline: exactly one array->bytes serializer is required")
	}
	return nil
}

func kindOf(name string) (Kind, error) {
	switch name {
	case "transpose":
		return KindArrayToArray, nil
	case "bytes", "sharding":
		return KindArrayToBytes, nil
	case "gzip", "blosc", "crc32c":
		return KindBytesToBytes, nil
	default:
		return 0, fmt.Errorf("codec pipeline: unknown codec %q", name)
	}
}

func buildArrayCodec(s Spec) (ArrayCodec, error) {
	switch s.Name {
	case "transpose":
		return NewTransposeFromConfig(s.Configuration)
	default:
		return nil, fmt.Errorf("codec pipeline: %q is not an array->array codec", s.Name)
	}
}

func buildSerializer(s Spec) (Serializer, error) {
	switch s.Name {
	case "bytes":
		return NewBytesSerializerFromConfig(s.Configuration)
	case "sharding":
		return NewShardingFromConfig(s.Configuration)
	default:
		return nil, fmt.Errorf("codec pipeline: %q is not an array->bytes codec", s.Name)
	}
}

func buildBytesCodec(s Spec) (BytesCodec, error) {
	switch s.Name {
	case "gzip":
		return NewGzipFromConfig(s.Configuration)
	case "blosc":
		return NewBloscFromConfig(s.Configuration)
	case "crc32c":
		return NewCRC32C(), nil
	default:
		return nil, fmt.Errorf("codec pipeline: %q is not a bytes->bytes codec", s.Name)
	}
}
