package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkKeyEncoding formats a chunk coordinate into a store key suffix (spec
// section 4.5): "default" produces "c/<i0>/<i1>/...", "v2" produces
// "<i0>.<i1>...." with a configurable separator. A 0-dimensional array uses
// the single key "c" (default) or "0" (v2).
type ChunkKeyEncoding struct {
	Name      string // "default" or "v2"
	Separator string
}

// DefaultChunkKeyEncoding is the v3-native "default" encoding with "/" as
// separator.
func DefaultChunkKeyEncoding() ChunkKeyEncoding {
	return ChunkKeyEncoding{Name: "default", Separator: "/"}
}

// V2ChunkKeyEncoding is the legacy v2 encoding with "." as separator.
func V2ChunkKeyEncoding() ChunkKeyEncoding {
	return ChunkKeyEncoding{Name: "v2", Separator: "."}
}

// Format renders coord into the key suffix appended after the array's path
// and a "/" separator.
func (e ChunkKeyEncoding) Format(coord []int64) (string, error) {
	switch e.Name {
	case "default":
		if len(coord) == 0 {
			return "c", nil
		}
		parts := make([]string, len(coord)+1)
		parts[0] = "c"
		for i, c := range coord {
			parts[i+1] = strconv.FormatInt(c, 10)
		}
		return strings.Join(parts, "/"), nil
	case "v2":
		if len(coord) == 0 {
			return "0", nil
		}
		sep := e.Separator
		if sep == "" {
			sep = "."
		}
		parts := make([]string, len(coord))
		for i, c := range coord {
			parts[i] = strconv.FormatInt(c, 10)
		}
		return strings.Join(parts, sep), nil
	default:
		return "", fmt.Errorf("metadata: unknown chunk_key_encoding %q", e.Name)
	}
}
