package codec

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Blosc is a bytes->bytes compression codec. The real blosc codec is a cgo
// binding over a C library with an internal sub-block shuffle/compress
// scheme that is opaque to a pure-Go implementation; here it is backed by
// github.com/klauspost/compress/zstd, the pure-Go compressor used for the
// same role by the retrieval pack's other zarr-adjacent module (see
// DESIGN.md). Output is only guaranteed to round-trip through this same
// codec, not to interoperate with a real blosc-compressed store.
type Blosc struct {
	level zstd.EncoderLevel
}

type bloscConfig struct {
	Clevel int    `json:"clevel"`
	Cname  string `json:"cname"`
}

// NewBlosc builds a blosc-substitute codec at the given zstd encoder level;
// levels outside zstd.SpeedFastest..zstd.SpeedBestCompression (including 0)
// fall back to zstd.SpeedDefault.
func NewBlosc(level zstd.EncoderLevel) *Blosc {
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		level = zstd.SpeedDefault
	}
	return &Blosc{level: level}
}

// NewBloscFromConfig builds a blosc-substitute codec from a JSON
// configuration blob of the form {"cname": "...", "clevel": N}. clevel is
// mapped onto zstd's discrete encoder levels: 1 -> fastest, 0 or less and
// 2-5 -> default, 6-8 -> better compression, 9 and above -> best compression.
func NewBloscFromConfig(raw json.RawMessage) (*Blosc, error) {
	level := zstd.SpeedDefault
	if len(raw) > 0 {
		var cfg bloscConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("blosc codec: invalid configuration: %w", err)
		}
		switch {
		case cfg.Clevel <= 0:
			level = zstd.SpeedDefault
		case cfg.Clevel == 1:
			level = zstd.SpeedFastest
		case cfg.Clevel >= 2 && cfg.Clevel <= 5:
			level = zstd.SpeedDefault
		case cfg.Clevel >= 6 && cfg.Clevel <= 8:
			level = zstd.SpeedBetterCompression
		default:
			level = zstd.SpeedBestCompression
		}
	}
	return NewBlosc(level), nil
}

func (b *Blosc) Name() string { return "blosc" }

func (b *Blosc) EncodeBytes(in []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(b.level))
	if err != nil {
		return nil, fmt.Errorf("blosc codec: encoder creation failed: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(in, make([]byte, 0, len(in))), nil
}

func (b *Blosc) DecodeBytes(in []byte) ([]byte, error) {
	dec := getDecoder()
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, fmt.Errorf("blosc codec: decompression failed: %w", err)
	}
	return out, nil
}

func (b *Blosc) ComputeEncodedSize(inputSize int64) (int64, bool) {
	return 0, false
}

var (
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func getDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decoder
}
