package codec

// Endian selects byte order for the bytes serializer codec.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}
