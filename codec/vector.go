package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Width is the byte width of one vector element in the binary stream.
type Width int

const (
	// Float32 stores elements as IEEE-754 binary32.
	Float32 Width = 4
	// Float64 stores elements as IEEE-754 binary64.
	Float64 Width = 8
)

var (
	// ErrInvalidWidth is returned for element widths other than 4 and 8.
	ErrInvalidWidth = errors.New("codec: element width must be 4 or 8 bytes")
	// ErrShortBuffer is returned when a vector slice does not hold exactly dim elements.
	ErrShortBuffer = errors.New("codec: vector slice has wrong length")
)

// ParseWidth validates a float byte width.
func ParseWidth(n int) (Width, error) {
	switch Width(n) {
	case Float32, Float64:
		return Width(n), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidWidth, n)
	}
}

// Valid reports whether w is a supported width.
func (w Width) Valid() bool { return w == Float32 || w == Float64 }

// RowBytes returns the encoded size of a dim-element vector.
func (w Width) RowBytes(dim int) int { return dim * int(w) }

// AppendVector appends the little-endian encoding of vec to dst.
// With Float32 every element is narrowed to float32 first.
func AppendVector(dst []byte, vec []float64, w Width) ([]byte, error) {
	switch w {
	case Float32:
		for _, v := range vec {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		}
	case Float64:
		for _, v := range vec {
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
		}
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWidth, int(w))
	}
	return dst, nil
}

// DecodeVector decodes src into dst. src must hold exactly len(dst) elements.
func DecodeVector(dst []float64, src []byte, w Width) error {
	if !w.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidWidth, int(w))
	}
	if len(src) != w.RowBytes(len(dst)) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, w.RowBytes(len(dst)), len(src))
	}
	if w == Float32 {
		for i := range dst {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:])))
		}
		return nil
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
	}
	return nil
}
