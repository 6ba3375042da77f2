// Package codec centralizes metadata and vector encoding for vecrow datasets.
//
// Metadata values travel as one JSON document per line of the metadata stream,
// so every codec used here must emit single-line output. Vectors travel as flat
// little-endian float arrays in the binary stream.
//
// Changing the metadata codec is a breaking-change boundary only when the new
// codec emits something other than JSON: both built-in codecs read each
// other's output.
package codec

import (
	"bytes"
	"errors"
)

var (
	// ErrNewline is returned when an encoded value contains a raw line break.
	ErrNewline = errors.New("codec: encoded value contains a line break")
	// ErrEmptyLine is returned when a value encodes to zero bytes.
	ErrEmptyLine = errors.New("codec: encoded value is empty")
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Appender is implemented by codecs that can encode into a caller-owned
// buffer.
type Appender interface {
	Append(dst []byte, v any) ([]byte, error)
}

// EncodeLine marshals v into a single metadata line without the trailing
// newline.
//
// An empty line marks end-of-data in the metadata stream, and a raw line
// break would split one row into two; both are rejected here.
func EncodeLine(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := checkLine(b); err != nil {
		return nil, err
	}
	return b, nil
}

// AppendLine is EncodeLine into dst. Codecs implementing Appender encode in
// place. On error dst is returned unchanged.
func AppendLine(dst []byte, c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	start := len(dst)

	var (
		out []byte
		err error
	)
	if a, ok := c.(Appender); ok {
		out, err = a.Append(dst, v)
	} else {
		var b []byte
		if b, err = c.Marshal(v); err == nil {
			out = append(dst, b...)
		}
	}
	if err != nil {
		return dst, err
	}
	if err := checkLine(out[start:]); err != nil {
		return dst, err
	}
	return out, nil
}

func checkLine(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return ErrEmptyLine
	}
	if bytes.ContainsAny(b, "\n\r") {
		return ErrNewline
	}
	return nil
}

// DecodeLine parses one metadata line into a structured value.
// Surrounding whitespace, including a trailing "\r\n", is ignored.
func DecodeLine(c Codec, line []byte) (any, error) {
	if c == nil {
		c = Default
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}
	var v any
	if err := c.Unmarshal(line, &v); err != nil {
		return nil, err
	}
	return v, nil
}
