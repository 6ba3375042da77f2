package vecrow

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hupe1980/vecrow/codec"
)

const (
	// MetaExt is the extension of the metadata stream.
	MetaExt = ".meta"
	// BinExt is the extension of the binary stream.
	BinExt = ".bin"

	// FormatVersion is the version recorded in preamble headers.
	FormatVersion = 1
)

// MetaPath returns the metadata stream path of the dataset at base.
func MetaPath(base string) string { return base + MetaExt }

// BinPath returns the binary stream path of the dataset at base.
func BinPath(base string) string { return base + BinExt }

// Row is one (metadata, vector) pair.
type Row struct {
	Index    int // 0-based position in the dataset
	Metadata any
	Vector   []float64
}

// Dataset is a fully materialized dataset.
//
// Vectors holds one row per metadata value, all slices of a single
// contiguous backing array.
type Dataset struct {
	Metadata []any
	Vectors  [][]float64
	Dim      int
}

// Header is the parsed first line of the metadata stream.
type Header struct {
	Version    int `json:"version"`
	Dim        int `json:"dim"`
	FloatBytes int `json:"float_bytes,omitempty"`

	// Preamble is set when the header was the JSON form.
	Preamble bool `json:"-"`
}

// encode returns the header line including the trailing newline.
func (h Header) encode() []byte {
	if !h.Preamble {
		return []byte(strconv.Itoa(h.Dim) + "\n")
	}
	b, _ := json.Marshal(Header{Version: FormatVersion, Dim: h.Dim, FloatBytes: h.FloatBytes})
	return append(b, '\n')
}

// parseHeader parses a header line. Both "<dim>" and the JSON preamble are
// accepted; path is only used in error messages.
func parseHeader(path string, line []byte) (Header, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Header{}, formatError(path, "missing header line")
	}

	if line[0] != '{' {
		dim, err := strconv.Atoi(string(line))
		if err != nil {
			return Header{}, formatError(path, "header %q is not an integer", line)
		}
		if dim <= 0 {
			return Header{}, formatError(path, "dimension must be positive, got %d", dim)
		}
		return Header{Version: FormatVersion, Dim: dim}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	var h Header
	if err := dec.Decode(&h); err != nil {
		return Header{}, formatError(path, "malformed preamble: %v", err)
	}
	if h.Version != FormatVersion {
		return Header{}, formatError(path, "unsupported format version %d", h.Version)
	}
	if h.Dim <= 0 {
		return Header{}, formatError(path, "dimension must be positive, got %d", h.Dim)
	}
	if h.FloatBytes != 0 {
		if _, err := codec.ParseWidth(h.FloatBytes); err != nil {
			return Header{}, formatError(path, "%v", err)
		}
	}
	h.Preamble = true
	return h, nil
}

// readHeader reads the first line of r. The returned count is the number of
// bytes consumed, including the newline.
func readHeader(path string, r *bufio.Reader) (Header, int, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return Header{}, 0, ioError("read", path, err)
	}
	h, perr := parseHeader(path, line)
	return h, len(line), perr
}

// resolveWidth reconciles the caller's width with the header's.
func resolveWidth(path string, h Header, o options) (codec.Width, error) {
	n := o.floatBytes
	if h.FloatBytes != 0 {
		if o.floatBytesSet && o.floatBytes != h.FloatBytes {
			return 0, formatError(path, "header records %d-byte floats, caller requested %d", h.FloatBytes, o.floatBytes)
		}
		n = h.FloatBytes
	}
	w, err := codec.ParseWidth(n)
	if err != nil {
		return 0, err
	}
	return w, nil
}

// Info describes a dataset on disk.
type Info struct {
	Header     Header
	FloatBytes int
	Rows       int
	MetaSize   int64
	BinSize    int64
}

// Stat inspects the dataset at base without reading its rows.
//
// It fails with ErrNotFound if either file is missing, ErrFormat if the
// header is invalid and ErrDesync if the binary stream does not hold a whole
// number of rows.
func Stat(base string, optFns ...Option) (Info, error) {
	o := applyOptions(optFns)
	metaPath, binPath := MetaPath(base), BinPath(base)

	f, err := o.fs.OpenFile(metaPath, os.O_RDONLY, 0)
	if err != nil {
		return Info{}, ioError("open", metaPath, err)
	}
	defer f.Close()

	h, _, err := readHeader(metaPath, bufio.NewReader(f))
	if err != nil {
		return Info{}, err
	}
	width, err := resolveWidth(metaPath, h, o)
	if err != nil {
		return Info{}, err
	}

	metaInfo, err := f.Stat()
	if err != nil {
		return Info{}, ioError("stat", metaPath, err)
	}
	binInfo, err := o.fs.Stat(binPath)
	if err != nil {
		return Info{}, ioError("stat", binPath, err)
	}

	rowBytes := int64(width.RowBytes(h.Dim))
	if binInfo.Size()%rowBytes != 0 {
		return Info{}, fmt.Errorf("%w: %s: size %d is not a multiple of the %d-byte row size",
			ErrDesync, binPath, binInfo.Size(), rowBytes)
	}

	return Info{
		Header:     h,
		FloatBytes: int(width),
		Rows:       int(binInfo.Size() / rowBytes),
		MetaSize:   metaInfo.Size(),
		BinSize:    binInfo.Size(),
	}, nil
}
