package vecrow

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/vecrow/codec"
)

var (
	// ErrNotFound is returned when one or both dataset files are missing.
	ErrNotFound = errors.New("dataset not found")
	// ErrFormat is returned when the metadata header is missing or unparseable.
	ErrFormat = errors.New("invalid dataset header")
	// ErrEncoding is returned when a row cannot be serialized.
	ErrEncoding = errors.New("encoding failed")
	// ErrDecoding is returned when a metadata line or vector slice cannot be deserialized.
	ErrDecoding = errors.New("decoding failed")
	// ErrDesync is returned when the metadata and binary streams disagree on row boundaries.
	ErrDesync = errors.New("metadata and binary streams out of sync")
	// ErrIO is returned when the underlying storage fails.
	ErrIO = errors.New("dataset i/o failed")
	// ErrClosed is returned when a closed reader or writer is used.
	ErrClosed = errors.New("dataset handle closed")
	// ErrDimension is matched by every *ErrDimensionMismatch.
	ErrDimension = errors.New("dimension mismatch")
	// ErrInvalidFloatBytes is returned for element widths other than 4 and 8.
	ErrInvalidFloatBytes = codec.ErrInvalidWidth
)

// ErrDimensionMismatch indicates a vector whose length disagrees with the
// dataset dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrDimension) hold.
func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrDimension }

// ErrRowCountMismatch indicates an export whose metadata and vector inputs
// do not pair one-to-one.
type ErrRowCountMismatch struct {
	Metadata int
	Vectors  int
}

func (e *ErrRowCountMismatch) Error() string {
	return fmt.Sprintf("row count mismatch: %d metadata values, %d vectors", e.Metadata, e.Vectors)
}

// ioError classifies a storage error, keeping the cause reachable.
func ioError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s %s: %w", ErrNotFound, op, path, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}

func formatError(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrFormat, path, fmt.Sprintf(format, args...))
}
