package vecrow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/vecrow/codec"
	"github.com/hupe1980/vecrow/internal/fs"
)

// Mode selects how a Writer opens a dataset.
type Mode int

const (
	// ModeCreate truncates any existing dataset at the base path.
	ModeCreate Mode = iota
	// ModeAppend extends an existing dataset; its header is never rewritten.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Writer appends rows to a dataset.
//
// A Writer exclusively owns its two file handles until Close. It is not safe
// for concurrent use, and a dataset must not have more than one Writer.
type Writer struct {
	base  string
	mode  Mode
	opts  options
	log   *Logger
	width codec.Width

	dim           int // 0 until established
	headerWritten bool

	meta    fs.File
	bin     fs.File
	metaBuf *bufio.Writer
	binBuf  *bufio.Writer

	line   []byte
	vec    []byte
	rows   int
	closed bool
}

// Create opens a new dataset at base, truncating any existing files.
func Create(base string, optFns ...Option) (*Writer, error) {
	return OpenWriter(base, ModeCreate, optFns...)
}

// Append opens the existing dataset at base for appending.
func Append(base string, optFns ...Option) (*Writer, error) {
	return OpenWriter(base, ModeAppend, optFns...)
}

// OpenWriter opens the dataset at base in the given mode.
//
// In ModeCreate the dimension is established by WithDimension or by the first
// Write. In ModeAppend it is read from the on-disk header.
func OpenWriter(base string, mode Mode, optFns ...Option) (*Writer, error) {
	o := applyOptions(optFns)
	w := &Writer{
		base: base,
		mode: mode,
		opts: o,
		log:  o.logger.WithDataset(base),
	}

	var err error
	switch mode {
	case ModeCreate:
		err = w.openCreate()
	case ModeAppend:
		err = w.openAppend()
	default:
		err = fmt.Errorf("vecrow: unknown writer mode %v", mode)
	}

	w.log.LogOpen(context.Background(), mode.String(), err)
	if err != nil {
		_ = w.release()
		return nil, err
	}
	return w, nil
}

func (w *Writer) openCreate() error {
	width, err := codec.ParseWidth(w.opts.floatBytes)
	if err != nil {
		return err
	}
	w.width = width

	if w.opts.dimension < 0 {
		return formatError(MetaPath(w.base), "dimension must be positive, got %d", w.opts.dimension)
	}

	flag := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	if err := w.openStreams(flag); err != nil {
		return err
	}

	if w.opts.dimension > 0 {
		w.dim = w.opts.dimension
		return w.writeHeader()
	}
	return nil
}

func (w *Writer) openAppend() error {
	metaPath, binPath := MetaPath(w.base), BinPath(w.base)

	h, err := w.inspectMeta(metaPath)
	if err != nil {
		return err
	}

	width, err := resolveWidth(metaPath, h, w.opts)
	if err != nil {
		return err
	}
	w.width = width

	if w.opts.dimension != 0 && w.opts.dimension != h.Dim {
		return &ErrDimensionMismatch{Expected: h.Dim, Actual: w.opts.dimension}
	}

	info, err := w.opts.fs.Stat(binPath)
	if err != nil {
		return ioError("stat", binPath, err)
	}
	if rowBytes := int64(width.RowBytes(h.Dim)); info.Size()%rowBytes != 0 {
		return fmt.Errorf("%w: %s: size %d is not a multiple of the %d-byte row size",
			ErrDesync, binPath, info.Size(), rowBytes)
	}

	if err := w.openStreams(os.O_APPEND | os.O_WRONLY); err != nil {
		return err
	}

	w.dim = h.Dim
	w.headerWritten = true
	w.log = w.log.WithDimension(w.dim)
	return nil
}

// inspectMeta reads the header of an existing metadata stream and checks
// that the stream ends on a line boundary, so appended rows cannot merge into
// a partially written line.
func (w *Writer) inspectMeta(path string) (Header, error) {
	f, err := w.opts.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Header{}, ioError("open", path, err)
	}
	defer f.Close()

	h, _, err := readHeader(path, bufio.NewReader(f))
	if err != nil {
		return Header{}, err
	}

	if _, err := f.Seek(-1, io.SeekEnd); err != nil {
		return Header{}, ioError("seek", path, err)
	}
	last := make([]byte, 1)
	if _, err := io.ReadFull(f, last); err != nil {
		return Header{}, ioError("read", path, err)
	}
	if last[0] != '\n' {
		return Header{}, fmt.Errorf("%w: %s: last line is incomplete", ErrDesync, path)
	}
	return h, nil
}

func (w *Writer) openStreams(flag int) error {
	metaPath, binPath := MetaPath(w.base), BinPath(w.base)

	meta, err := w.opts.fs.OpenFile(metaPath, flag, 0o644)
	if err != nil {
		return ioError("open", metaPath, err)
	}
	w.meta = meta

	bin, err := w.opts.fs.OpenFile(binPath, flag, 0o644)
	if err != nil {
		return ioError("open", binPath, err)
	}
	w.bin = bin

	w.metaBuf = bufio.NewWriterSize(meta, w.opts.bufferSize)
	w.binBuf = bufio.NewWriterSize(bin, w.opts.bufferSize)
	return nil
}

func (w *Writer) writeHeader() error {
	h := Header{Version: FormatVersion, Dim: w.dim, Preamble: w.opts.preamble}
	if h.Preamble {
		h.FloatBytes = int(w.width)
	}
	if _, err := w.metaBuf.Write(h.encode()); err != nil {
		return ioError("write", MetaPath(w.base), err)
	}
	w.headerWritten = true
	w.log = w.log.WithDimension(w.dim)
	return nil
}

// Write appends one row: a metadata line, then a vector slice.
//
// vec must have the dataset dimension; in create mode without WithDimension
// the first Write establishes it. Encoding happens before anything is
// written, so a rejected row leaves both streams untouched. A storage failure
// is reported as ErrIO and may leave the streams out of sync.
func (w *Writer) Write(metadata any, vec []float64) error {
	start := time.Now()
	n, err := w.write(metadata, vec)
	w.opts.metrics.RecordWrite(n, time.Since(start), err)
	return err
}

func (w *Writer) write(metadata any, vec []float64) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}

	dim := w.dim
	if dim == 0 {
		if len(vec) == 0 {
			return 0, formatError(MetaPath(w.base), "an empty vector cannot establish the dimension")
		}
		dim = len(vec)
	}
	if len(vec) != dim {
		return 0, &ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}

	line, err := codec.AppendLine(w.line[:0], w.opts.codec, metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d metadata: %w", ErrEncoding, w.rows, err)
	}
	w.line = append(line, '\n')

	w.vec, err = codec.AppendVector(w.vec[:0], vec, w.width)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d vector: %w", ErrEncoding, w.rows, err)
	}

	if !w.headerWritten {
		w.dim = dim
		if err := w.writeHeader(); err != nil {
			return 0, err
		}
	}

	if _, err := w.metaBuf.Write(w.line); err != nil {
		return 0, ioError("write", MetaPath(w.base), err)
	}
	if _, err := w.binBuf.Write(w.vec); err != nil {
		return 0, ioError("write", BinPath(w.base), err)
	}

	w.rows++
	return len(w.line) + len(w.vec), nil
}

// Flush writes buffered rows to both files, metadata first.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.flush()
}

func (w *Writer) flush() error {
	if err := w.metaBuf.Flush(); err != nil {
		return ioError("flush", MetaPath(w.base), err)
	}
	if err := w.binBuf.Flush(); err != nil {
		return ioError("flush", BinPath(w.base), err)
	}
	return nil
}

// Dim returns the dataset dimension, or 0 while it is not yet established.
func (w *Writer) Dim() int { return w.dim }

// FloatBytes returns the element width in bytes.
func (w *Writer) FloatBytes() int { return int(w.width) }

// Rows returns the number of rows written by this Writer.
func (w *Writer) Rows() int { return w.rows }

// Close flushes and releases both files. The Writer is unusable afterwards;
// a second Close returns ErrClosed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	err := w.flush()
	err = errors.Join(err, w.release())
	w.log.LogClose(context.Background(), w.rows, err)
	return err
}

func (w *Writer) release() error {
	w.closed = true
	var errs []error
	if w.meta != nil {
		if err := w.meta.Close(); err != nil {
			errs = append(errs, ioError("close", MetaPath(w.base), err))
		}
		w.meta = nil
	}
	if w.bin != nil {
		if err := w.bin.Close(); err != nil {
			errs = append(errs, ioError("close", BinPath(w.base), err))
		}
		w.bin = nil
	}
	return errors.Join(errs...)
}
