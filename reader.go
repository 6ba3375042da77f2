package vecrow

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecrow/codec"
	"github.com/hupe1980/vecrow/internal/fs"
)

// errTrailingVectors marks a metadata stream that ends while the binary
// stream still holds rows. It is always wrapped together with ErrDesync.
var errTrailingVectors = errors.New("binary stream has rows beyond the end of the metadata stream")

// Reader reads rows of a dataset sequentially.
//
// A Reader exclusively owns its two file handles until Close. It is not safe
// for concurrent use. Reading a dataset that is being appended to is not
// supported.
type Reader struct {
	base     string
	opts     options
	log      *Logger
	header   Header
	width    codec.Width
	rowBytes int

	meta      fs.File
	bin       fs.File
	metaR     *bufio.Reader
	binR      *bufio.Reader
	headerLen int64

	buf    []byte
	next   int
	done   bool
	closed bool
}

// OpenReader opens the dataset at base.
//
// Both files must exist; otherwise the error matches ErrNotFound. The header
// is parsed immediately, so a malformed one fails here with ErrFormat.
func OpenReader(base string, optFns ...Option) (*Reader, error) {
	o := applyOptions(optFns)
	r := &Reader{
		base: base,
		opts: o,
		log:  o.logger.WithDataset(base),
	}

	err := r.open()
	r.log.LogOpen(context.Background(), "read", err)
	if err != nil {
		_ = r.release()
		return nil, err
	}
	return r, nil
}

func (r *Reader) open() error {
	metaPath, binPath := MetaPath(r.base), BinPath(r.base)

	meta, err := r.opts.fs.OpenFile(metaPath, os.O_RDONLY, 0)
	if err != nil {
		return ioError("open", metaPath, err)
	}
	r.meta = meta

	bin, err := r.opts.fs.OpenFile(binPath, os.O_RDONLY, 0)
	if err != nil {
		return ioError("open", binPath, err)
	}
	r.bin = bin

	r.metaR = bufio.NewReaderSize(meta, r.opts.bufferSize)
	r.binR = bufio.NewReaderSize(bin, r.opts.bufferSize)

	h, n, err := readHeader(metaPath, r.metaR)
	if err != nil {
		return err
	}
	r.header = h
	r.headerLen = int64(n)

	r.width, err = resolveWidth(metaPath, h, r.opts)
	if err != nil {
		return err
	}
	r.rowBytes = r.width.RowBytes(h.Dim)
	r.buf = make([]byte, r.rowBytes)
	r.log = r.log.WithDimension(h.Dim)
	return nil
}

// Dim returns the dataset dimension.
func (r *Reader) Dim() int { return r.header.Dim }

// FloatBytes returns the element width in bytes.
func (r *Reader) FloatBytes() int { return int(r.width) }

// Base returns the dataset base path.
func (r *Reader) Base() string { return r.base }

// Header returns the parsed header.
func (r *Reader) Header() Header { return r.header }

// Reset positions both cursors at row 0. Calling it repeatedly has the same
// effect as calling it once.
func (r *Reader) Reset() error {
	if r.closed {
		return ErrClosed
	}
	if _, err := r.meta.Seek(r.headerLen, io.SeekStart); err != nil {
		return ioError("seek", MetaPath(r.base), err)
	}
	if _, err := r.bin.Seek(0, io.SeekStart); err != nil {
		return ioError("seek", BinPath(r.base), err)
	}
	r.metaR.Reset(r.meta)
	r.binR.Reset(r.bin)
	r.next = 0
	r.done = false
	return nil
}

// Next returns the row at the cursor and advances it.
//
// At the end of the dataset Next returns io.EOF, and keeps returning it until
// Reset. A binary stream that ends before the metadata stream, or outlives
// it, is reported as ErrDesync; a truncated vector or an undecodable metadata
// line as ErrDecoding. After any error the Reader behaves as exhausted until
// Reset.
func (r *Reader) Next() (Row, error) {
	if r.closed {
		return Row{}, ErrClosed
	}
	if r.done {
		return Row{}, io.EOF
	}

	start := time.Now()
	row, n, err := r.readRow(true)
	if err == io.EOF {
		r.done = true
		return Row{}, io.EOF
	}
	r.opts.metrics.RecordRead(n, time.Since(start), err)
	if err != nil {
		r.done = true
		return Row{}, err
	}
	return row, nil
}

// skip advances past one row without decoding it.
func (r *Reader) skip() error {
	if r.done {
		return io.EOF
	}
	_, _, err := r.readRow(false)
	if err != nil {
		r.done = true
	}
	return err
}

func (r *Reader) readRow(decode bool) (Row, int, error) {
	metaPath, binPath := MetaPath(r.base), BinPath(r.base)

	line, err := r.metaR.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return Row{}, 0, ioError("read", metaPath, err)
	}
	n := len(line)

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		if _, err := r.binR.Peek(1); err == nil {
			return Row{}, n, fmt.Errorf("%w: %w after %d rows", ErrDesync, errTrailingVectors, r.next)
		} else if err != io.EOF {
			return Row{}, n, ioError("read", binPath, err)
		}
		return Row{}, n, io.EOF
	}

	var metadata any
	if decode {
		metadata, err = codec.DecodeLine(r.opts.codec, line)
		if err != nil {
			return Row{}, n, fmt.Errorf("%w: row %d metadata: %w", ErrDecoding, r.next, err)
		}
	}

	got, err := io.ReadFull(r.binR, r.buf)
	n += got
	switch {
	case err == io.EOF:
		return Row{}, n, fmt.Errorf("%w: binary stream ended before row %d", ErrDesync, r.next)
	case err == io.ErrUnexpectedEOF:
		return Row{}, n, fmt.Errorf("%w: row %d: truncated vector, %d of %d bytes", ErrDecoding, r.next, got, r.rowBytes)
	case err != nil:
		return Row{}, n, ioError("read", binPath, err)
	}

	row := Row{Index: r.next, Metadata: metadata}
	if decode {
		row.Vector = make([]float64, r.header.Dim)
		if err := codec.DecodeVector(row.Vector, r.buf, r.width); err != nil {
			return Row{}, n, fmt.Errorf("%w: row %d vector: %w", ErrDecoding, r.next, err)
		}
	}
	r.next++
	return row, n, nil
}

// Stream resets the Reader and yields every row in order. Iteration stops
// after the first error, which is yielded with a zero Row.
//
//	for row, err := range r.Stream() {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (r *Reader) Stream() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if err := r.Reset(); err != nil {
			yield(Row{}, err)
			return
		}
		for {
			row, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Select resets the Reader and yields only the rows whose index is in rows.
// Unselected rows are skipped without decoding. Indexes past the end of the
// dataset are ignored.
func (r *Reader) Select(rows *roaring.Bitmap) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if err := r.Reset(); err != nil {
			yield(Row{}, err)
			return
		}
		if rows == nil || rows.IsEmpty() {
			return
		}

		last := int(rows.Maximum())
		for i := 0; i <= last; i++ {
			if !rows.Contains(uint32(i)) {
				if err := r.skip(); err != nil {
					if err != io.EOF {
						yield(Row{}, err)
					}
					return
				}
				continue
			}

			row, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// RowCount returns the number of rows, derived from the binary stream size.
// It does not move the cursor.
func (r *Reader) RowCount() (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	info, err := r.bin.Stat()
	if err != nil {
		return 0, ioError("stat", BinPath(r.base), err)
	}
	return int(info.Size() / int64(r.rowBytes)), nil
}

// ReadAll resets the Reader and materializes the whole dataset.
//
// The result has RowCount rows. By default a metadata stream that ends early
// fails with ErrDesync; with WithLenientReadAll the remaining vectors are
// left zero-filled and only the rows read are given metadata.
func (r *Reader) ReadAll() (*Dataset, error) {
	n, err := r.RowCount()
	if err != nil {
		return nil, err
	}

	dim := r.header.Dim
	backing := make([]float64, n*dim)
	ds := &Dataset{
		Metadata: make([]any, 0, n),
		Vectors:  make([][]float64, n),
		Dim:      dim,
	}
	for i := range ds.Vectors {
		ds.Vectors[i] = backing[i*dim : (i+1)*dim : (i+1)*dim]
	}

	i := 0
	for row, err := range r.Stream() {
		if err != nil {
			if r.opts.lenient && errors.Is(err, errTrailingVectors) {
				break
			}
			return nil, err
		}
		if i >= n {
			return nil, fmt.Errorf("%w: more than %d rows in the metadata stream", ErrDesync, n)
		}
		ds.Metadata = append(ds.Metadata, row.Metadata)
		copy(ds.Vectors[i], row.Vector)
		i++
	}

	if i < n {
		if !r.opts.lenient {
			return nil, fmt.Errorf("%w: metadata stream has %d rows, binary stream %d", ErrDesync, i, n)
		}
		r.log.LogLenientFill(context.Background(), n, i)
	}
	return ds, nil
}

// Close releases both files. A second Close returns ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	err := r.release()
	r.log.LogClose(context.Background(), r.next, err)
	return err
}

func (r *Reader) release() error {
	r.closed = true
	var errs []error
	if r.meta != nil {
		if err := r.meta.Close(); err != nil {
			errs = append(errs, ioError("close", MetaPath(r.base), err))
		}
		r.meta = nil
	}
	if r.bin != nil {
		if err := r.bin.Close(); err != nil {
			errs = append(errs, ioError("close", BinPath(r.base), err))
		}
		r.bin = nil
	}
	return errors.Join(errs...)
}

// ReadAll opens the dataset at base, materializes it and closes it.
func ReadAll(base string, optFns ...Option) (*Dataset, error) {
	r, err := OpenReader(base, optFns...)
	if err != nil {
		return nil, err
	}
	ds, err := r.ReadAll()
	return ds, errors.Join(err, r.Close())
}
