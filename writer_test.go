package vecrow

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecrow/codec"
	"github.com/hupe1980/vecrow/internal/fs"
	"github.com/hupe1980/vecrow/testutil"
)

func tempBase(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "embeddings")
}

func writeRows(t *testing.T, base string, meta []any, vecs [][]float64, opts ...Option) {
	t.Helper()
	w, err := Create(base, opts...)
	require.NoError(t, err)
	for i := range meta {
		require.NoError(t, w.Write(meta[i], vecs[i]))
	}
	require.NoError(t, w.Close())
}

func TestWriter_Layout(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base)
	require.NoError(t, err)
	require.NoError(t, w.Write("a", []float64{1, 2}))
	require.NoError(t, w.Write(map[string]any{"k": 1}, []float64{3, 4}))
	assert.Equal(t, 2, w.Dim())
	assert.Equal(t, 2, w.Rows())
	assert.Equal(t, 4, w.FloatBytes())
	require.NoError(t, w.Close())

	meta, err := os.ReadFile(MetaPath(base))
	require.NoError(t, err)
	assert.Equal(t, "2\n\"a\"\n{\"k\":1}\n", string(meta))

	bin, err := os.ReadFile(BinPath(base))
	require.NoError(t, err)
	require.Len(t, bin, 16)
	for i, want := range []float32{1, 2, 3, 4} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(bin[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestWriter_HeaderAtOpen(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base, WithDimension(3))
	require.NoError(t, err)
	assert.Equal(t, 3, w.Dim())
	require.NoError(t, w.Close())

	meta, err := os.ReadFile(MetaPath(base))
	require.NoError(t, err)
	assert.Equal(t, "3\n", string(meta))

	info, err := os.Stat(BinPath(base))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()
	n, err := r.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriter_Preamble(t *testing.T) {
	base := tempBase(t)

	writeRows(t, base, []any{1.0}, [][]float64{{0.5, 0.25}}, WithPreamble(), WithFloatBytes(8))

	meta, err := os.ReadFile(MetaPath(base))
	require.NoError(t, err)
	assert.Equal(t, "{\"version\":1,\"dim\":2,\"float_bytes\":8}\n1\n", string(meta))

	// Width comes from the preamble
	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.25}}, ds.Vectors)

	// A conflicting explicit width is rejected
	_, err = OpenReader(base, WithFloatBytes(4))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestWriter_DimensionMismatch(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base, WithDimension(4))
	require.NoError(t, err)
	require.NoError(t, w.Write("ok", []float64{0, 0, 0, 0}))

	err = w.Write("short", []float64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimension)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Equal(t, 1, w.Rows())
	require.NoError(t, w.Close())

	// Nothing of the rejected row reached disk
	info, err := os.Stat(BinPath(base))
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size())

	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, []any{"ok"}, ds.Metadata)
}

func TestWriter_FirstWriteEstablishesDimension(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Dim())

	err = w.Write("empty", nil)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, 0, w.Dim())
	assert.Equal(t, 0, w.Rows())

	require.NoError(t, w.Write("first", []float64{1, 2, 3}))
	assert.Equal(t, 3, w.Dim())
	assert.ErrorIs(t, w.Write("second", []float64{1, 2}), ErrDimension)
	require.NoError(t, w.Close())
}

func TestWriter_EncodingErrors(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base, WithDimension(1), WithCodec(codec.JSON{}))
	require.NoError(t, err)

	err = w.Write(make(chan int), []float64{1})
	assert.ErrorIs(t, err, ErrEncoding)

	w2, err := Create(tempBase(t), WithDimension(1), WithCodec(indentCodec{}))
	require.NoError(t, err)
	err = w2.Write(map[string]any{"a": 1}, []float64{1})
	assert.ErrorIs(t, err, ErrEncoding)
	assert.ErrorIs(t, err, codec.ErrNewline)
	require.NoError(t, w2.Close())

	require.NoError(t, w.Write("fine", []float64{1}))
	require.NoError(t, w.Close())

	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, []any{"fine"}, ds.Metadata)
}

func TestWriter_InvalidFloatBytes(t *testing.T) {
	_, err := Create(tempBase(t), WithFloatBytes(2))
	assert.ErrorIs(t, err, ErrInvalidFloatBytes)
}

func TestWriter_Closed(t *testing.T) {
	w, err := Create(tempBase(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Close(), ErrClosed)
	assert.ErrorIs(t, w.Write("x", []float64{1}), ErrClosed)
	assert.ErrorIs(t, w.Flush(), ErrClosed)
}

func TestWriter_CreateTruncates(t *testing.T) {
	base := tempBase(t)
	rng := testutil.NewRNG(1)

	meta, vecs := rng.Rows(10, 4)
	writeRows(t, base, meta, vecs)
	writeRows(t, base, meta[:2], vecs[:2])

	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, meta[:2], ds.Metadata)
	assert.Equal(t, vecs[:2], ds.Vectors)
}

func TestWriter_Append(t *testing.T) {
	base := tempBase(t)
	rng := testutil.NewRNG(7)
	meta, vecs := rng.Rows(6, 5)

	writeRows(t, base, meta[:3], vecs[:3])
	header, err := os.ReadFile(MetaPath(base))
	require.NoError(t, err)
	before, err := os.ReadFile(BinPath(base))
	require.NoError(t, err)
	require.Len(t, before, 3*5*4)

	w, err := Append(base)
	require.NoError(t, err)
	assert.Equal(t, 5, w.Dim())
	for i := 3; i < 6; i++ {
		require.NoError(t, w.Write(meta[i], vecs[i]))
	}
	assert.ErrorIs(t, w.Write("bad", []float64{1}), ErrDimension)
	require.NoError(t, w.Close())

	after, err := os.ReadFile(MetaPath(base))
	require.NoError(t, err)
	assert.Equal(t, string(header), string(after[:len(header)]))
	assert.Equal(t, "5\n", string(after[:2]))

	bin, err := os.ReadFile(BinPath(base))
	require.NoError(t, err)
	require.Len(t, bin, 6*5*4)
	assert.Equal(t, before, bin[:len(before)])

	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, meta, ds.Metadata)
	assert.Equal(t, vecs, ds.Vectors)
}

func TestWriter_AppendErrors(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := Append(tempBase(t))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("MissingBinary", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{1.0}, [][]float64{{1}})
		require.NoError(t, os.Remove(BinPath(base)))

		_, err := Append(base)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("EmptyHeader", func(t *testing.T) {
		base := tempBase(t)
		require.NoError(t, os.WriteFile(MetaPath(base), nil, 0o644))
		require.NoError(t, os.WriteFile(BinPath(base), nil, 0o644))

		_, err := Append(base)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("DimensionOption", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{1.0}, [][]float64{{1, 2}})

		_, err := Append(base, WithDimension(3))
		assert.ErrorIs(t, err, ErrDimension)
	})

	t.Run("TornBinary", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{1.0}, [][]float64{{1, 2}})
		require.NoError(t, os.Truncate(BinPath(base), 6))

		_, err := Append(base)
		assert.ErrorIs(t, err, ErrDesync)
	})

	t.Run("TornMetadata", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{"abc"}, [][]float64{{1, 2}})
		info, err := os.Stat(MetaPath(base))
		require.NoError(t, err)
		require.NoError(t, os.Truncate(MetaPath(base), info.Size()-1))

		_, err = Append(base)
		assert.ErrorIs(t, err, ErrDesync)
	})
}

func TestWriter_DiskFull(t *testing.T) {
	base := tempBase(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(BinExt, fs.Fault{FailAfterBytes: 100})

	w, err := Create(base, withFileSystem(faulty), WithDimension(4), WithBufferSize(16))
	require.NoError(t, err)
	assert.Equal(t, 2, faulty.OpenFiles())

	var writeErr error
	for i := 0; i < 100 && writeErr == nil; i++ {
		writeErr = w.Write(i, []float64{1, 2, 3, 4})
	}
	require.Error(t, writeErr)
	assert.ErrorIs(t, writeErr, ErrIO)
	assert.ErrorIs(t, writeErr, fs.ErrInjected)

	_ = w.Close()
	assert.Equal(t, 0, faulty.OpenFiles())
}

func TestWriter_OpenFailureReleasesHandles(t *testing.T) {
	base := tempBase(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(BinExt, fs.Fault{FailOnOpen: true, FailAfterBytes: -1})

	_, err := Create(base, withFileSystem(faulty))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, 0, faulty.OpenFiles())
}

func TestWriter_CloseFailure(t *testing.T) {
	base := tempBase(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(MetaExt, fs.Fault{FailOnClose: true, FailAfterBytes: -1})

	w, err := Create(base, withFileSystem(faulty))
	require.NoError(t, err)
	require.NoError(t, w.Write("x", []float64{1}))

	err = w.Close()
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, 0, faulty.OpenFiles())
}

func TestWriter_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	w, err := Create(tempBase(t), WithMetricsCollector(metrics), WithDimension(2))
	require.NoError(t, err)

	require.NoError(t, w.Write("ab", []float64{1, 2}))
	require.Error(t, w.Write("ab", []float64{1}))
	require.NoError(t, w.Close())

	assert.Equal(t, int64(2), metrics.WriteCount.Load())
	assert.Equal(t, int64(1), metrics.WriteErrors.Load())
	// `"ab"` plus newline, two float32s
	assert.Equal(t, int64(5+8), metrics.WriteBytes.Load())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "create", ModeCreate.String())
	assert.Equal(t, "append", ModeAppend.String())
	assert.Equal(t, "mode(7)", Mode(7).String())

	_, err := OpenWriter(tempBase(t), Mode(7))
	assert.Error(t, err)
}

// indentCodec produces multi-line output, which a line-oriented stream
// cannot hold.
type indentCodec struct{}

func (indentCodec) Name() string { return "indent" }

func (indentCodec) Marshal(v any) ([]byte, error) {
	return []byte("{\n  \"a\": 1\n}"), nil
}

func (indentCodec) Unmarshal(data []byte, v any) error {
	return codec.JSON{}.Unmarshal(data, v)
}
