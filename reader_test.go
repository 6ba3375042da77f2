package vecrow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecrow/testutil"
)

func TestRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 10, 10000} {
		t.Run(fmt.Sprintf("rows=%d", k), func(t *testing.T) {
			base := tempBase(t)
			rng := testutil.NewRNG(int64(k))
			meta, vecs := rng.Rows(k, 8)

			writeRows(t, base, meta, vecs, WithDimension(8))

			r, err := OpenReader(base)
			require.NoError(t, err)
			defer r.Close()

			n, err := r.RowCount()
			require.NoError(t, err)
			assert.Equal(t, k, n)
			assert.Equal(t, 8, r.Dim())

			ds, err := r.ReadAll()
			require.NoError(t, err)
			assert.Equal(t, 8, ds.Dim)
			require.Len(t, ds.Metadata, k)
			require.Len(t, ds.Vectors, k)
			if k > 0 {
				assert.Equal(t, meta, ds.Metadata)
				assert.Equal(t, vecs, ds.Vectors)
			}
		})
	}
}

func TestRoundTrip_Float64(t *testing.T) {
	base := tempBase(t)
	rng := testutil.NewRNG(3)
	vecs := rng.GaussianVectors(20, 6)
	meta := rng.Metadata(20)

	writeRows(t, base, meta, vecs, WithFloatBytes(8))

	info, err := os.Stat(BinPath(base))
	require.NoError(t, err)
	assert.Equal(t, int64(20*6*8), info.Size())

	ds, err := ReadAll(base, WithFloatBytes(8))
	require.NoError(t, err)
	assert.Equal(t, vecs, ds.Vectors)
	assert.Equal(t, meta, ds.Metadata)
}

func TestReadAll_Corn(t *testing.T) {
	base := tempBase(t)

	w, err := Create(base)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Write(fmt.Sprintf("corn%d", i), make([]float64, 4)))
	}
	require.NoError(t, w.Close())

	ds, err := ReadAll(base)
	require.NoError(t, err)
	require.Len(t, ds.Vectors, 10)
	for _, v := range ds.Vectors {
		assert.Len(t, v, 4)
	}
	assert.Equal(t, 4, ds.Dim)
	assert.Equal(t, "corn3", ds.Metadata[3])
}

func TestReader_SequentialExhaustion(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(5).Rows(7, 3)
	writeRows(t, base, meta, vecs)

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.RowCount()
	require.NoError(t, err)

	count := 0
	for row, err := range r.Stream() {
		require.NoError(t, err)
		assert.Equal(t, count, row.Index)
		assert.Equal(t, meta[count], row.Metadata)
		assert.Equal(t, vecs[count], row.Vector)
		count++
	}
	assert.Equal(t, n, count)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ResetIdempotent(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(9).Rows(4, 2)
	writeRows(t, base, meta, vecs)

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)

	require.NoError(t, r.Reset())
	require.NoError(t, r.Reset())

	again, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 0, again.Index)
}

func TestReader_StreamRestarts(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(11).Rows(5, 2)
	writeRows(t, base, meta, vecs)

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	for row, err := range r.Stream() {
		require.NoError(t, err)
		if row.Index == 2 {
			break
		}
	}

	var indexes []int
	for row, err := range r.Stream() {
		require.NoError(t, err)
		indexes = append(indexes, row.Index)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indexes)
}

func TestReader_Select(t *testing.T) {
	base := tempBase(t)
	vecs := make([][]float64, 10)
	meta := make([]any, 10)
	for i := range vecs {
		vecs[i] = testutil.SequenceVector(float64(i*3), 3)
		meta[i] = float64(i)
	}
	writeRows(t, base, meta, vecs)

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	var got []Row
	for row, err := range r.Select(roaring.BitmapOf(1, 3, 7, 100)) {
		require.NoError(t, err)
		got = append(got, row)
	}
	require.Len(t, got, 3)
	for i, idx := range []int{1, 3, 7} {
		assert.Equal(t, idx, got[i].Index)
		assert.Equal(t, meta[idx], got[i].Metadata)
		assert.Equal(t, vecs[idx], got[i].Vector)
	}

	count := 0
	for range r.Select(roaring.New()) {
		count++
	}
	assert.Zero(t, count)
}

func TestReader_Header(t *testing.T) {
	base := tempBase(t)
	writeRows(t, base, []any{"x"}, [][]float64{{1, 2, 3}}, WithPreamble())

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.True(t, h.Preamble)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, 3, h.Dim)
	assert.Equal(t, 4, h.FloatBytes)
	assert.Equal(t, 4, r.FloatBytes())
	assert.Equal(t, base, r.Base())
}

func TestReader_NotFound(t *testing.T) {
	t.Run("Meta", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{1.0}, [][]float64{{1}})
		require.NoError(t, os.Remove(MetaPath(base)))

		_, err := OpenReader(base)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = ReadAll(base)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Bin", func(t *testing.T) {
		base := tempBase(t)
		writeRows(t, base, []any{1.0}, [][]float64{{1}})
		require.NoError(t, os.Remove(BinPath(base)))

		_, err := OpenReader(base)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReader_BadHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"Empty", ""},
		{"Blank", "\n"},
		{"NotInteger", "abc\n"},
		{"Zero", "0\n"},
		{"Negative", "-3\n"},
		{"MalformedPreamble", "{\"dim\":\n"},
		{"UnknownField", "{\"version\":1,\"dim\":2,\"extra\":true}\n"},
		{"Version", "{\"version\":2,\"dim\":2}\n"},
		{"PreambleDim", "{\"version\":1,\"dim\":0}\n"},
		{"PreambleWidth", "{\"version\":1,\"dim\":2,\"float_bytes\":2}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := tempBase(t)
			require.NoError(t, os.WriteFile(MetaPath(base), []byte(tt.header), 0o644))
			require.NoError(t, os.WriteFile(BinPath(base), nil, 0o644))

			_, err := OpenReader(base)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestReader_TruncatedBinary(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(2).Rows(10, 4)
	writeRows(t, base, meta, vecs)
	require.NoError(t, os.Truncate(BinPath(base), 10*16-2))

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 9; i++ {
		row, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, vecs[i], row.Vector)
	}

	_, err = r.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecoding) || errors.Is(err, ErrDesync), err)

	// Exhausted after the error
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.ReadAll()
	assert.Error(t, err)
}

func TestReader_MissingVectors(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(4).Rows(10, 4)
	writeRows(t, base, meta, vecs)
	require.NoError(t, os.Truncate(BinPath(base), 8*16))

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = r.ReadAll()
	assert.ErrorIs(t, err, ErrDesync)

	_, err = ReadAll(base, WithLenientReadAll())
	assert.ErrorIs(t, err, ErrDesync)
}

func TestReader_TrailingVectors(t *testing.T) {
	base := tempBase(t)
	meta, vecs := testutil.NewRNG(6).Rows(10, 4)
	writeRows(t, base, meta, vecs)

	f, err := os.OpenFile(BinPath(base), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 2*16))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Run("Strict", func(t *testing.T) {
		_, err := ReadAll(base)
		assert.ErrorIs(t, err, ErrDesync)
	})

	t.Run("Lenient", func(t *testing.T) {
		ds, err := ReadAll(base, WithLenientReadAll())
		require.NoError(t, err)
		require.Len(t, ds.Vectors, 12)
		assert.Equal(t, meta, ds.Metadata)
		assert.Equal(t, vecs, ds.Vectors[:10])
		assert.Equal(t, make([]float64, 4), ds.Vectors[11])
	})

	t.Run("Next", func(t *testing.T) {
		r, err := OpenReader(base)
		require.NoError(t, err)
		defer r.Close()

		for i := 0; i < 10; i++ {
			_, err := r.Next()
			require.NoError(t, err)
		}
		_, err = r.Next()
		assert.ErrorIs(t, err, ErrDesync)
	})
}

func TestReader_EmptyLineEndsData(t *testing.T) {
	base := tempBase(t)
	require.NoError(t, os.WriteFile(MetaPath(base), []byte("1\n\"a\"\n\n"), 0o644))
	require.NoError(t, os.WriteFile(BinPath(base), make([]byte, 4), 0o644))

	ds, err := ReadAll(base)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, ds.Metadata)
}

func TestReader_BadMetadataLine(t *testing.T) {
	base := tempBase(t)
	require.NoError(t, os.WriteFile(MetaPath(base), []byte("1\n\"a\"\n{nope\n"), 0o644))
	require.NoError(t, os.WriteFile(BinPath(base), make([]byte, 8), 0o644))

	r, err := OpenReader(base)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrDecoding)
}

func TestReader_Closed(t *testing.T) {
	base := tempBase(t)
	writeRows(t, base, []any{1.0}, [][]float64{{1}})

	r, err := OpenReader(base)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Close(), ErrClosed)
	assert.ErrorIs(t, r.Reset(), ErrClosed)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.RowCount()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.ReadAll()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReader_Metrics(t *testing.T) {
	base := tempBase(t)
	writeRows(t, base, []any{"ab", "cd"}, [][]float64{{1, 2}, {3, 4}})

	metrics := &BasicMetricsCollector{}
	_, err := ReadAll(base, WithMetricsCollector(metrics))
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.ReadCount.Load())
	assert.Zero(t, metrics.ReadErrors.Load())
	assert.Equal(t, int64(2*(5+8)), metrics.ReadBytes.Load())
}
