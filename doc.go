// Package vecrow stores vector datasets as paired metadata and binary streams.
//
// A dataset at base path "embeddings" is two files:
//
//	embeddings.meta   line 0: the header; line i+1: row i's metadata as one JSON line
//	embeddings.bin    row i's vector as dim little-endian floats, rows back to back
//
// The header is either the bare dimension ("384") or, with WithPreamble, a
// JSON object recording the format version, dimension and float width:
//
//	{"version":1,"dim":384,"float_bytes":4}
//
// Row i of the metadata stream and row i of the binary stream always belong
// together; there is no index or checksum. The row count is derived from the
// binary stream size alone.
//
// # Writing
//
//	w, err := vecrow.Create("out/embeddings", vecrow.WithDimension(384))
//	if err != nil { ... }
//	for _, doc := range docs {
//	    if err := w.Write(doc.Meta, doc.Vector); err != nil { ... }
//	}
//	err = w.Close()
//
// Append reopens an existing dataset without touching its header. Export
// writes a whole dataset from two parallel slices in one call.
//
// # Reading
//
//	r, err := vecrow.OpenReader("out/embeddings")
//	if err != nil { ... }
//	defer r.Close()
//
//	for row, err := range r.Stream() {
//	    if err != nil { ... }
//	    fmt.Println(row.Index, row.Metadata, row.Vector[:3])
//	}
//
// Next reads one row at a time and returns io.EOF at the end. ReadAll
// materializes everything into one contiguous array; Select yields only the
// rows in a roaring bitmap.
//
// # Vectors and Widths
//
// Vectors are []float64 in memory. They are stored as float32 unless
// WithFloatBytes(8) is given, so values that originate as float32 round-trip
// exactly. Legacy headers do not record the width: read a dataset with the
// width it was written with.
//
// # Errors
//
// Failures match one of the sentinels ErrNotFound, ErrFormat, ErrEncoding,
// ErrDecoding, ErrDesync, ErrIO, ErrClosed or ErrInvalidFloatBytes under
// errors.Is, or are an *ErrDimensionMismatch or *ErrRowCountMismatch. OS
// errors stay reachable through the wrap chain.
//
// # Object Storage
//
// Upload and Download move a dataset to and from any blobstore.BlobStore
// (local directory, memory, S3, MinIO), copying both streams concurrently
// under an optional resource.Controller. A failed Upload deletes both blobs;
// a failed Download leaves the local dataset as it was.
//
// # Concurrency
//
// Readers and Writers are not safe for concurrent use, and a dataset must not
// be read while it is being appended to.
package vecrow
