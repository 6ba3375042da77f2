// Package blobstore abstracts where published datasets live.
//
// A dataset is published as two blobs, "<name>.meta" and "<name>.bin"; see
// vecrow.Upload and vecrow.Download. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a local directory, mmap-backed reads, atomic renames on write
//   - MemoryStore: in-process, for tests and staging
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blob.ReadRange should map onto a ranged read of the backend, since
// downloads stream each blob through it.
package blobstore
