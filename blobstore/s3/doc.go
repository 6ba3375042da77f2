// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = vecrow.Upload(ctx, store, "out/embeddings", "embeddings")
//
// # Features
//
//   - Ranged GETs for partial reads
//   - Streaming multipart uploads, aborted on failure
//   - CRC32C checksums on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
