// Package minio provides a BlobStore implementation using the MinIO client.
//
// It talks to MinIO and other S3-compatible systems such as Ceph, SeaweedFS
// and Garage through the official MinIO Go client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "datasets/")
//	err = vecrow.Upload(ctx, store, "out/embeddings", "embeddings")
//
// Dial is a shortcut for static credentials:
//
//	store, err := minioblob.Dial("localhost:9000", "minioadmin", "minioadmin", false, "my-bucket", "")
//
// # Features
//
//   - Works with any S3-compatible storage (Ceph, Garage, SeaweedFS)
//   - Streaming uploads for large binary streams
//   - Air-gap friendly (no AWS dependencies required)
//
// # Configuration Options
//
// The MinIO client supports various configuration options:
//
//	client, _ := minio.New("s3.example.com:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
//	    Secure: true,                    // Use HTTPS
//	    Region: "us-east-1",             // Optional region
//	})
package minio
