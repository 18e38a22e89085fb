// Package blobstore provides storage for emclone's run artifacts: diagnostic
// plots, step traces and result files.
//
// Store is the interface for reading and writing named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local filesystem
//   - MemoryStore: in-memory, for tests and dry runs
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// Throttled wraps any Store with a resource.Controller IO budget.
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Names use forward slashes ("trial/clone3.0-4.png") on every backend.
package blobstore
