// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("runs/2f1c.../"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	res, err := emclone.Run(ctx, ds, emclone.WithStore(store))
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large artifacts
//   - CRC32C integrity checks on Put
//   - Automatic pagination for listing
package s3
