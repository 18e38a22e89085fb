package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/emclone/blobstore"
	miniostore "github.com/hupe1980/emclone/blobstore/minio"
	s3store "github.com/hupe1980/emclone/blobstore/s3"
)

// openStore resolves an output location. minio://, minios:// and s3:// URLs
// select an object store; anything else is a local directory, created if
// missing.
func openStore(ctx context.Context, location, region string) (blobstore.Store, error) {
	switch {
	case strings.HasPrefix(location, "minio://"), strings.HasPrefix(location, "minios://"):
		return miniostore.Open(ctx, location)
	case strings.HasPrefix(location, "s3://"):
		bucket, prefix, err := s3store.ParseURL(location)
		if err != nil {
			return nil, err
		}
		opts := []s3store.Option{s3store.WithPrefix(prefix)}
		if region != "" {
			opts = append(opts, s3store.WithRegion(region))
		}
		return s3store.New(ctx, bucket, opts...)
	case location == "":
		return nil, fmt.Errorf("empty output location")
	default:
		if err := os.MkdirAll(location, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		return blobstore.NewLocalStore(location), nil
	}
}
