package minio

import (
	"context"
	"testing"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    Location
		wantErr bool
	}{
		{raw: "minio://localhost:9000/emclone", want: Location{Endpoint: "localhost:9000", Bucket: "emclone"}},
		{raw: "minio://localhost:9000/emclone/runs/a", want: Location{Endpoint: "localhost:9000", Bucket: "emclone", Prefix: "runs/a"}},
		{raw: "minios://s3.example.com/b/p/", want: Location{Endpoint: "s3.example.com", Bucket: "b", Prefix: "p/", Secure: true}},
		{raw: "s3://bucket/prefix", wantErr: true},
		{raw: "minio://localhost:9000", wantErr: true},
		{raw: "minio:///bucket", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("candidate/clone3.(hard).png"))
	assert.Equal(t, "text/plain", contentType("result/emclone_hard.mixture.txt"))
	assert.Equal(t, "application/octet-stream", contentType("trace/clone3.0.jsonl.zst"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-emclone"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "trial/clone2.0-0.png", data))

	blob, err := store.Open(ctx, "trial/clone2.0-0.png")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)
	require.NoError(t, blob.Close())

	require.NoError(t, blobstore.Copy(ctx, store, "trial/clone2.0-0.png", "candidate/clone2.(hard).png"))
	got, err := blobstore.ReadAll(ctx, store, "candidate/clone2.(hard).png")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "trial/clone2.0-0.png")
	assert.Contains(t, names, "candidate/clone2.(hard).png")

	require.NoError(t, store.Delete(ctx, "trial/clone2.0-0.png"))
	require.NoError(t, store.Delete(ctx, "candidate/clone2.(hard).png"))

	_, err = store.Open(ctx, "trial/clone2.0-0.png")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
