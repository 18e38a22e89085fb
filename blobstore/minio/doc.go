// Package minio provides a blobstore.Store backed by the MinIO client.
//
// It works with MinIO and any other S3-compatible server (Ceph, Garage,
// SeaweedFS) and carries no AWS SDK dependency.
//
// # Basic Usage
//
//	store, err := minio.Open(ctx, "minio://localhost:9000/emclone/runs/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Credentials come from MINIO_ACCESS_KEY/MINIO_SECRET_KEY or
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY. A "minios://" URL uses HTTPS.
//
// A preconfigured client can be wrapped directly:
//
//	client, _ := minio.New("s3.example.com:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
//	    Secure: true,
//	})
//	store := minioblob.NewStore(client, "emclone", "runs/")
package minio
