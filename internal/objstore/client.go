package objstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// client adapts *minio.Client to s3Access so GetObject returns an
// io.ReadCloser instead of a *minio.Object.
type client struct {
	ref *minio.Client
}

var _ s3Access = &client{}

// GetObject implements s3Access.
func (c *client) GetObject(
	ctx context.Context, bucket, key string, opts minio.GetObjectOptions,
) (io.ReadCloser, error) {
	return c.ref.GetObject(ctx, bucket, key, opts)
}

// PutObject implements s3Access.
func (c *client) PutObject(
	ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	return c.ref.PutObject(ctx, bucket, key, r, size, opts)
}
