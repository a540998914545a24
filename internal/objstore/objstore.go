// Package objstore reads source files from and writes reject reports to
// S3-compatible object storage.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/csvload/internal/config"
)

var (
	// ErrNotFound is returned when the bucket or object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrTooLarge is returned when an object exceeds the configured size limit.
	ErrTooLarge = errors.New("object exceeds size limit")
)

// s3Access is the subset of the minio client used by Store.
type s3Access interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store fetches and stores whole objects.
type Store struct {
	client  s3Access
	maxSize int64
}

// New connects to the endpoint in cfg. Objects larger than maxSize bytes are
// refused by Fetch; maxSize <= 0 disables the limit.
//
// Static credentials are used when configured. Otherwise the standard AWS
// environment variables are tried, then the instance or task role.
func New(cfg config.StorageConfig, maxSize int64) (*Store, error) {
	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Store{client: &client{ref: mc}, maxSize: maxSize}, nil
}

// Fetch downloads the whole object.
func (s *Store) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(bucket, key, err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if s.maxSize > 0 {
		r = io.LimitReader(rc, s.maxSize+1)
	}
	// minio reports missing objects on first read, not on GetObject.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, mapError(bucket, key, err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("s3://%s/%s: %w (%d bytes)", bucket, key, ErrTooLarge, s.maxSize)
	}
	return data, nil
}

// Put uploads data as a single object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return mapError(bucket, key, err)
	}
	return nil
}

func mapError(bucket, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("s3://%s/%s: %w: %v", bucket, key, ErrNotFound, err)
	}
	return fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
}
