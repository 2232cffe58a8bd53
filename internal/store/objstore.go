package store

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore fetches attachment bytes that live in a storage bucket
// rather than inline on a row.
type ObjectStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// GCSStore is the bucket-backed ObjectStore.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore opens a client for the named bucket. credentialsPath may be
// empty to use ambient credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsPath string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("store: bucket is required")
	}
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: object storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Download reads the full object at path.
func (s *GCSStore) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: open object %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("store: read object %s: %w", path, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
