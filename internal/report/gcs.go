package report

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBucket writes report objects to a Google Cloud Storage bucket.
type GCSBucket struct {
	client *storage.Client
	name   string
}

// NewGCSBucket connects to bucket. An empty credentialsFile falls back to
// application default credentials.
func NewGCSBucket(ctx context.Context, bucket, credentialsFile string) (*GCSBucket, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSBucket{client: client, name: bucket}, nil
}

// NewWriter opens name for writing.
func (b *GCSBucket) NewWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	return &gcsObject{Writer: w, cancel: cancel}, nil
}

// Close releases the storage client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}

type gcsObject struct {
	*storage.Writer
	cancel context.CancelFunc
}

// Abort cancels the upload so Close does not commit a partial object.
func (o *gcsObject) Abort() {
	o.cancel()
}

func (o *gcsObject) Close() error {
	defer o.cancel()
	return o.Writer.Close()
}
