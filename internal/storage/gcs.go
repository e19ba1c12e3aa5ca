package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBucket stores objects in a Google Cloud Storage bucket.
type GCSBucket struct {
	client       *gcs.Client
	bucket       string
	objectPrefix string
}

// NewGCSBucket creates a client using credentialsFile, or application default credentials when empty.
func NewGCSBucket(ctx context.Context, bucketName, objectPrefix, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSBucket{
		client:       client,
		bucket:       bucketName,
		objectPrefix: strings.Trim(objectPrefix, "/"),
	}, nil
}

func (b *GCSBucket) objectName(key string) string {
	key = strings.TrimPrefix(key, "/")
	if b.objectPrefix != "" {
		return b.objectPrefix + "/" + key
	}
	return key
}

// Read downloads the whole object.
func (b *GCSBucket) Read(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.client.Bucket(b.bucket).Object(b.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open gcs object %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", key, err)
	}
	return data, nil
}

// Write uploads data, replacing any existing object.
func (b *GCSBucket) Write(ctx context.Context, key string, data []byte) error {
	writer := b.client.Bucket(b.bucket).Object(b.objectName(key)).NewWriter(ctx)
	writer.ContentType = "audio/mpeg"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
