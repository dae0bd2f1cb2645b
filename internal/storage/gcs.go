package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsPageSize = 1000

// GCS stores the mirror in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

// NewGCS opens bucket with application default credentials unless opts say otherwise.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket)}, nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open gs object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs object %s: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write gs object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	pager := iterator.NewPager(it, gcsPageSize, "")

	var keys []string
	for {
		var page []*gcs.ObjectAttrs
		next, err := pager.NextPage(&page)
		if err != nil {
			return nil, fmt.Errorf("failed to list gs prefix %s: %w", prefix, err)
		}
		for _, attrs := range page {
			keys = append(keys, attrs.Name)
		}
		if next == "" {
			return keys, nil
		}
	}
}

func (g *GCS) Copy(ctx context.Context, src, dst string) error {
	_, err := g.bucket.Object(dst).CopierFrom(g.bucket.Object(src)).Run(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to copy gs object %s to %s: %w", src, dst, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
