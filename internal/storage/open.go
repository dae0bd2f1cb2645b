package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Open returns the store addressed by rawURL: gs://bucket, s3://bucket or mem://
func Open(ctx context.Context, rawURL, awsRegion string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "gs":
		slog.Info("Using GCS mirror", "bucket", u.Host)
		g, err := NewGCS(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "s3":
		slog.Info("Using S3 mirror", "bucket", u.Host, "region", awsRegion)
		s, err := NewS3(u.Host, awsRegion)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mem":
		slog.Warn("Using in-memory mirror, nothing will outlive this process")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q (supported: gs, s3, mem)", u.Scheme)
	}
}

type dryRun struct {
	Store
}

// DryRun wraps s so that reads go through and Put and Copy are only logged.
func DryRun(s Store) Store {
	return dryRun{Store: s}
}

func (d dryRun) Put(ctx context.Context, key string, data []byte, contentType string) error {
	slog.Info("Dry run, not uploading", "key", key, "bytes", len(data), "content_type", contentType)
	return nil
}

func (d dryRun) Copy(ctx context.Context, src, dst string) error {
	slog.Info("Dry run, not copying", "src", src, "dst", dst)
	return nil
}
