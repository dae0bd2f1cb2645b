package images

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blueturn/epicmirror/internal/catalog"
	"github.com/blueturn/epicmirror/internal/models"
)

// Fetcher downloads canonical PNG rasters from the EPIC archive.
type Fetcher struct {
	ArchiveURL string
	http       *catalog.HTTPClient
}

// NewFetcher creates a fetcher for an archive base such as
// https://epic.gsfc.nasa.gov/archive/natural
func NewFetcher(archiveURL string, httpClient *catalog.HTTPClient) *Fetcher {
	return &Fetcher{
		ArchiveURL: archiveURL,
		http:       httpClient,
	}
}

// PNGURL derives the archive location from the date encoded in the image identifier.
func (f *Fetcher) PNGURL(imageID string) (string, error) {
	year, month, day, err := models.ArchiveDate(imageID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/%s/png/%s.png", f.ArchiveURL, year, month, day, imageID), nil
}

// FetchPNG returns the raw PNG bytes for imageID.
func (f *Fetcher) FetchPNG(ctx context.Context, imageID string) ([]byte, error) {
	url, err := f.PNGURL(imageID)
	if err != nil {
		return nil, err
	}

	slog.Info("Downloading", "url", url)
	data, err := f.http.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	slog.Debug("Downloaded PNG", "image", imageID, "bytes", len(data))
	return data, nil
}
