package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/blueturn/epicmirror/internal/models"
)

// Client reads the remote EPIC catalog. Nothing is cached; every call fetches.
type Client struct {
	BaseURL string
	http    *HTTPClient
}

// NewClient creates a catalog client for an API base such as
// https://epic.gsfc.nasa.gov/api/natural
func NewClient(baseURL string, httpClient *HTTPClient) *Client {
	return &Client{
		BaseURL: baseURL,
		http:    httpClient,
	}
}

// ListDates returns every date the API has images for, most recent first.
func (c *Client) ListDates(ctx context.Context) ([]models.DateKey, error) {
	data, err := c.http.Get(ctx, c.BaseURL+"/all")
	if err != nil {
		return nil, err
	}

	var entries []struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode date list: %w", err)
	}

	seen := make(map[models.DateKey]struct{}, len(entries))
	dates := make([]models.DateKey, 0, len(entries))
	for _, e := range entries {
		raw := e.Date
		if len(raw) > len(models.DateLayout) {
			raw = raw[:len(models.DateLayout)]
		}
		d, err := models.ParseDateKey(raw)
		if err != nil {
			slog.Warn("Ignoring malformed date from API", "date", e.Date, "error", err)
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })
	return dates, nil
}

// ListImages returns the image records the API publishes for date.
func (c *Client) ListImages(ctx context.Context, date models.DateKey) ([]models.ImageRecord, error) {
	data, err := c.http.Get(ctx, fmt.Sprintf("%s/date/%s", c.BaseURL, url.PathEscape(string(date))))
	if err != nil {
		return nil, err
	}

	var records []models.ImageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode image list for %s: %w", date, err)
	}
	return records, nil
}
