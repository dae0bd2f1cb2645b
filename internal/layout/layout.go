// Package layout names every key the mirror writes under its root folder.
package layout

import (
	"fmt"
	"path"
	"strings"

	"github.com/blueturn/epicmirror/internal/models"
)

const (
	// FullResolution is published as jpg/{id}.jpg for older clients.
	FullResolution = 2048
	// ThumbResolution is published as thumbs/{id}.jpg.
	ThumbResolution = 120
)

// Layout maps mirror artifacts to store keys under Root.
type Layout struct {
	Root string
}

func (l Layout) key(parts ...string) string {
	return path.Join(append([]string{l.Root}, parts...)...)
}

// CatalogPrefix is the listing prefix shared by all daily catalogs.
func (l Layout) CatalogPrefix() string {
	return l.key("list", "images_")
}

func (l Layout) Catalog(date models.DateKey) string {
	return l.CatalogPrefix() + string(date) + ".json"
}

// DateFromCatalogKey extracts the date from a key returned by listing CatalogPrefix.
func (l Layout) DateFromCatalogKey(key string) (models.DateKey, bool) {
	prefix := l.CatalogPrefix()
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ".json") {
		return "", false
	}
	d, err := models.ParseDateKey(strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json"))
	if err != nil {
		return "", false
	}
	return d, true
}

func (l Layout) AvailableDates() string {
	return l.key("available_dates.json")
}

func (l Layout) Latest() string {
	return l.key("images_latest.json")
}

func (l Layout) PNG(imageID string) string {
	return l.key("png", imageID+".png")
}

func (l Layout) Debug(imageID string) string {
	return l.key("debug", imageID+".png")
}

// Resolution returns the key of a resized JPEG. The two special sizes keep
// the paths older clients already read.
func (l Layout) Resolution(res int, imageID string) string {
	switch res {
	case FullResolution:
		return l.key("jpg", imageID+".jpg")
	case ThumbResolution:
		return l.key("thumbs", imageID+".jpg")
	default:
		return l.key("jpg", fmt.Sprint(res), imageID+".jpg")
	}
}
