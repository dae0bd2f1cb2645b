package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/blueturn/epicmirror/internal/layout"
	"github.com/blueturn/epicmirror/internal/models"
	"github.com/blueturn/epicmirror/internal/storage"
)

// DateIndex reports which dates have a catalog in the mirror.
type DateIndex interface {
	// Dates returns the published dates in ascending order.
	Dates(ctx context.Context) ([]models.DateKey, error)
	// Published tells the index a catalog was just written for date.
	Published(date models.DateKey)
}

// ListingIndex lists the catalog prefix on every call, so it never drifts
// from what the mirror holds. Each call costs one full listing.
type ListingIndex struct {
	Store  storage.Store
	Layout layout.Layout
}

func (ix ListingIndex) Dates(ctx context.Context) ([]models.DateKey, error) {
	keys, err := ix.Store.List(ctx, ix.Layout.CatalogPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}

	seen := make(map[models.DateKey]struct{}, len(keys))
	dates := make([]models.DateKey, 0, len(keys))
	for _, k := range keys {
		d, ok := ix.Layout.DateFromCatalogKey(k)
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

func (ListingIndex) Published(models.DateKey) {}

// CachedIndex lists once and then tracks the catalogs the run writes.
type CachedIndex struct {
	Inner DateIndex

	dates  map[models.DateKey]struct{}
	loaded bool
}

func NewCachedIndex(inner DateIndex) *CachedIndex {
	return &CachedIndex{Inner: inner}
}

func (ix *CachedIndex) Dates(ctx context.Context) ([]models.DateKey, error) {
	if !ix.loaded {
		dates, err := ix.Inner.Dates(ctx)
		if err != nil {
			return nil, err
		}
		ix.dates = make(map[models.DateKey]struct{}, len(dates))
		for _, d := range dates {
			ix.dates[d] = struct{}{}
		}
		ix.loaded = true
	}

	dates := make([]models.DateKey, 0, len(ix.dates))
	for d := range ix.dates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

func (ix *CachedIndex) Published(date models.DateKey) {
	if ix.loaded {
		ix.dates[date] = struct{}{}
	}
	ix.Inner.Published(date)
}
