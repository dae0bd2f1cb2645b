// Package reconcile keeps the mirror in step with the remote catalog.
//
// Every run derives each date's state from the mirror and the remote API
// as they are now; nothing is remembered between runs. A date whose image
// set differs from the remote one is brought up to date by processing the
// missing images and rewriting its catalog, after which the available dates
// index and the latest pointer are refreshed. Failed images are left out of
// the catalog and come back in the next run's delta.
package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blueturn/epicmirror/internal/audit"
	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/geometry"
	"github.com/blueturn/epicmirror/internal/images"
	"github.com/blueturn/epicmirror/internal/invalidation"
	"github.com/blueturn/epicmirror/internal/layout"
	"github.com/blueturn/epicmirror/internal/metrics"
	"github.com/blueturn/epicmirror/internal/models"
	"github.com/blueturn/epicmirror/internal/storage"
)

// Catalog is the remote catalog API.
type Catalog interface {
	ListDates(ctx context.Context) ([]models.DateKey, error)
	ListImages(ctx context.Context, date models.DateKey) ([]models.ImageRecord, error)
}

// Archive serves the canonical rasters.
type Archive interface {
	FetchPNG(ctx context.Context, imageID string) ([]byte, error)
}

// Mode selects which dates a run looks at.
type Mode struct {
	// Full reprocesses every image of every date.
	Full bool
	// Dates restricts the run to these dates, reprocessing all their images.
	// The latest pointer is left alone.
	Dates []models.DateKey
}

func (m Mode) explicit() bool {
	return len(m.Dates) > 0
}

// trackLatest reports whether the run maintains the latest pointer.
func (m Mode) trackLatest() bool {
	return !m.explicit()
}

// Deps are the collaborators of an Engine. Index and Metrics are optional.
type Deps struct {
	Catalog     Catalog
	Archive     Archive
	Store       storage.Store
	Invalidator invalidation.Invalidator
	Index       DateIndex
	Metrics     *metrics.Run
}

type Engine struct {
	cfg    *config.Config
	layout layout.Layout
	dryRun bool

	catalog   Catalog
	archive   Archive
	store     storage.Store
	index     DateIndex
	batcher   *invalidation.Batcher
	metrics   *metrics.Run
	extractor *geometry.Extractor
	ladder    images.Ladder
	audit     *audit.Log

	now func() time.Time
}

// New builds an engine. With dryRun the store only serves reads and no
// invalidation is sent; everything else runs as usual.
func New(cfg *config.Config, deps Deps, dryRun bool) *Engine {
	store := deps.Store
	if dryRun {
		store = storage.DryRun(store)
	}
	index := deps.Index
	if index == nil {
		index = ListingIndex{Store: store, Layout: cfg.Layout()}
	}
	run := deps.Metrics
	if run == nil {
		run = metrics.NewRun()
	}
	inv := deps.Invalidator
	if inv == nil {
		inv = invalidation.Log{}
	}

	return &Engine{
		cfg:       cfg,
		layout:    cfg.Layout(),
		dryRun:    dryRun,
		catalog:   deps.Catalog,
		archive:   deps.Archive,
		store:     store,
		index:     index,
		batcher:   invalidation.NewBatcher(inv, dryRun),
		metrics:   run,
		extractor: geometry.NewExtractor(cfg.Dimension, cfg.Threshold),
		ladder:    images.Ladder{Resolutions: cfg.Resolutions, Quality: cfg.JPEGQuality},
		audit:     &audit.Log{},
		now:       time.Now,
	}
}

// dates returns the dates to look at, most recent first unless given explicitly.
func (e *Engine) dates(ctx context.Context, mode Mode) ([]models.DateKey, error) {
	if mode.explicit() {
		return mode.Dates, nil
	}
	return e.catalog.ListDates(ctx)
}

// Plan classifies every date the mode selects without downloading or writing anything.
func (e *Engine) Plan(ctx context.Context, mode Mode) ([]DatePlan, error) {
	dates, err := e.dates(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote dates: %w", err)
	}

	force := mode.Full || mode.explicit()
	plans := make([]DatePlan, 0, len(dates))
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return plans, err
		}
		remote, err := e.catalog.ListImages(ctx, date)
		if err != nil {
			slog.Warn("Skipping date", "date", date, "reason", ReasonFetch, "error", err)
			plans = append(plans, DatePlan{Date: date, State: StateUnknown})
			continue
		}
		mirror, _, found, err := e.mirrorCatalog(ctx, date)
		if err != nil {
			slog.Warn("Skipping date", "date", date, "error", err)
			plans = append(plans, DatePlan{Date: date, State: StateUnknown, Remote: len(remote)})
			continue
		}
		state, delta := Compare(mirror, found, remote, force)
		plans = append(plans, DatePlan{
			Date:   date,
			State:  state,
			Delta:  delta,
			Remote: len(remote),
			Mirror: len(mirror),
		})
	}
	return plans, nil
}

// Run reconciles every date the mode selects, then flushes invalidations
// and writes the audit. Per-image and per-date failures are recorded in the
// summary; an error is returned only when the run was cut short.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Summary, error) {
	summary := &Summary{}
	e.metrics.Start()
	defer e.metrics.Finish()

	dates, err := e.dates(ctx, mode)
	if err != nil {
		slog.Warn("Remote dates unavailable, nothing to do", "error", err)
		dates = nil
	}
	slog.Info("Reconciling", "dates", len(dates), "full", mode.Full, "explicit", mode.explicit(), "dryrun", e.dryRun)

	force := mode.Full || mode.explicit()
	var runErr error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		outcome := e.syncDate(ctx, date, force, mode.trackLatest())
		e.metrics.Date(outcome.State.String())
		summary.Dates = append(summary.Dates, outcome)
	}

	// Repairs indexes left behind by an interrupted run.
	if runErr == nil && mode.trackLatest() {
		if err := e.publish(ctx, true); err != nil {
			slog.Warn("Failed to refresh indexes", "error", err)
		}
	}

	if err := e.batcher.Flush(ctx); err != nil {
		slog.Warn("Invalidation failed", "error", err)
	}

	summary.AuditPath = audit.Path(e.cfg.AuditDir, e.cfg.AuditFormat, e.now())
	if err := audit.Write(summary.AuditPath, e.audit.Rows()); err != nil {
		slog.Error("Failed to write audit", "error", err)
		summary.AuditPath = ""
	}

	slog.Info("Run finished",
		"dates", len(summary.Dates),
		"synced_images", summary.Synced(),
		"skipped_images", summary.Skipped(),
		"up_to_date", summary.Count(StateUpToDate),
		"partial", summary.Count(StatePartiallySynced))
	return summary, runErr
}

func (e *Engine) syncDate(ctx context.Context, date models.DateKey, force, trackLatest bool) DateOutcome {
	out := DateOutcome{Date: date, State: StateUnknown}
	slog.Info("Working on date", "date", date)

	remote, err := e.catalog.ListImages(ctx, date)
	if err != nil {
		slog.Warn("Skipping date", "date", date, "reason", ReasonFetch, "error", err)
		out.Err = err
		return out
	}
	mirror, current, found, err := e.mirrorCatalog(ctx, date)
	if err != nil {
		slog.Warn("Skipping date", "date", date, "error", err)
		out.Err = err
		return out
	}

	out.State, out.Delta = Compare(mirror, found, remote, force)
	slog.Debug("Classified date", "date", date, "state", out.State, "remote", len(remote), "mirror", len(mirror), "delta", len(out.Delta))
	if len(out.Delta) == 0 {
		if out.State == StateStale {
			// The mirror holds ids the remote no longer lists; they stay.
			out.State = StateSynced
		}
		return out
	}

	out.State = StateSyncing
	byID := make(map[string]models.ImageRecord, len(remote))
	for _, r := range remote {
		if _, ok := byID[r.ImageID]; !ok {
			byID[r.ImageID] = r
		}
	}

	var updated []models.ImageRecord
	for _, id := range out.Delta {
		if ctx.Err() != nil {
			break
		}
		rec, err := e.processImage(ctx, date, byID[id])
		if err != nil {
			reason := Classify(err)
			slog.Warn("Skipped image", "date", date, "image", id, "reason", reason, "error", err)
			out.Skipped = append(out.Skipped, ImageResult{ImageID: id, Reason: reason, Err: err})
			e.metrics.Image(string(reason))
			continue
		}
		updated = append(updated, *rec)
		out.Synced = append(out.Synced, id)
		e.metrics.Image("synced")
	}

	out.State = StateSynced
	if len(out.Synced) < len(out.Delta) {
		out.State = StatePartiallySynced
	}

	if len(updated) == 0 {
		slog.Warn("No image of the date could be processed, catalog left as is", "date", date, "skipped", len(out.Skipped))
		return out
	}

	records := merge(mirror, updated)
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		out.Err = fmt.Errorf("failed to encode catalog: %w", err)
		return out
	}
	slog.Info("Uploading catalog", "date", date, "images", len(records))
	written, err := e.putIfChanged(ctx, e.layout.Catalog(date), data, current)
	if err != nil {
		slog.Error("Failed to upload catalog", "date", date, "error", err)
		out.Err = err
		return out
	}
	out.Published = written
	if written && !e.dryRun {
		e.index.Published(date)
	}

	// Latest is checked after every published date, not only the most recent
	// one; it always follows the newest catalog and is copied only on change.
	if err := e.publish(ctx, trackLatest); err != nil {
		slog.Warn("Failed to refresh indexes", "date", date, "error", err)
	}
	return out
}

// mirrorCatalog reads the mirror's catalog for date and its raw bytes. A
// catalog that does not parse is reported as not found.
func (e *Engine) mirrorCatalog(ctx context.Context, date models.DateKey) ([]models.ImageRecord, []byte, bool, error) {
	key := e.layout.Catalog(date)
	data, err := e.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var records []models.ImageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// The date is rebuilt from the remote; the raw bytes still let
		// putIfChanged overwrite the broken catalog.
		slog.Warn("Unreadable mirror catalog, rebuilding date", "key", key, "error", err)
		return nil, data, false, nil
	}
	return records, data, true, nil
}

// putIfChanged writes data unless current already holds the same bytes.
func (e *Engine) putIfChanged(ctx context.Context, key string, data, current []byte) (bool, error) {
	if current != nil && bytes.Equal(current, data) {
		slog.Debug("Unchanged, not uploading", "key", key)
		return false, nil
	}
	if err := e.put(ctx, key, data, contentJSON); err != nil {
		return false, err
	}
	return true, nil
}

// publish recomputes the available dates from the mirror and, when the run
// tracks it, points latest at the most recent catalog.
func (e *Engine) publish(ctx context.Context, trackLatest bool) error {
	dates, err := e.index.Dates(ctx)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return nil
	}

	names := make([]string, len(dates))
	for i, d := range dates {
		names[i] = d.String()
	}
	data, err := json.MarshalIndent(names, "", "    ")
	if err != nil {
		return err
	}
	current, err := e.get(ctx, e.layout.AvailableDates())
	if err != nil {
		return err
	}
	if _, err := e.putIfChanged(ctx, e.layout.AvailableDates(), data, current); err != nil {
		return err
	}

	if !trackLatest {
		return nil
	}
	return e.updateLatest(ctx, dates[len(dates)-1])
}

// updateLatest copies the catalog of date over the latest pointer when they differ.
func (e *Engine) updateLatest(ctx context.Context, date models.DateKey) error {
	src := e.layout.Catalog(date)
	catalogData, err := e.get(ctx, src)
	if err != nil {
		return err
	}
	if catalogData == nil {
		slog.Debug("No catalog to point latest at", "date", date)
		return nil
	}
	var records []models.ImageRecord
	if err := json.Unmarshal(catalogData, &records); err != nil {
		slog.Warn("Not pointing latest at an unreadable catalog", "date", date, "error", err)
		return nil
	}
	latest, err := e.get(ctx, e.layout.Latest())
	if err != nil {
		return err
	}
	if bytes.Equal(latest, catalogData) {
		return nil
	}

	slog.Info("Setting latest date", "date", date)
	if err := e.store.Copy(ctx, src, e.layout.Latest()); err != nil {
		return &StoreError{Key: e.layout.Latest(), Err: err}
	}
	e.batcher.Mark(e.layout.Latest())
	return nil
}

// get returns nil for a missing key.
func (e *Engine) get(ctx context.Context, key string) ([]byte, error) {
	data, err := e.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
