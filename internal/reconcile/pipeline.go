package reconcile

import (
	"context"
	"log/slog"

	"github.com/blueturn/epicmirror/internal/audit"
	"github.com/blueturn/epicmirror/internal/models"
)

const (
	contentJSON = "application/json"
	contentPNG  = "image/png"
	contentJPEG = "image/jpeg"
)

// processImage runs one image through download, geometry, the resolution
// ladder and upload, and returns the record to publish. Geometry is
// computed before anything is uploaded.
func (e *Engine) processImage(ctx context.Context, date models.DateKey, rec models.ImageRecord) (*models.ImageRecord, error) {
	if _, err := rec.CapturedAt(); err != nil {
		return nil, err
	}

	coords, err := models.CanonicalCoords(rec.Coords)
	if err != nil {
		return nil, &models.MalformedRecordError{ImageID: rec.ImageID, Field: "coords", Err: err}
	}
	lunarDSCOVR, lunarSun, err := models.Alignment(coords)
	if err != nil {
		return nil, &models.MalformedRecordError{ImageID: rec.ImageID, Field: "coords", Err: err}
	}
	e.audit.Add(audit.Row{
		Day:         date.String(),
		Date:        rec.Date,
		Image:       rec.ImageID,
		LunarDSCOVR: lunarDSCOVR,
		LunarSun:    lunarSun,
		Link:        e.cfg.DebugURL(rec.ImageID),
	})

	slog.Info("Working on image", "date", date, "image", rec.ImageID)
	raw, err := e.archive.FetchPNG(ctx, rec.ImageID)
	if err != nil {
		return nil, err
	}

	img, err := e.extractor.Decode(raw)
	if err != nil {
		return nil, err
	}
	geom, err := e.extractor.Extract(img)
	if err != nil {
		return nil, err
	}
	variants, err := e.ladder.Render(img)
	if err != nil {
		return nil, err
	}
	overlay, err := e.extractor.RenderOverlay(img, geom)
	if err != nil {
		return nil, err
	}

	if err := e.put(ctx, e.layout.PNG(rec.ImageID), raw, contentPNG); err != nil {
		return nil, err
	}
	for _, v := range variants {
		if err := e.put(ctx, e.layout.Resolution(v.Resolution, rec.ImageID), v.Data, contentJPEG); err != nil {
			return nil, err
		}
	}
	if err := e.put(ctx, e.layout.Debug(rec.ImageID), overlay, contentPNG); err != nil {
		return nil, err
	}

	out := rec
	out.Coords = coords
	out.Cache = models.NewGeometryCache(geom.Descriptor)
	return &out, nil
}

// put writes key and marks it for invalidation.
func (e *Engine) put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := e.store.Put(ctx, key, data, contentType); err != nil {
		return &StoreError{Key: key, Err: err}
	}
	e.batcher.Mark(key)
	if !e.dryRun {
		e.metrics.Uploaded(len(data))
	}
	slog.Debug("Uploaded", "key", key, "bytes", len(data))
	return nil
}
