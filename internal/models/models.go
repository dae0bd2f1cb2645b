package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the layout of a catalog partition key.
	DateLayout = "2006-01-02"
	// CaptureLayout is the layout of an image capture timestamp as published by the API.
	CaptureLayout = "2006-01-02 15:04:05"
)

// DateKey identifies one daily catalog partition (YYYY-MM-DD).
// Lexicographic order is chronological order.
type DateKey string

// ParseDateKey validates s as a YYYY-MM-DD date.
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%q not a valid date (YYYY-MM-DD): %w", s, err)
	}
	return DateKey(s), nil
}

// ParseDateList parses a comma separated list of dates, e.g. "2016-07-05, 2016-03-09".
func ParseDateList(s string) ([]DateKey, error) {
	var dates []DateKey
	for _, part := range strings.Split(s, ",") {
		d, err := ParseDateKey(part)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func (d DateKey) String() string {
	return string(d)
}

// ImageRecord is one entry of a daily catalog.
// Fields the mirror does not interpret are kept verbatim so the published JSON
// carries everything the remote API returned.
type ImageRecord struct {
	ImageID string
	Date    string
	Coords  json.RawMessage
	Cache   *GeometryCache

	extra map[string]json.RawMessage
}

// GeometryCache is the geometry stored on a record. Both keys carry the same
// descriptor; consumers read the one matching the format they display.
type GeometryCache struct {
	JPG GeometryDescriptor `json:"jpg"`
	PNG GeometryDescriptor `json:"png"`
}

// NewGeometryCache builds the cache entry for a descriptor.
func NewGeometryCache(d GeometryDescriptor) *GeometryCache {
	return &GeometryCache{JPG: d, PNG: d}
}

// Point is a normalized position in [0,1]^2.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a normalized extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CircleDescriptor is the normalized minimal enclosing circle of the disc.
type CircleDescriptor struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// EllipseDescriptor is the normalized best-fit ellipse of the disc.
type EllipseDescriptor struct {
	Center Point   `json:"center"`
	Size   Size    `json:"size"`
	Angle  float64 `json:"angle"`
}

// GeometryDescriptor describes the visible disc, normalized by the raster dimension.
type GeometryDescriptor struct {
	Circle  CircleDescriptor  `json:"earth_circle"`
	Ellipse EllipseDescriptor `json:"earth_ellipse"`
}

// MalformedRecordError reports a record field that could not be parsed.
type MalformedRecordError struct {
	ImageID string
	Field   string
	Err     error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s for image %s: %v", e.Field, e.ImageID, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// UnmarshalJSON decodes a record, keeping unknown fields.
func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = ImageRecord{}
	if raw, ok := fields["image"]; ok {
		if err := json.Unmarshal(raw, &r.ImageID); err != nil {
			return fmt.Errorf("image: %w", err)
		}
		delete(fields, "image")
	}
	if raw, ok := fields["date"]; ok {
		if err := json.Unmarshal(raw, &r.Date); err != nil {
			return fmt.Errorf("date: %w", err)
		}
		delete(fields, "date")
	}
	if raw, ok := fields["coords"]; ok {
		r.Coords = append(json.RawMessage(nil), raw...)
		delete(fields, "coords")
	}
	if raw, ok := fields["cache"]; ok {
		if string(raw) != "null" {
			r.Cache = &GeometryCache{}
			if err := json.Unmarshal(raw, r.Cache); err != nil {
				return fmt.Errorf("cache: %w", err)
			}
		}
		delete(fields, "cache")
	}
	if len(fields) > 0 {
		r.extra = fields
	}
	return nil
}

// MarshalJSON encodes the record with sorted keys so identical records
// always produce identical bytes.
func (r ImageRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.extra)+4)
	for k, v := range r.extra {
		out[k] = v
	}
	out["image"] = r.ImageID
	out["date"] = r.Date
	if len(r.Coords) > 0 {
		out["coords"] = r.Coords
	}
	if r.Cache != nil {
		out["cache"] = r.Cache
	}
	return json.Marshal(out)
}

// CapturedAt parses the capture timestamp.
func (r ImageRecord) CapturedAt() (time.Time, error) {
	t, err := time.Parse(CaptureLayout, r.Date)
	if err != nil {
		return time.Time{}, &MalformedRecordError{ImageID: r.ImageID, Field: "date", Err: err}
	}
	return t, nil
}

// ArchiveDate derives year, month and day from the image identifier
// (epic_1b_20150613110250 -> 2015, 06, 13) without consulting the capture timestamp.
func ArchiveDate(imageID string) (year, month, day string, err error) {
	parts := strings.Split(imageID, "_")
	if len(parts) < 3 || len(parts[2]) < 8 {
		return "", "", "", &MalformedRecordError{ImageID: imageID, Field: "image", Err: fmt.Errorf("no date part in identifier")}
	}
	stamp := parts[2][:8]
	if _, err := time.Parse("20060102", stamp); err != nil {
		return "", "", "", &MalformedRecordError{ImageID: imageID, Field: "image", Err: err}
	}
	return stamp[:4], stamp[4:6], stamp[6:8], nil
}

// IDs returns the set of image identifiers in records.
func IDs(records []ImageRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.ImageID] = struct{}{}
	}
	return ids
}
