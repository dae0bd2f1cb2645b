// Package geometry recovers the bounding circle and ellipse of the imaged
// disc from a raster.
//
// The raster is thresholded at a low fixed cutoff, the outer borders of the
// bright regions are traced, and the largest region that is still smaller
// than the circle inscribed in the frame is taken as the disc. Its minimal
// enclosing circle and least-squares ellipse are reported in pixels and,
// normalized by the frame dimension, as a models.GeometryDescriptor.
package geometry

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	"github.com/blueturn/epicmirror/internal/models"
)

// ErrNoDisc means no contour satisfied the disc area bound.
var ErrNoDisc = errors.New("no disc contour found")

// Error is returned for any extraction failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("geometry %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor holds the fixed frame dimension and intensity cutoff.
type Extractor struct {
	Dimension int
	Threshold uint8
}

func NewExtractor(dimension int, threshold uint8) *Extractor {
	return &Extractor{Dimension: dimension, Threshold: threshold}
}

// Result carries the selected contour and its bounding shapes.
type Result struct {
	Contour    Contour
	Area       float64
	Circle     Circle
	Ellipse    Ellipse
	Descriptor models.GeometryDescriptor
}

// Decode reads a PNG (or JPEG) raster.
func (x *Extractor) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}
	return img, nil
}

// Extract finds the disc in img.
func (x *Extractor) Extract(img image.Image) (*Result, error) {
	if b := img.Bounds(); b.Dx() != x.Dimension || b.Dy() != x.Dimension {
		slog.Warn("Raster size differs from configured dimension", "bounds", b.Size(), "dimension", x.Dimension)
	}

	mask := Threshold(img, x.Threshold)
	contours := FindContours(mask)

	half := float64(x.Dimension) / 2
	maxArea := math.Pi * half * half
	contour, area, ok := SelectDisc(contours, maxArea)
	if !ok {
		return nil, &Error{Op: "contour", Err: ErrNoDisc}
	}

	circle := MinEnclosingCircle(contour)
	ellipse, err := FitEllipse(contour)
	if err != nil {
		return nil, &Error{Op: "ellipse", Err: err}
	}

	res := &Result{
		Contour:    contour,
		Area:       area,
		Circle:     circle,
		Ellipse:    ellipse,
		Descriptor: x.Normalize(circle, ellipse),
	}
	slog.Debug("Extracted disc geometry",
		"contours", len(contours),
		"area", area,
		"circle", res.Descriptor.Circle,
		"ellipse", res.Descriptor.Ellipse)
	return res, nil
}

// Normalize divides every spatial quantity by the frame dimension.
func (x *Extractor) Normalize(c Circle, e Ellipse) models.GeometryDescriptor {
	d := float64(x.Dimension)
	return models.GeometryDescriptor{
		Circle: models.CircleDescriptor{
			Center: models.Point{X: c.X / d, Y: c.Y / d},
			Radius: c.Radius / d,
		},
		Ellipse: models.EllipseDescriptor{
			Center: models.Point{X: e.X / d, Y: e.Y / d},
			Size:   models.Size{Width: e.Width / d, Height: e.Height / d},
			Angle:  e.Angle,
		},
	}
}
