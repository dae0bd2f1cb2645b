package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Variant is one encoded rung of the resolution ladder.
type Variant struct {
	Resolution int
	Data       []byte
}

// Ladder renders the configured resolutions of a canonical raster.
type Ladder struct {
	Resolutions []int
	Quality     int
}

// Render resizes src to fit within each N x N resolution and encodes it as JPEG.
func (l Ladder) Render(src image.Image) ([]Variant, error) {
	variants := make([]Variant, 0, len(l.Resolutions))
	for _, res := range l.Resolutions {
		dst := Fit(src, res)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: l.Quality}); err != nil {
			return nil, fmt.Errorf("failed to encode %dpx JPEG: %w", res, err)
		}
		variants = append(variants, Variant{Resolution: res, Data: buf.Bytes()})
	}
	return variants, nil
}

// Fit scales src so that it fits within size x size, keeping its aspect ratio.
func Fit(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
