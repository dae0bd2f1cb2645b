package geometry

import (
	"bytes"
	"image"

	"github.com/fogleman/gg"
)

// RenderOverlay draws the extraction result over img and returns a PNG:
// the enclosing circle and a full-frame crosshair in white, the ellipse in
// red, its principal-axis cross in blue and the traced contour in green.
func (x *Extractor) RenderOverlay(img image.Image, r *Result) ([]byte, error) {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1)
	d := float64(x.Dimension)

	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(r.Circle.X, r.Circle.Y, r.Circle.Radius)
	dc.Stroke()
	dc.DrawLine(0, d/2, d, d/2)
	dc.DrawLine(d/2, 0, d/2, d)
	dc.Stroke()

	box := BoxPoints(r.Ellipse)
	dc.SetRGB(0, 0, 1)
	dc.DrawLine(box[0][0], box[0][1], box[2][0], box[2][1])
	dc.DrawLine(box[1][0], box[1][1], box[3][0], box[3][1])
	dc.Stroke()

	dc.SetRGB(1, 0, 0)
	dc.Push()
	dc.RotateAbout(gg.Radians(r.Ellipse.Angle), r.Ellipse.X, r.Ellipse.Y)
	dc.DrawEllipse(r.Ellipse.X, r.Ellipse.Y, r.Ellipse.Width/2, r.Ellipse.Height/2)
	dc.Stroke()
	dc.Pop()

	if len(r.Contour) > 0 {
		dc.SetRGB(0, 1, 0)
		dc.MoveTo(float64(r.Contour[0].X), float64(r.Contour[0].Y))
		for _, p := range r.Contour[1:] {
			dc.LineTo(float64(p.X), float64(p.Y))
		}
		dc.ClosePath()
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, &Error{Op: "overlay", Err: err}
	}
	return buf.Bytes(), nil
}
