package geometry

import (
	"errors"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Ellipse is in pixel units. Width is the full axis along Angle (degrees,
// clockwise on screen from the x axis), Height the full perpendicular axis.
type Ellipse struct {
	X, Y          float64
	Width, Height float64
	Angle         float64
}

var errEllipseFit = errors.New("no ellipse fits the contour")

// FitEllipse fits an ellipse to the points by direct least squares
// (Fitzgibbon, in the numerically stable Halir-Flusser form). Points are
// centred and scaled before fitting.
func FitEllipse(pts []image.Point) (Ellipse, error) {
	if len(pts) < 5 {
		return Ellipse{}, errEllipseFit
	}

	var mx, my float64
	for _, p := range pts {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	n := float64(len(pts))
	mx, my = mx/n, my/n

	var scale float64
	for _, p := range pts {
		scale = math.Max(scale, math.Hypot(float64(p.X)-mx, float64(p.Y)-my))
	}
	if scale == 0 {
		return Ellipse{}, errEllipseFit
	}

	// Scatter blocks: D1 = [x² xy y²], D2 = [x y 1].
	s1 := mat.NewDense(3, 3, nil)
	s2 := mat.NewDense(3, 3, nil)
	s3 := mat.NewDense(3, 3, nil)
	for _, p := range pts {
		x := (float64(p.X) - mx) / scale
		y := (float64(p.Y) - my) / scale
		d1 := [3]float64{x * x, x * y, y * y}
		d2 := [3]float64{x, y, 1}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s1.Set(i, j, s1.At(i, j)+d1[i]*d1[j])
				s2.Set(i, j, s2.At(i, j)+d1[i]*d2[j])
				s3.Set(i, j, s3.At(i, j)+d2[i]*d2[j])
			}
		}
	}

	var s3inv mat.Dense
	if err := s3inv.Inverse(s3); err != nil {
		return Ellipse{}, errEllipseFit
	}

	// T = -S3⁻¹ S2ᵀ; M = S1 + S2 T.
	var t mat.Dense
	t.Mul(&s3inv, s2.T())
	t.Scale(-1, &t)

	var m mat.Dense
	m.Mul(s2, &t)
	m.Add(s1, &m)

	// Premultiply by the inverse constraint matrix.
	c := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		c.Set(0, j, m.At(2, j)/2)
		c.Set(1, j, -m.At(1, j))
		c.Set(2, j, m.At(0, j)/2)
	}

	var eig mat.Eigen
	if !eig.Factorize(c, mat.EigenRight) {
		return Ellipse{}, errEllipseFit
	}
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	var a1 []float64
	for col := 0; col < 3; col++ {
		v := []float64{real(vecs.At(0, col)), real(vecs.At(1, col)), real(vecs.At(2, col))}
		if 4*v[0]*v[2]-v[1]*v[1] > 0 {
			a1 = v
			break
		}
	}
	if a1 == nil {
		return Ellipse{}, errEllipseFit
	}

	a2 := mat.NewVecDense(3, nil)
	a2.MulVec(&t, mat.NewVecDense(3, a1))

	e, err := conicToEllipse(a1[0], a1[1], a1[2], a2.AtVec(0), a2.AtVec(1), a2.AtVec(2))
	if err != nil {
		return Ellipse{}, err
	}

	e.X = e.X*scale + mx
	e.Y = e.Y*scale + my
	e.Width *= scale
	e.Height *= scale
	return e, nil
}

// conicToEllipse converts Ax² + Bxy + Cy² + Dx + Ey + F = 0 to centre, axes and angle.
func conicToEllipse(a, b, c, d, e, f float64) (Ellipse, error) {
	// The angle formula assumes positive quadratic terms.
	if a+c < 0 {
		a, b, c, d, e, f = -a, -b, -c, -d, -e, -f
	}
	den := b*b - 4*a*c
	if den >= 0 {
		return Ellipse{}, errEllipseFit
	}

	x0 := (2*c*d - b*e) / den
	y0 := (2*a*e - b*d) / den

	num := 2 * (a*e*e + c*d*d - b*d*e + den*f)
	root := math.Sqrt((a-c)*(a-c) + b*b)
	major := -math.Sqrt(num*(a+c+root)) / den
	minor := -math.Sqrt(num*(a+c-root)) / den
	if math.IsNaN(major) || math.IsNaN(minor) || major <= 0 || minor <= 0 {
		return Ellipse{}, errEllipseFit
	}

	var theta float64
	switch {
	case b != 0:
		theta = math.Atan((c - a - root) / b)
	case a < c:
		theta = 0
	default:
		theta = math.Pi / 2
	}

	angle := math.Mod(theta*180/math.Pi, 180)
	if angle < 0 {
		angle += 180
	}
	return Ellipse{X: x0, Y: y0, Width: 2 * major, Height: 2 * minor, Angle: angle}, nil
}

// BoxPoints returns the corners of the ellipse's rotated bounding box: a
// unit box rotated by Angle, scaled by the half extents and reflected
// through the centre. Joining 0-2 and 1-3 draws the principal-axis cross.
func BoxPoints(e Ellipse) [4][2]float64 {
	rad := e.Angle * math.Pi / 180
	b := math.Cos(rad) * 0.5
	a := math.Sin(rad) * 0.5

	v0 := [2]float64{e.X - a*e.Height - b*e.Width, e.Y + b*e.Height - a*e.Width}
	v1 := [2]float64{e.X + a*e.Height - b*e.Width, e.Y - b*e.Height - a*e.Width}
	v2 := [2]float64{2*e.X - v0[0], 2*e.Y - v0[1]}
	v3 := [2]float64{2*e.X - v1[0], 2*e.Y - v1[1]}
	return [4][2]float64{v0, v1, v2, v3}
}
