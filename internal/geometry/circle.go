package geometry

import (
	"image"
	"math"
	"math/rand"
	"sort"
)

// Circle is in pixel units.
type Circle struct {
	X, Y, Radius float64
}

type vec struct{ x, y float64 }

func (c Circle) contains(p vec) bool {
	return math.Hypot(p.x-c.X, p.y-c.Y) <= c.Radius*(1+1e-9)+1e-9
}

// convexHull returns the hull of pts in counter-clockwise order (monotone chain).
func convexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}
	sorted := append([]image.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// MinEnclosingCircle returns the smallest circle containing every point.
// Welzl's incremental algorithm runs over the convex hull in a fixed
// pseudo-random order, so identical input always yields the same circle.
func MinEnclosingCircle(pts []image.Point) Circle {
	hull := convexHull(pts)
	if len(hull) == 0 {
		return Circle{}
	}

	ps := make([]vec, len(hull))
	for i, j := range rand.New(rand.NewSource(1)).Perm(len(hull)) {
		ps[i] = vec{float64(hull[j].X), float64(hull[j].Y)}
	}

	c := Circle{X: ps[0].x, Y: ps[0].y}
	for i := 1; i < len(ps); i++ {
		if c.contains(ps[i]) {
			continue
		}
		c = Circle{X: ps[i].x, Y: ps[i].y}
		for j := 0; j < i; j++ {
			if c.contains(ps[j]) {
				continue
			}
			c = circleFrom2(ps[i], ps[j])
			for k := 0; k < j; k++ {
				if !c.contains(ps[k]) {
					c = circleFrom3(ps[i], ps[j], ps[k])
				}
			}
		}
	}
	return c
}

func circleFrom2(a, b vec) Circle {
	return Circle{
		X:      (a.x + b.x) / 2,
		Y:      (a.y + b.y) / 2,
		Radius: math.Hypot(a.x-b.x, a.y-b.y) / 2,
	}
}

// circleFrom3 is the circumcircle of a, b, c; collinear points fall back to
// the circle over the farthest pair.
func circleFrom3(a, b, c vec) Circle {
	bx, by := b.x-a.x, b.y-a.y
	cx, cy := c.x-a.x, c.y-a.y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-12 {
		best := circleFrom2(a, b)
		for _, cand := range []Circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.Radius > best.Radius {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	return Circle{X: a.x + ux, Y: a.y + uy, Radius: math.Hypot(ux, uy)}
}
