package geometry

import (
	"image"
	"math"
)

// Mask is a binary raster; true marks a pixel brighter than the cutoff.
type Mask struct {
	W, H int
	Pix  []bool
}

func (m *Mask) at(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x]
}

// Threshold marks every pixel whose luminance is strictly above cutoff.
func Threshold(img image.Image, cutoff uint8) *Mask {
	b := img.Bounds()
	m := &Mask{W: b.Dx(), H: b.Dy(), Pix: make([]bool, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < m.H; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+m.W]
			for x, v := range row {
				m.Pix[y*m.W+x] = v > cutoff
			}
		}
	case *image.RGBA:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				i := y*src.Stride + x*4
				p := src.Pix[i : i+3 : i+3]
				m.Pix[y*m.W+x] = luma(uint32(p[0])*0x101, uint32(p[1])*0x101, uint32(p[2])*0x101) > cutoff
			}
		}
	default:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				m.Pix[y*m.W+x] = luma(r, g, bl) > cutoff
			}
		}
	}
	return m
}

// luma matches color.GrayModel for 16-bit channels.
func luma(r, g, b uint32) uint8 {
	return uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 24)
}

// Contour is the closed outer border of one connected region, in pixel coordinates.
type Contour []image.Point

// Area is the area enclosed by the contour polygon.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}

// Clockwise neighbour offsets (y grows downward), starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindContours returns the outer border of every 8-connected foreground region,
// ordered by the raster position of each region's first pixel.
func FindContours(m *Mask) []Contour {
	seen := make([]bool, len(m.Pix))
	var contours []Contour
	var queue []int

	for i, fg := range m.Pix {
		if !fg || seen[i] {
			continue
		}

		seen[i] = true
		queue = append(queue[:0], i)
		for len(queue) > 0 {
			j := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := j%m.W, j/m.W
			for _, n := range neighbours {
				nx, ny := x+n.X, y+n.Y
				if !m.at(nx, ny) {
					continue
				}
				k := ny*m.W + nx
				if !seen[k] {
					seen[k] = true
					queue = append(queue, k)
				}
			}
		}

		contours = append(contours, traceBorder(m, image.Pt(i%m.W, i/m.W)))
	}
	return contours
}

// traceBorder follows the outer border clockwise from start, the region's
// first pixel in raster order, whose west neighbour is background.
func traceBorder(m *Mask, start image.Point) Contour {
	contour := Contour{start}
	cur, back := start, 4
	var second image.Point
	first := true

	for steps := 0; steps < 4*len(m.Pix)+8; steps++ {
		next, nextBack, ok := mooreStep(m, cur, back)
		if !ok {
			return contour
		}
		if first {
			second = next
			first = false
		} else if cur == start && next == second {
			return contour[:len(contour)-1]
		}
		contour = append(contour, next)
		cur, back = next, nextBack
	}
	return contour
}

// mooreStep scans the neighbours of cur clockwise, beginning just after the
// backtrack direction, and returns the first foreground pixel together with
// the direction from it back to the last background pixel examined.
func mooreStep(m *Mask, cur image.Point, back int) (image.Point, int, bool) {
	for k := 1; k <= 8; k++ {
		d := (back + k) % 8
		n := cur.Add(neighbours[d])
		if !m.at(n.X, n.Y) {
			continue
		}
		prev := cur.Add(neighbours[(back+k-1)%8])
		return n, direction(prev.Sub(n)), true
	}
	return cur, back, false
}

// SelectDisc returns the contour with the largest area strictly below maxArea.
// On equal areas the first contour is kept.
func SelectDisc(contours []Contour, maxArea float64) (Contour, float64, bool) {
	var best Contour
	bestArea := 0.0
	for _, c := range contours {
		a := c.Area()
		if bestArea < a && a < maxArea {
			best, bestArea = c, a
		}
	}
	return best, bestArea, best != nil
}
