package visibility

import "math"

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry is one layout sample: the viewport and the target in the same
// coordinate space.
type Geometry struct {
	Viewport Rect `json:"viewport"`
	Target   Rect `json:"target"`
}

// Inflate grows r by m on every side.
func (r Rect) Inflate(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, Width: r.Width + 2*m, Height: r.Height + 2*m}
}

// Area returns the area of r, or 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// intersect returns the overlap of a and b and whether they touch at all.
// Edge-adjacent rectangles touch with a zero-area overlap.
func intersect(a, b Rect) (Rect, bool) {
	x0 := math.Max(a.X, b.X)
	y0 := math.Max(a.Y, b.Y)
	x1 := math.Min(a.X+a.Width, b.X+b.Width)
	y1 := math.Min(a.Y+a.Height, b.Y+b.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// IntersectionRatio returns the fraction of the target inside the viewport
// inflated by margin, and whether the two touch. A zero-area target that
// touches the box counts as fully inside.
func IntersectionRatio(g Geometry, margin int) (float64, bool) {
	overlap, ok := intersect(g.Viewport.Inflate(float64(margin)), g.Target)
	if !ok {
		return 0, false
	}
	area := g.Target.Area()
	if area == 0 {
		return 1, true
	}
	return overlap.Area() / area, true
}

// Inside reports whether g places the target within margin of the viewport
// with at least threshold of its area covered. A zero threshold accepts any
// contact.
func Inside(g Geometry, margin int, threshold float64) (bool, float64) {
	ratio, touching := IntersectionRatio(g, margin)
	if !touching {
		return false, 0
	}
	if threshold == 0 {
		return true, ratio
	}
	return ratio >= threshold, ratio
}
