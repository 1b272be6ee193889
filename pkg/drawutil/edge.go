package drawutil

import "image"

// EdgeExit returns the cell on the border of rect facing target. The side
// is chosen by comparing the offset to target against the rect's half
// extents. A degenerate rect, or a target at its center, yields the center.
func EdgeExit(rect image.Rectangle, target image.Point) image.Point {
	c := image.Pt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
	hw, hh := rect.Dx()/2, rect.Dy()/2
	d := target.Sub(c)
	if d == (image.Point{}) || (hw == 0 && hh == 0) {
		return c
	}
	var nx, ny float64
	if hw > 0 {
		nx = float64(abs(d.X)) / float64(hw)
	}
	if hh > 0 {
		ny = float64(abs(d.Y)) / float64(hh)
	}
	if nx > ny {
		if d.X > 0 {
			return image.Pt(rect.Max.X-1, c.Y)
		}
		return image.Pt(rect.Min.X, c.Y)
	}
	if d.Y > 0 {
		return image.Pt(c.X, rect.Max.Y-1)
	}
	return image.Pt(c.X, rect.Min.Y)
}

// Connect returns a two-point path between the facing borders of two
// boxes. It stands in for edges whose scene element has no geometry.
func Connect(from, to image.Rectangle) []image.Point {
	fc := image.Pt((from.Min.X+from.Max.X)/2, (from.Min.Y+from.Max.Y)/2)
	tc := image.Pt((to.Min.X+to.Max.X)/2, (to.Min.Y+to.Max.Y)/2)
	return []image.Point{EdgeExit(from, tc), EdgeExit(to, fc)}
}
