// Package drawutil rasterises scene geometry into a cellbuf.Buffer:
// polylines with box-drawing glyphs and arrowheads, exit points on node
// boxes, and the background dot grid.
package drawutil

import "image"

// Bresenham returns the cells on the segment from a to b, both endpoints
// included.
func Bresenham(a, b image.Point) []image.Point {
	dx, dy := abs(b.X-a.X), abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx - dy
	p := a
	pts := make([]image.Point, 0, max(dx, dy)+1)
	for range dx + dy + 2 {
		pts = append(pts, p)
		if p == b {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			p.X += sx
		}
		if e2 < dx {
			err += dx
			p.Y += sy
		}
	}
	return pts
}

// Polyline rasterises consecutive segments through pts. Shared joints
// appear once.
func Polyline(pts []image.Point) []image.Point {
	if len(pts) == 0 {
		return nil
	}
	out := []image.Point{pts[0]}
	for i := 1; i < len(pts); i++ {
		seg := Bresenham(pts[i-1], pts[i])
		out = append(out, seg[1:]...)
	}
	return out
}

// LineChar returns the glyph for a step of (dx, dy).
func LineChar(dx, dy int) rune {
	switch {
	case dx == 0:
		return '│'
	case dy == 0:
		return '─'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

// ArrowChar returns an arrowhead pointing along the dominant axis of
// (dx, dy).
func ArrowChar(dx, dy int) rune {
	if abs(dy) > abs(dx) {
		if dy > 0 {
			return '▼'
		}
		return '▲'
	}
	if dx > 0 {
		return '►'
	}
	return '◄'
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
