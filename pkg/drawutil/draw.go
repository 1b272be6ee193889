package drawutil

import (
	"image"

	"github.com/wesen/conceptmap/pkg/cellbuf"
)

// Stroke says how a polyline is drawn.
type Stroke struct {
	Line  cellbuf.StyleKey
	Arrow cellbuf.StyleKey
	// Head draws an arrowhead on the last cell.
	Head bool
	// Dashed skips every third cell.
	Dashed bool
}

// step returns the direction at raster index i, looking ahead where
// possible.
func step(pts []image.Point, i int) (int, int) {
	switch {
	case i < len(pts)-1:
		return pts[i+1].X - pts[i].X, pts[i+1].Y - pts[i].Y
	case i > 0:
		return pts[i].X - pts[i-1].X, pts[i].Y - pts[i-1].Y
	}
	return 0, 0
}

// DrawPolyline draws through pts. When stop is not empty the raster is cut
// at the first cell inside stop, so an arrowhead lands just outside the
// target box instead of under it.
func DrawPolyline(buf *cellbuf.Buffer, pts []image.Point, s Stroke, stop image.Rectangle) {
	raster := Polyline(pts)
	if !stop.Empty() {
		for i, p := range raster {
			if i > 0 && p.In(stop) {
				raster = raster[:i]
				break
			}
		}
	}
	if len(raster) == 0 {
		return
	}
	last := len(raster) - 1
	for i, p := range raster {
		if s.Head && i == last && last > 0 {
			dx, dy := step(raster, i)
			buf.Set(p.X, p.Y, ArrowChar(dx, dy), s.Arrow)
			continue
		}
		if s.Dashed && i%3 == 2 {
			continue
		}
		dx, dy := step(raster, i)
		buf.Set(p.X, p.Y, LineChar(dx, dy), s.Line)
	}
}
