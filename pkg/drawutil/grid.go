package drawutil

import (
	"image"

	"github.com/wesen/conceptmap/pkg/cellbuf"
)

// DrawGrid dots the buffer every spacing cells. origin is the content cell
// shown at buffer (0, 0), so the grid moves with the viewport.
func DrawGrid(buf *cellbuf.Buffer, origin, spacing image.Point, style cellbuf.StyleKey) {
	for y := 0; y < buf.H; y++ {
		if mod(y+origin.Y, spacing.Y) != 0 {
			continue
		}
		for x := 0; x < buf.W; x++ {
			if mod(x+origin.X, spacing.X) == 0 {
				buf.Set(x, y, '·', style)
			}
		}
	}
}

// mod is a non-negative modulus; m == 0 yields 0.
func mod(a, m int) int {
	if m == 0 {
		return 0
	}
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
