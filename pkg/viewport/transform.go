// Package viewport owns the pan/zoom transform that maps diagram content
// onto the visible surface: screen = content·scale + translate.
package viewport

import (
	"fmt"
	"math"

	"github.com/wesen/conceptmap/pkg/scene"
)

// Transform is the content→screen mapping.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Identity is the fallback transform for degenerate content.
func Identity() Transform { return Transform{Scale: 1} }

// ToScreen maps a content point to viewport coordinates.
func (t Transform) ToScreen(p scene.Point) scene.Point {
	return scene.Point{X: p.X*t.Scale + t.TranslateX, Y: p.Y*t.Scale + t.TranslateY}
}

// ToContent maps viewport coordinates back to content space.
func (t Transform) ToContent(x, y float64) scene.Point {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return scene.Point{X: (x - t.TranslateX) / s, Y: (y - t.TranslateY) / s}
}

// RectToScreen maps a content rectangle to viewport coordinates.
func (t Transform) RectToScreen(r scene.Rect) scene.Rect {
	p := t.ToScreen(scene.Point{X: r.X, Y: r.Y})
	return scene.Rect{X: p.X, Y: p.Y, W: r.W * t.Scale, H: r.H * t.Scale}
}

// Finite reports whether every component is a finite number.
func (t Transform) Finite() bool {
	for _, f := range []float64{t.Scale, t.TranslateX, t.TranslateY} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SVG renders the transform as an SVG transform attribute value.
func (t Transform) SVG() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.TranslateX, t.TranslateY, t.Scale)
}

func (t Transform) String() string {
	return fmt.Sprintf("scale=%.3f translate=(%.1f,%.1f)", t.Scale, t.TranslateX, t.TranslateY)
}

// Size is the viewport surface size in the same units as the pointer.
type Size struct {
	W, H float64
}

// Valid reports whether both dimensions are positive and finite.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0 && !math.IsInf(s.W, 0) && !math.IsInf(s.H, 0)
}

// WheelFactor converts a wheel delta into a zoom factor. Positive deltas
// (scrolling down) zoom out. One step never changes scale by more than half.
func WheelFactor(deltaY, sensitivity float64) float64 {
	if sensitivity <= 0 {
		sensitivity = 500
	}
	d := deltaY / sensitivity
	d = math.Max(-0.5, math.Min(0.5, d))
	return 1 - d
}
