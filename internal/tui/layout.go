package tui

import (
	"image"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

const (
	panelWidth = 34
	// minCanvasWidth is the narrowest canvas that still gets a side panel.
	minCanvasWidth = 40
)

// regions are the screen areas for one terminal size. Empty rectangles
// mean the area is not shown.
type regions struct {
	Toolbar image.Rectangle
	Canvas  image.Rectangle
	Panel   image.Rectangle
	Footer  image.Rectangle
}

// layoutBuilder hands out fixed strips from the edges of the terminal and
// gives whatever is left to the canvas.
type layoutBuilder struct {
	w, h               int
	top, bottom, right int
}

func (b *layoutBuilder) topRows(n int) image.Rectangle {
	r := image.Rect(0, b.top, b.w, b.top+n)
	b.top += n
	return clampRect(r)
}

func (b *layoutBuilder) bottomRows(n int) image.Rectangle {
	y := b.h - b.bottom - n
	b.bottom += n
	return clampRect(image.Rect(0, y, b.w, y+n))
}

func (b *layoutBuilder) rightCols(n int) image.Rectangle {
	x := b.w - b.right - n
	b.right += n
	return clampRect(image.Rect(x, b.top, x+n, b.h-b.bottom))
}

func (b *layoutBuilder) rest() image.Rectangle {
	return clampRect(image.Rect(0, b.top, b.w-b.right, b.h-b.bottom))
}

// clampRect turns inverted or negative rectangles into the empty one.
func clampRect(r image.Rectangle) image.Rectangle {
	if r.Min.X < 0 || r.Min.Y < 0 || r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return image.Rectangle{}
	}
	return r
}

// computeLayout splits a w×h terminal into toolbar, footer, an optional
// side panel and the canvas. The panel is dropped when the canvas would
// get too narrow.
func computeLayout(w, h int, showPanel bool) regions {
	b := &layoutBuilder{w: w, h: h}
	var r regions
	r.Toolbar = b.topRows(1)
	r.Footer = b.bottomRows(1)
	if showPanel && w-panelWidth >= minCanvasWidth {
		// one column of the panel is its separator
		r.Panel = b.rightCols(panelWidth)
	}
	r.Canvas = b.rest()
	return r
}

// ── Chrome layers ──

// fillLayer covers a region with style.
func fillLayer(r image.Rectangle, style lipgloss.Style, id string, z int) *lipgloss.Layer {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return lipgloss.NewLayer("").X(r.Min.X).Y(r.Min.Y).Z(z).ID(id)
	}
	line := strings.Repeat(" ", w)
	lines := make([]string, h)
	for i := range lines {
		lines[i] = line
	}
	return lipgloss.NewLayer(style.Render(strings.Join(lines, "\n"))).
		X(r.Min.X).Y(r.Min.Y).Z(z).ID(id)
}

// barLayer renders a one-row bar, cut or padded to the region width.
func barLayer(r image.Rectangle, content string, style lipgloss.Style, id string) *lipgloss.Layer {
	return lipgloss.NewLayer(style.Render(fit(content, r.Dx()))).
		X(r.Min.X).Y(r.Min.Y).Z(1).ID(id)
}

// modalLayer centers boxed content over the canvas.
func modalLayer(content string, area image.Rectangle, box lipgloss.Style, id string) *lipgloss.Layer {
	rendered := box.Render(content)
	w := lipgloss.Width(rendered)
	h := lipgloss.Height(rendered)
	x := area.Min.X + max((area.Dx()-w)/2, 0)
	y := area.Min.Y + max((area.Dy()-h)/2, 0)
	return lipgloss.NewLayer(rendered).X(x).Y(y).Z(100).ID(id)
}

// fit truncates s to width display cells, or pads it with spaces.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) > width {
		return ansi.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-ansi.StringWidth(s))
}
