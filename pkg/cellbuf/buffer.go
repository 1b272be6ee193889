// Package cellbuf is a 2D grid of styled terminal cells. The terminal
// host rasterises the whole scene into one buffer: background dots, edges,
// node boxes and labels, in that order.
//
// Cells carry a StyleKey rather than a style. Keys are handed out by a
// Palette, so colors computed at paint time (blended by opacity) still
// merge into runs at render time.
//
// All runes are assumed to be single-width.
package cellbuf

import "image"

// StyleKey identifies a style registered in a Palette.
type StyleKey int

// Cell is one character and its style.
type Cell struct {
	Ch    rune
	Style StyleKey
}

// Buffer is a W×H grid of cells, indexed [row][col].
type Buffer struct {
	W, H  int
	Cells [][]Cell
}

// New returns a buffer of blanks in style. Negative sizes become zero.
func New(w, h int, style StyleKey) *Buffer {
	w, h = max(w, 0), max(h, 0)
	b := &Buffer{W: w, H: h, Cells: make([][]Cell, h)}
	for y := range b.Cells {
		b.Cells[y] = make([]Cell, w)
	}
	b.Fill(style)
	return b
}

// Bounds returns the buffer rectangle.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.W, b.H) }

// InBounds reports whether (x, y) is a cell of the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return image.Pt(x, y).In(b.Bounds())
}

// Set writes one cell. Writes outside the buffer are dropped.
func (b *Buffer) Set(x, y int, ch rune, style StyleKey) {
	if b.InBounds(x, y) {
		b.Cells[y][x] = Cell{Ch: ch, Style: style}
	}
}

// Get returns the cell at (x, y), or a zero Cell outside the buffer.
func (b *Buffer) Get(x, y int) Cell {
	if !b.InBounds(x, y) {
		return Cell{}
	}
	return b.Cells[y][x]
}

// SetString writes s from (x, y) rightwards, clipping at the buffer edge.
func (b *Buffer) SetString(x, y int, s string, style StyleKey) {
	i := 0
	for _, ch := range s {
		b.Set(x+i, y, ch, style)
		i++
	}
}

// Fill blanks the whole buffer in style.
func (b *Buffer) Fill(style StyleKey) {
	b.FillRect(b.Bounds(), ' ', style)
}

// FillRect writes ch in style over r, clipped to the buffer.
func (b *Buffer) FillRect(r image.Rectangle, ch rune, style StyleKey) {
	r = r.Intersect(b.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.Cells[y]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = Cell{Ch: ch, Style: style}
		}
	}
}
