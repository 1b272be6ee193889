package tui

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/cellbuf"
	"github.com/wesen/conceptmap/pkg/drawutil"
	"github.com/wesen/conceptmap/pkg/overlay"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/viewport"
)

// cellSize is how many content pixels one terminal cell covers at scale 1.
type cellSize struct {
	W, H float64
}

// gridSpacing is the distance between background dots, in cells.
var gridSpacing = image.Pt(8, 4)

// frame is one painted canvas.
type frame struct {
	buf *cellbuf.Buffer
	pal *cellbuf.Palette
	// boxes holds each visible node's cell rectangle, canvas-relative.
	boxes map[string]image.Rectangle
}

// Render returns the frame as styled text.
func (f frame) Render() string { return f.pal.Render(f.buf) }

// toCell maps a viewport pixel to the cell containing it.
func (cs cellSize) toCell(p scene.Point) image.Point {
	return image.Pt(int(math.Floor(p.X/cs.W)), int(math.Floor(p.Y/cs.H)))
}

// cellRect maps a viewport rectangle to the cells it touches.
func (cs cellSize) cellRect(r scene.Rect) image.Rectangle {
	x0 := int(math.Floor(r.X / cs.W))
	y0 := int(math.Floor(r.Y / cs.H))
	x1 := int(math.Ceil((r.X + r.W) / cs.W))
	y1 := int(math.Ceil((r.Y + r.H) / cs.H))
	return image.Rect(x0, y0, max(x1, x0+1), max(y1, y0+1))
}

// center returns the viewport pixel at the middle of a cell.
func (cs cellSize) center(x, y int) (float64, float64) {
	return (float64(x) + 0.5) * cs.W, (float64(y) + 0.5) * cs.H
}

// paint draws v's scene as it currently stands, overlays included, into a
// w×h cell canvas.
func paint(v *viewer.Viewer, w, h int, cs cellSize) frame {
	pal := cellbuf.NewPalette()
	f := frame{
		buf:   cellbuf.New(w, h, pal.Key(cellbuf.Spec{FG: gridFG, BG: canvasBG})),
		pal:   pal,
		boxes: map[string]image.Rectangle{},
	}
	cat := v.Catalog()
	if cat == nil || w <= 0 || h <= 0 {
		return f
	}
	t := v.Transform()

	o := cs.toCell(t.ToScreen(scene.Pt(0, 0)))
	drawutil.DrawGrid(f.buf, image.Pt(-o.X, -o.Y), gridSpacing, pal.Key(cellbuf.Spec{FG: gridFG, BG: canvasBG}))

	for _, id := range cat.NodeIDs() {
		var box scene.Rect
		found := false
		for _, el := range cat.Nodes(id) {
			if b, ok := el.Bounds(); ok {
				if !found {
					box, found = b, true
				} else {
					box = box.Union(b)
				}
			}
		}
		if found {
			f.boxes[id] = cs.cellRect(t.RectToScreen(box))
		}
	}

	d := v.Diagram()
	adj := v.Adjacency()
	type label struct {
		at    image.Point
		text  string
		alpha float64
	}
	var labels []label

	for _, id := range cat.EdgeIDs() {
		e, known := adj.Endpoints(id)
		for _, el := range cat.Edges(id) {
			shape := overlay.ShapeOf(el)
			alpha := opacity(el)
			col := blend(shape.AttrOr("stroke", edgeFG), edgeFG, alpha)
			key := pal.Key(cellbuf.Spec{FG: col, BG: canvasBG})

			var pts []image.Point
			for _, p := range shape.Points() {
				pts = append(pts, cs.toCell(t.ToScreen(p)))
			}
			if len(pts) < 2 && known {
				from, ok1 := f.boxes[e.From]
				to, ok2 := f.boxes[e.To]
				if !ok1 || !ok2 {
					continue
				}
				pts = drawutil.Connect(from, to)
			}
			if len(pts) < 2 {
				continue
			}
			var stop image.Rectangle
			if known && e.From != e.To {
				stop = f.boxes[e.To]
			}
			drawutil.DrawPolyline(f.buf, pts, drawutil.Stroke{
				Line: key, Arrow: key, Head: true, Dashed: alpha < 1,
			}, stop)

			if de, ok := d.Edge(id); ok && de.Relationship != "" {
				mid := pts[len(pts)/2]
				if len(pts) == 2 {
					mid = pts[0].Add(pts[1]).Div(2)
				}
				labels = append(labels, label{at: mid, text: de.Relationship, alpha: alpha})
			}
		}
	}

	for _, id := range cat.NodeIDs() {
		r, ok := f.boxes[id]
		if !ok || !r.Overlaps(f.buf.Bounds()) {
			continue
		}
		text := id
		if n, ok := d.Node(id); ok {
			text = n.Label()
		}
		f.drawNode(cat.Nodes(id)[0], r, text)
	}

	for _, l := range labels {
		key := pal.Key(cellbuf.Spec{FG: blend(edgeLabelFG, edgeLabelFG, l.alpha), BG: canvasBG})
		n := len([]rune(l.text))
		f.buf.SetString(l.at.X-n/2, l.at.Y, l.text, key)
	}
	return f
}

// drawNode paints one node box from its overlaid shape attributes.
func (f frame) drawNode(el *scene.Element, r image.Rectangle, text string) {
	shape := overlay.ShapeOf(el)
	alpha := opacity(el)

	fill := shape.AttrOr("fill", nodeFill)
	if fill == "none" || fill == "transparent" {
		fill = canvasBG
	}
	bg := blend(fill, nodeFill, alpha)
	fg := blend(textOn(bg), lightText, alpha)
	border := blend(shape.AttrOr("stroke", nodeStroke), nodeStroke, alpha)
	width, _ := strconv.ParseFloat(shape.AttrOr("stroke-width", "1"), 64)

	inner := f.pal.Key(cellbuf.Spec{FG: fg, BG: bg, Bold: true})
	edge := f.pal.Key(cellbuf.Spec{FG: border, BG: bg})
	f.buf.FillRect(r, ' ', inner)

	row := r.Min.Y + r.Dy()/2
	avail := r.Dx()
	if r.Dx() >= 3 && r.Dy() >= 3 {
		b := borderFor(width)
		top, bottom := first(b.Top), first(b.Bottom)
		left, right := first(b.Left), first(b.Right)
		for x := r.Min.X + 1; x < r.Max.X-1; x++ {
			f.buf.Set(x, r.Min.Y, top, edge)
			f.buf.Set(x, r.Max.Y-1, bottom, edge)
		}
		for y := r.Min.Y + 1; y < r.Max.Y-1; y++ {
			f.buf.Set(r.Min.X, y, left, edge)
			f.buf.Set(r.Max.X-1, y, right, edge)
		}
		f.buf.Set(r.Min.X, r.Min.Y, first(b.TopLeft), edge)
		f.buf.Set(r.Max.X-1, r.Min.Y, first(b.TopRight), edge)
		f.buf.Set(r.Min.X, r.Max.Y-1, first(b.BottomLeft), edge)
		f.buf.Set(r.Max.X-1, r.Max.Y-1, first(b.BottomRight), edge)
		avail = r.Dx() - 2
	}

	label := truncate(text, avail)
	n := len([]rune(label))
	f.buf.SetString(r.Min.X+(r.Dx()-n)/2, row, label, inner)
}

// opacity reads the element's opacity attribute; missing means 1.
func opacity(el *scene.Element) float64 {
	v, ok := el.Attr("opacity")
	if !ok {
		return 1
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(a) {
		return 1
	}
	return math.Max(0, math.Min(1, a))
}

// truncate cuts s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(rs) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(rs[:n-1]) + "…"
}

func first(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

// canvasSize is the viewport size the viewer fits against for a canvas of
// w×h cells.
func canvasSize(w, h int, cs cellSize) viewport.Size {
	return viewport.Size{W: float64(w) * cs.W, H: float64(h) * cs.H}
}
