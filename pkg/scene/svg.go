package scene

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// defaultFontSize is assumed for text runs without a font-size attribute.
const defaultFontSize = 14.0

// DecodeSVG parses an SVG document into a scene. Geometry is derived for
// rect, circle, ellipse, line, polyline, polygon, path, text, image and
// foreignObject elements, with translate/scale/matrix transforms applied.
func DecodeSVG(r io.Reader) (*Scene, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	var (
		root     *Element
		stack    []*Element
		mats     []affine
		prefixes = map[string]string{}
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					prefixes[a.Value] = a.Name.Local
				}
			}
			el := &Element{Tag: t.Name.Local}
			for _, a := range t.Attr {
				el.attrs = append(el.attrs, Attr{Name: attrName(a.Name, prefixes), Value: a.Value})
			}
			parent := identity
			if len(mats) > 0 {
				parent = mats[len(mats)-1]
			}
			m := parent
			if tr, ok := el.Attr("transform"); ok {
				m = parent.then(parseTransform(tr))
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode svg: multiple root elements")
				}
				root = el
			} else {
				stack[len(stack)-1].Append(el)
			}
			stack = append(stack, el)
			mats = append(mats, m)

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if s := strings.TrimSpace(string(t)); s != "" {
				top := stack[len(stack)-1]
				if top.Text != "" {
					top.Text += " "
				}
				top.Text += s
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decode svg: unexpected </%s>", t.Name.Local)
			}
			el := stack[len(stack)-1]
			assignGeometry(el, mats[len(mats)-1])
			stack = stack[:len(stack)-1]
			mats = mats[:len(mats)-1]
		}
	}
	if root == nil {
		return nil, fmt.Errorf("decode svg: empty document")
	}

	s := New(root)
	if vb, ok := root.Attr("viewBox"); ok {
		if f := numbers(vb); len(f) == 4 && f[2] > 0 && f[3] > 0 {
			s.ViewBox = Rect{X: f[0], Y: f[1], W: f[2], H: f[3]}
			s.HasViewBox = true
		}
	}
	return s, nil
}

func attrName(n xml.Name, prefixes map[string]string) string {
	switch n.Space {
	case "":
		return n.Local
	case "xmlns":
		return "xmlns:" + n.Local
	}
	if p, ok := prefixes[n.Space]; ok {
		return p + ":" + n.Local
	}
	return n.Local
}

func assignGeometry(el *Element, m affine) {
	f := func(name string) float64 {
		v, _ := num(el.AttrOr(name, ""))
		return v
	}
	switch el.Tag {
	case "rect", "image", "foreignObject", "use":
		w, h := f("width"), f("height")
		if w <= 0 || h <= 0 {
			return
		}
		el.SetGeometry(m.rect(Rect{X: f("x"), Y: f("y"), W: w, H: h}))
	case "circle":
		r := f("r")
		if r <= 0 {
			return
		}
		el.SetGeometry(m.rect(Rect{X: f("cx") - r, Y: f("cy") - r, W: 2 * r, H: 2 * r}))
	case "ellipse":
		rx, ry := f("rx"), f("ry")
		if rx <= 0 || ry <= 0 {
			return
		}
		el.SetGeometry(m.rect(Rect{X: f("cx") - rx, Y: f("cy") - ry, W: 2 * rx, H: 2 * ry}))
	case "line":
		el.SetPoints(m.points([]Point{{f("x1"), f("y1")}, {f("x2"), f("y2")}}))
	case "polyline", "polygon":
		el.SetPoints(m.points(pairs(numbers(el.AttrOr("points", "")))))
	case "path":
		el.SetPoints(m.points(parsePath(el.AttrOr("d", ""))))
	case "text":
		text := el.TextContent()
		if text == "" {
			return
		}
		fs := defaultFontSize
		if v, ok := num(el.AttrOr("font-size", "")); ok && v > 0 {
			fs = v
		}
		w := float64(utf8.RuneCountInString(text)) * fs * 0.6
		x := f("x")
		switch el.AttrOr("text-anchor", "") {
		case "middle":
			x -= w / 2
		case "end":
			x -= w
		}
		y := f("y") - fs*0.8
		if el.AttrOr("dominant-baseline", "") == "middle" || el.AttrOr("dominant-baseline", "") == "central" {
			y = f("y") - fs/2
		}
		el.SetGeometry(m.rect(Rect{X: x, Y: y, W: w, H: fs}))
	}
}

// ── Encoding ──

// EncodeSVG writes the scene back out as SVG markup, including every
// attribute mutation made since decoding.
func EncodeSVG(w io.Writer, s *Scene) error {
	if s == nil || s.Root == nil {
		return fmt.Errorf("encode svg: empty scene")
	}
	bw := bufio.NewWriter(w)
	writeElement(bw, s.Root, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

func writeElement(w *bufio.Writer, e *Element, depth int) {
	indent := strings.Repeat("  ", depth)
	w.WriteString(indent)
	w.WriteByte('<')
	w.WriteString(e.Tag)
	for _, a := range e.attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name)
		w.WriteString(`="`)
		_ = xml.EscapeText(w, []byte(a.Value))
		w.WriteByte('"')
	}
	if e.Text == "" && len(e.children) == 0 {
		w.WriteString("/>")
		return
	}
	w.WriteByte('>')
	if e.Text != "" {
		_ = xml.EscapeText(w, []byte(e.Text))
	}
	if len(e.children) > 0 {
		for _, c := range e.children {
			w.WriteByte('\n')
			writeElement(w, c, depth+1)
		}
		w.WriteByte('\n')
		w.WriteString(indent)
	}
	w.WriteString("</")
	w.WriteString(e.Tag)
	w.WriteByte('>')
}

// ── Numbers and transforms ──

func num(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// numbers splits a comma/whitespace separated number list. Malformed
// entries are dropped.
func numbers(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]float64, 0, len(fields))
	for _, fld := range fields {
		if v, ok := num(fld); ok {
			out = append(out, v)
		}
	}
	return out
}

func pairs(f []float64) []Point {
	pts := make([]Point, 0, len(f)/2)
	for i := 0; i+1 < len(f); i += 2 {
		pts = append(pts, Point{X: f[i], Y: f[i+1]})
	}
	return pts
}

// affine is the 2D matrix [a c e; b d f; 0 0 1].
type affine struct {
	a, b, c, d, e, f float64
}

var identity = affine{a: 1, d: 1}

func (m affine) apply(p Point) Point {
	return Point{X: m.a*p.X + m.c*p.Y + m.e, Y: m.b*p.X + m.d*p.Y + m.f}
}

// then returns the transform that applies n first and m second, matching
// SVG's parent-then-child nesting.
func (m affine) then(n affine) affine {
	return affine{
		a: m.a*n.a + m.c*n.b,
		b: m.b*n.a + m.d*n.b,
		c: m.a*n.c + m.c*n.d,
		d: m.b*n.c + m.d*n.d,
		e: m.a*n.e + m.c*n.f + m.e,
		f: m.b*n.e + m.d*n.f + m.f,
	}
}

func (m affine) points(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = m.apply(p)
	}
	return out
}

func (m affine) rect(r Rect) Rect {
	b, _ := BoundsOfPoints(m.points([]Point{
		{r.X, r.Y}, {r.X + r.W, r.Y}, {r.X, r.Y + r.H}, {r.X + r.W, r.Y + r.H},
	}))
	return b
}

// parseTransform understands translate, scale and matrix. Other functions
// (rotate, skew) are ignored.
func parseTransform(s string) affine {
	m := identity
	for {
		open := strings.IndexByte(s, '(')
		if open < 0 {
			return m
		}
		closing := strings.IndexByte(s[open:], ')')
		if closing < 0 {
			return m
		}
		name := strings.TrimSpace(strings.TrimLeft(s[:open], ", \t\n"))
		args := numbers(s[open+1 : open+closing])
		s = s[open+closing+1:]

		var n affine
		switch {
		case name == "translate" && len(args) >= 1:
			n = identity
			n.e = args[0]
			if len(args) >= 2 {
				n.f = args[1]
			}
		case name == "scale" && len(args) >= 1:
			n = affine{a: args[0], d: args[0]}
			if len(args) >= 2 {
				n.d = args[1]
			}
		case name == "matrix" && len(args) == 6:
			n = affine{a: args[0], b: args[1], c: args[2], d: args[3], e: args[4], f: args[5]}
		default:
			continue
		}
		m = m.then(n)
	}
}

// ── Path data ──

type pathToken struct {
	cmd   byte
	value float64
	isCmd bool
}

func lexPath(d string) []pathToken {
	var toks []pathToken
	i := 0
	for i < len(d) {
		ch := d[i]
		switch {
		case ch == ' ' || ch == ',' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", ch) >= 0:
			toks = append(toks, pathToken{cmd: ch, isCmd: true})
			i++
		default:
			j := scanNumber(d, i)
			if j == i {
				i++
				continue
			}
			if v, err := strconv.ParseFloat(d[i:j], 64); err == nil {
				toks = append(toks, pathToken{value: v})
			}
			i = j
		}
	}
	return toks
}

// scanNumber returns the end of the number starting at i.
func scanNumber(d string, i int) int {
	j := i
	if j < len(d) && (d[j] == '-' || d[j] == '+') {
		j++
	}
	dot := false
	for j < len(d) {
		c := d[j]
		if c >= '0' && c <= '9' {
			j++
			continue
		}
		if c == '.' && !dot {
			dot = true
			j++
			continue
		}
		break
	}
	if j < len(d) && (d[j] == 'e' || d[j] == 'E') {
		k := j + 1
		if k < len(d) && (d[k] == '-' || d[k] == '+') {
			k++
		}
		if k < len(d) && d[k] >= '0' && d[k] <= '9' {
			for k < len(d) && d[k] >= '0' && d[k] <= '9' {
				k++
			}
			j = k
		}
	}
	return j
}

var pathArity = map[byte]int{
	'M': 2, 'L': 2, 'T': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'A': 7, 'Z': 0,
}

const curveSteps = 8

// parsePath flattens path data into a polyline. Curves are sampled so the
// result is usable for hit testing and terminal rasterisation.
func parsePath(d string) []Point {
	toks := lexPath(d)
	var (
		pts   []Point
		cur   Point
		start Point
		cmd   byte
	)
	i := 0
	for i < len(toks) {
		if toks[i].isCmd {
			cmd = toks[i].cmd
			i++
			if cmd == 'Z' || cmd == 'z' {
				cur = start
				pts = append(pts, cur)
				continue
			}
		}
		if cmd == 0 {
			i++
			continue
		}
		upper := cmd &^ 0x20
		n := pathArity[upper]
		if n == 0 || i+n > len(toks) {
			break
		}
		args := make([]float64, n)
		short := -1
		for k := 0; k < n; k++ {
			if toks[i+k].isCmd {
				short = k
				break
			}
			args[k] = toks[i+k].value
		}
		if short >= 0 {
			// Drop the incomplete segment and resume at the next command.
			i += short
			continue
		}
		i += n
		rel := cmd != upper
		abs := func(x, y float64) Point {
			if rel {
				return Point{X: cur.X + x, Y: cur.Y + y}
			}
			return Point{X: x, Y: y}
		}

		switch upper {
		case 'M':
			cur = abs(args[0], args[1])
			start = cur
			pts = append(pts, cur)
			// Subsequent coordinate pairs are implicit line-tos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'T':
			cur = abs(args[0], args[1])
			pts = append(pts, cur)
		case 'H':
			if rel {
				cur.X += args[0]
			} else {
				cur.X = args[0]
			}
			pts = append(pts, cur)
		case 'V':
			if rel {
				cur.Y += args[0]
			} else {
				cur.Y = args[0]
			}
			pts = append(pts, cur)
		case 'C':
			c1, c2, end := abs(args[0], args[1]), abs(args[2], args[3]), abs(args[4], args[5])
			pts = append(pts, cubic(cur, c1, c2, end)...)
			cur = end
		case 'S':
			c2, end := abs(args[0], args[1]), abs(args[2], args[3])
			pts = append(pts, cubic(cur, cur, c2, end)...)
			cur = end
		case 'Q':
			c, end := abs(args[0], args[1]), abs(args[2], args[3])
			pts = append(pts, cubic(cur, lerp(cur, c, 2.0/3), lerp(end, c, 2.0/3), end)...)
			cur = end
		case 'A':
			cur = abs(args[5], args[6])
			pts = append(pts, cur)
		}
	}
	return pts
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func cubic(p0, p1, p2, p3 Point) []Point {
	out := make([]Point, 0, curveSteps)
	for s := 1; s <= curveSteps; s++ {
		t := float64(s) / curveSteps
		u := 1 - t
		out = append(out, Point{
			X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
			Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
		})
	}
	return out
}
