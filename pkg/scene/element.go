package scene

import "strings"

// Attr is a single element attribute. Attribute order is preserved so a
// decoded scene can be written back without reshuffling.
type Attr struct {
	Name  string
	Value string
}

// Element is one node of a rendered scene: a group, shape, path or text
// run produced by the external renderer. Structure is fixed once the
// renderer hands the scene over; only attribute values and listeners change.
type Element struct {
	Tag  string
	Text string

	attrs    []Attr
	geom     Rect
	hasGeom  bool
	points   []Point
	parent   *Element
	children []*Element

	listeners    map[EventType][]listener
	nextListener ListenerID
	writes       int
}

// NewElement creates a detached element with the given attributes.
func NewElement(tag string, attrs ...Attr) *Element {
	e := &Element{Tag: tag}
	for _, a := range attrs {
		e.SetAttr(a.Name, a.Value)
	}
	e.writes = 0
	return e
}

// ── Attributes ──

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr writes an attribute and reports whether the stored value changed.
// Writing the value already present is a no-op.
func (e *Element) SetAttr(name, value string) bool {
	for i, a := range e.attrs {
		if a.Name == name {
			if a.Value == value {
				return false
			}
			e.attrs[i].Value = value
			e.writes++
			return true
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
	e.writes++
	return true
}

// RemoveAttr deletes an attribute and reports whether it was present.
func (e *Element) RemoveAttr(name string) bool {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			e.writes++
			return true
		}
	}
	return false
}

// Attrs returns a copy of all attributes in document order.
func (e *Element) Attrs() []Attr {
	out := make([]Attr, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Writes returns how many attribute mutations actually changed a value.
func (e *Element) Writes() int { return e.writes }

// ID returns the element's id attribute, or "".
func (e *Element) ID() string {
	return e.AttrOr("id", "")
}

// Classes returns the whitespace-separated tokens of the class attribute.
func (e *Element) Classes() []string {
	return strings.Fields(e.AttrOr("class", ""))
}

// HasClass reports whether the class list contains c.
func (e *Element) HasClass(c string) bool {
	for _, tok := range e.Classes() {
		if tok == c {
			return true
		}
	}
	return false
}

// TextContent concatenates the text of e and its descendants, trimmed.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.Walk(func(el *Element) bool {
		if el.Text == "" {
			return true
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(el.Text)
		return true
	})
	return strings.TrimSpace(b.String())
}

// ── Geometry ──

// SetGeometry records the element's own box in content space.
func (e *Element) SetGeometry(r Rect) {
	e.geom = r
	e.hasGeom = true
}

// SetPoints records a polyline (edge route, line, polygon outline) and
// derives the element's box from it.
func (e *Element) SetPoints(pts []Point) {
	e.points = append(e.points[:0], pts...)
	if r, ok := BoundsOfPoints(pts); ok {
		e.SetGeometry(r)
	}
}

// Geometry returns the element's own box, ignoring children.
func (e *Element) Geometry() (Rect, bool) {
	return e.geom, e.hasGeom
}

// Points returns the element's polyline, if any.
func (e *Element) Points() []Point { return e.points }

// Bounds returns the union of the element's own box and those of all its
// descendants. Non-finite boxes are skipped.
func (e *Element) Bounds() (Rect, bool) {
	var out Rect
	found := false
	e.Walk(func(el *Element) bool {
		if !el.hasGeom || !el.geom.Finite() {
			return true
		}
		if !found {
			out = el.geom
			found = true
		} else {
			out = out.Union(el.geom)
		}
		return true
	})
	return out, found
}

// ── Tree ──

// Append attaches children to e and returns e for chaining.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

// Children returns the direct children in document order.
func (e *Element) Children() []*Element { return e.children }

// Parent returns the parent element, or nil for the root.
func (e *Element) Parent() *Element { return e.parent }

// Walk visits e and its descendants in document (painter) order. Returning
// false from fn skips the visited element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.Walk(fn)
	}
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for n := other; n != nil; n = n.parent {
		if n == e {
			return true
		}
	}
	return false
}

// ancestry returns the chain from e up to the root, innermost first.
func (e *Element) ancestry() []*Element {
	var chain []*Element
	for n := e; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	return chain
}
