// Package scene is the retained element tree a diagram renderer produces:
// groups, shapes, edge paths and labels with string attributes, geometry in
// content space and pointer-event listeners. The interaction layer reads
// and writes attributes on it and hooks listeners into it; it never changes
// its structure.
package scene

// DefaultHitSlop is how far, in content units, a pointer may be from an
// edge polyline and still hit it.
const DefaultHitSlop = 4.0

// Scene is one rendered diagram.
type Scene struct {
	Root *Element

	// ViewBox is the renderer's declared canvas, if any.
	ViewBox    Rect
	HasViewBox bool

	HitSlop float64

	bounds   Rect
	boundsOK bool
	measured bool
}

// New wraps root into a scene.
func New(root *Element) *Scene {
	return &Scene{Root: root, HitSlop: DefaultHitSlop}
}

// Walk visits every element in painter order.
func (s *Scene) Walk(fn func(*Element) bool) {
	if s.Root != nil {
		s.Root.Walk(fn)
	}
}

// ContentBounds returns the bounding box of all drawn geometry. The result
// is measured once and cached; scenes are immutable in structure.
func (s *Scene) ContentBounds() (Rect, bool) {
	if !s.measured {
		s.measured = true
		if s.Root != nil {
			s.bounds, s.boundsOK = s.Root.Bounds()
		}
		if !s.boundsOK && s.HasViewBox && s.ViewBox.Finite() {
			s.bounds, s.boundsOK = s.ViewBox, true
		}
	}
	return s.bounds, s.boundsOK
}

// FindByID returns the first element whose id attribute equals id.
func (s *Scene) FindByID(id string) *Element {
	var found *Element
	s.Walk(func(e *Element) bool {
		if found != nil {
			return false
		}
		if e.ID() == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// ListenerCount returns the number of listeners registered anywhere in the
// scene.
func (s *Scene) ListenerCount() int {
	n := 0
	s.Walk(func(e *Element) bool {
		n += e.TotalListeners()
		return true
	})
	return n
}

// HitTest returns the topmost element whose own geometry contains p, or nil.
// Elements painted later sit on top. Polylines are hit within HitSlop;
// elements with pointer-events="none" are transparent.
func (s *Scene) HitTest(p Point) *Element {
	var order []*Element
	s.Walk(func(e *Element) bool {
		if e.AttrOr("pointer-events", "") == "none" {
			return false
		}
		if e.hasGeom {
			order = append(order, e)
		}
		return true
	})
	slop := s.HitSlop
	if slop <= 0 {
		slop = DefaultHitSlop
	}
	for i := len(order) - 1; i >= 0; i-- {
		if hits(order[i], p, slop) {
			return order[i]
		}
	}
	return nil
}

func hits(e *Element, p Point, slop float64) bool {
	if len(e.points) >= 2 && !e.closed() {
		for i := 1; i < len(e.points); i++ {
			if distToSegment(p, e.points[i-1], e.points[i]) <= slop {
				return true
			}
		}
		return false
	}
	return e.geom.Contains(p)
}

// closed reports whether the polyline outlines an area (polygon) rather
// than a stroke.
func (e *Element) closed() bool {
	return e.Tag == "polygon"
}
