package scene

// Input turns raw pointer samples in viewport space into element events:
// hit testing, enter/leave along the hover chain, and click synthesis when
// a press and release land on the same element.
//
// Events with no hit element are delivered to the root so background
// gestures (pan, wheel zoom) can be handled there.
type Input struct {
	scene     *Scene
	toContent func(x, y float64) Point

	hover   []*Element // innermost first
	down    *Element
	pressed bool
	lastX   float64
	lastY   float64
	hasLast bool
}

// NewInput creates an input synthesiser for s. toContent maps viewport
// coordinates into content space; nil means identity.
func NewInput(s *Scene, toContent func(x, y float64) Point) *Input {
	if toContent == nil {
		toContent = func(x, y float64) Point { return Point{X: x, Y: y} }
	}
	return &Input{scene: s, toContent: toContent}
}

// Pressed reports whether a button is held.
func (in *Input) Pressed() bool { return in.pressed }

// Hovered returns the innermost hovered element, or nil.
func (in *Input) Hovered() *Element {
	if len(in.hover) == 0 {
		return nil
	}
	return in.hover[0]
}

func (in *Input) event(t EventType, target *Element, sx, sy float64) *Event {
	p := in.toContent(sx, sy)
	return &Event{Type: t, Target: target, X: p.X, Y: p.Y, ScreenX: sx, ScreenY: sy}
}

func (in *Input) target(sx, sy float64) (*Element, *Element) {
	hit := in.scene.HitTest(in.toContent(sx, sy))
	if hit == nil {
		return nil, in.scene.Root
	}
	return hit, hit
}

// Move reports the pointer at (sx, sy).
func (in *Input) Move(sx, sy float64) {
	hit, target := in.target(sx, sy)
	in.updateHover(hit, sx, sy)
	in.lastX, in.lastY, in.hasLast = sx, sy, true
	Dispatch(in.event(EventPointerMove, target, sx, sy))
}

// Down reports a button press at (sx, sy).
func (in *Input) Down(sx, sy float64) {
	hit, target := in.target(sx, sy)
	in.updateHover(hit, sx, sy)
	in.down = target
	in.pressed = true
	Dispatch(in.event(EventPointerDown, target, sx, sy))
}

// Up reports a button release at (sx, sy). A click follows when the release
// lands on the element that received the press.
func (in *Input) Up(sx, sy float64) {
	hit, target := in.target(sx, sy)
	in.updateHover(hit, sx, sy)
	Dispatch(in.event(EventPointerUp, target, sx, sy))
	down := in.down
	in.down = nil
	in.pressed = false
	if down != nil && down == target {
		Dispatch(in.event(EventClick, target, sx, sy))
	}
}

// Wheel reports a wheel step at (sx, sy). Positive deltaY scrolls down.
func (in *Input) Wheel(sx, sy, deltaY float64) {
	_, target := in.target(sx, sy)
	ev := in.event(EventWheel, target, sx, sy)
	ev.DeltaY = deltaY
	Dispatch(ev)
}

// Leave reports that the pointer left the surface. Every hovered element
// receives a leave event and any pending press is dropped.
func (in *Input) Leave() {
	x, y := in.lastX, in.lastY
	in.updateHover(nil, x, y)
	in.down = nil
	in.pressed = false
	in.hasLast = false
}

func (in *Input) updateHover(hit *Element, sx, sy float64) {
	var next []*Element
	if hit != nil {
		next = hit.ancestry()
	}
	inNext := make(map[*Element]bool, len(next))
	for _, e := range next {
		inNext[e] = true
	}
	inPrev := make(map[*Element]bool, len(in.hover))
	for _, e := range in.hover {
		inPrev[e] = true
	}
	prev := in.hover
	in.hover = next
	for _, e := range prev {
		if !inNext[e] {
			e.fire(in.event(EventPointerLeave, e, sx, sy))
		}
	}
	for i := len(next) - 1; i >= 0; i-- {
		if e := next[i]; !inPrev[e] {
			e.fire(in.event(EventPointerEnter, e, sx, sy))
		}
	}
}
