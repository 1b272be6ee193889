// Package interact binds pointer listeners to a rendered scene and turns
// raw element events into logical node and edge callbacks. Each Attach call
// owns its listener set; Cleanup removes exactly what it added.
package interact

import (
	"math"

	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
	"github.com/wesen/conceptmap/pkg/viewport"
)

// DefaultDragThreshold is how far, in viewport units, a background press
// must travel before it becomes a pan.
const DefaultDragThreshold = 3.0

// Handlers receive logical ids only. Nil handlers are skipped.
type Handlers struct {
	OnNodeClick func(id string)
	// OnNodeHover receives "" when the pointer leaves every node.
	OnNodeHover func(id string)
	OnEdgeClick func(id string)
}

// Options configures background gestures.
type Options struct {
	// Viewport receives drag-pan and wheel zoom. Nil disables both.
	Viewport         *viewport.Controller
	DragThreshold    float64
	WheelSensitivity float64
	// OnViewportChange runs after a gesture moved the transform.
	OnViewportChange func(viewport.Transform)
}

type binding struct {
	el  *scene.Element
	typ scene.EventType
	id  scene.ListenerID
}

// pointer tracks one press on the background.
type pointer struct {
	down         bool
	onTracked    bool
	startX       float64
	startY       float64
	lastX        float64
	lastY        float64
	panning      bool
	suppressNext bool
}

// Attachment is one render generation's listener set.
type Attachment struct {
	handlers Handlers
	opts     Options
	cat      *sceneid.Catalog

	bindings []binding
	closed   bool

	hover    []string
	reported string
	ptr      pointer
}

// Attach registers listeners on every tracked element of cat and gesture
// listeners on the scene root. Callers must Cleanup the previous attachment
// for a scene before attaching again.
func Attach(cat *sceneid.Catalog, h Handlers, opts Options) *Attachment {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	a := &Attachment{handlers: h, opts: opts, cat: cat}
	if cat == nil || cat.Scene == nil || cat.Scene.Root == nil {
		return a
	}

	for _, id := range cat.NodeIDs() {
		for _, el := range cat.Nodes(id) {
			a.bindNode(el, id)
		}
	}
	for _, id := range cat.EdgeIDs() {
		for _, el := range cat.Edges(id) {
			a.bindEdge(el, id)
		}
	}

	root := cat.Scene.Root
	a.on(root, scene.EventPointerDown, a.onDown)
	a.on(root, scene.EventPointerMove, a.onMove)
	a.on(root, scene.EventPointerUp, a.onUp)
	if opts.Viewport != nil {
		a.on(root, scene.EventWheel, a.onWheel)
	}
	return a
}

func (a *Attachment) on(el *scene.Element, t scene.EventType, fn scene.Listener) {
	id := el.AddEventListener(t, fn)
	a.bindings = append(a.bindings, binding{el: el, typ: t, id: id})
}

func (a *Attachment) bindNode(el *scene.Element, id string) {
	a.on(el, scene.EventClick, func(ev *scene.Event) {
		ev.StopPropagation()
		if a.consumeSuppressed() || a.handlers.OnNodeClick == nil {
			return
		}
		a.handlers.OnNodeClick(id)
	})
	a.on(el, scene.EventPointerEnter, func(*scene.Event) {
		a.hover = append(a.hover, id)
		a.reportHover()
	})
	a.on(el, scene.EventPointerLeave, func(*scene.Event) {
		for i := len(a.hover) - 1; i >= 0; i-- {
			if a.hover[i] == id {
				a.hover = append(a.hover[:i], a.hover[i+1:]...)
				break
			}
		}
		a.reportHover()
	})
}

func (a *Attachment) bindEdge(el *scene.Element, id string) {
	a.on(el, scene.EventClick, func(ev *scene.Event) {
		ev.StopPropagation()
		if a.consumeSuppressed() || a.handlers.OnEdgeClick == nil {
			return
		}
		a.handlers.OnEdgeClick(id)
	})
}

// reportHover emits the innermost hovered node when it changed. Hover is
// held back while a pan is in progress.
func (a *Attachment) reportHover() {
	if a.closed || a.ptr.panning {
		return
	}
	top := ""
	if n := len(a.hover); n > 0 {
		top = a.hover[n-1]
	}
	if top == a.reported {
		return
	}
	a.reported = top
	if a.handlers.OnNodeHover != nil {
		a.handlers.OnNodeHover(top)
	}
}

func (a *Attachment) consumeSuppressed() bool {
	s := a.ptr.suppressNext
	a.ptr.suppressNext = false
	return s
}

// ── Gestures ──

func (a *Attachment) onDown(ev *scene.Event) {
	_, tracked := a.cat.Owner(ev.Target)
	a.ptr = pointer{
		down:      true,
		onTracked: tracked,
		startX:    ev.ScreenX,
		startY:    ev.ScreenY,
		lastX:     ev.ScreenX,
		lastY:     ev.ScreenY,
	}
}

func (a *Attachment) onMove(ev *scene.Event) {
	p := &a.ptr
	if !p.down || p.onTracked || a.opts.Viewport == nil {
		return
	}
	if !p.panning {
		if math.Hypot(ev.ScreenX-p.startX, ev.ScreenY-p.startY) <= a.opts.DragThreshold {
			return
		}
		p.panning = true
	}
	t := a.opts.Viewport.PanBy(ev.ScreenX-p.lastX, ev.ScreenY-p.lastY)
	p.lastX, p.lastY = ev.ScreenX, ev.ScreenY
	a.viewportChanged(t)
}

func (a *Attachment) onUp(*scene.Event) {
	panned := a.ptr.panning
	a.ptr = pointer{suppressNext: panned}
	if panned {
		a.reportHover()
	}
}

func (a *Attachment) onWheel(ev *scene.Event) {
	f := viewport.WheelFactor(ev.DeltaY, a.opts.WheelSensitivity)
	a.viewportChanged(a.opts.Viewport.ZoomToPointer(f, ev.ScreenX, ev.ScreenY))
}

func (a *Attachment) viewportChanged(t viewport.Transform) {
	if a.opts.OnViewportChange != nil {
		a.opts.OnViewportChange(t)
	}
}

// ── Lifecycle ──

// Panning reports whether a background drag is in progress.
func (a *Attachment) Panning() bool { return a.ptr.panning }

// Len returns the number of live listener registrations.
func (a *Attachment) Len() int { return len(a.bindings) }

// Closed reports whether Cleanup has run.
func (a *Attachment) Closed() bool { return a.closed }

// Cleanup removes every listener this attachment added. Calling it again
// does nothing.
func (a *Attachment) Cleanup() {
	if a == nil || a.closed {
		return
	}
	a.closed = true
	for _, b := range a.bindings {
		b.el.RemoveEventListener(b.typ, b.id)
	}
	a.bindings = nil
	a.hover = nil
}
