package viewport

import (
	"math"

	"github.com/wesen/conceptmap/pkg/scene"
)

// State is the controller lifecycle.
type State int

const (
	// Uninitialized: no content has been fitted yet.
	Uninitialized State = iota
	// Fitted: the transform was computed from content bounds.
	Fitted
	// UserAdjusted: a zoom or pan moved away from the fitted transform.
	UserAdjusted
)

func (s State) String() string {
	switch s {
	case Fitted:
		return "fitted"
	case UserAdjusted:
		return "user-adjusted"
	default:
		return "uninitialized"
	}
}

// Options bounds the transform.
type Options struct {
	MinScale    float64 `toml:"min_scale"`
	MaxScale    float64 `toml:"max_scale"`
	MaxFitScale float64 `toml:"max_fit_scale"`
	Padding     float64 `toml:"padding"`
	// ZoomStep is the factor used by ZoomIn and ZoomOut.
	ZoomStep float64 `toml:"zoom_step"`
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{MinScale: 0.1, MaxScale: 3.0, MaxFitScale: 1.5, Padding: 20, ZoomStep: 1.2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !(o.MinScale > 0) {
		o.MinScale = d.MinScale
	}
	if !(o.MaxScale > 0) {
		o.MaxScale = d.MaxScale
	}
	if o.MaxScale < o.MinScale {
		o.MaxScale = o.MinScale
	}
	if !(o.MaxFitScale > 0) {
		o.MaxFitScale = d.MaxFitScale
	}
	if !(o.Padding >= 0) {
		o.Padding = d.Padding
	}
	if !(o.ZoomStep > 1) {
		o.ZoomStep = d.ZoomStep
	}
	return o
}

// Controller holds one diagram's transform. Gesture handlers and the host
// control surface both go through it.
type Controller struct {
	opts Options

	t       Transform
	state   State
	size    Size
	bounds  scene.Rect
	content bool
	initial Transform
}

// New creates a controller in the Uninitialized state.
func New(opts Options) *Controller {
	return &Controller{opts: opts.withDefaults(), t: Identity()}
}

// Options returns the effective limits.
func (c *Controller) Options() Options { return c.opts }

// Transform returns the current transform.
func (c *Controller) Transform() Transform { return c.t }

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Size returns the last viewport size.
func (c *Controller) Size() Size { return c.size }

// ToContent maps a viewport point to content space under the current
// transform.
func (c *Controller) ToContent(x, y float64) scene.Point { return c.t.ToContent(x, y) }

// SetViewportSize records the surface size without refitting.
func (c *Controller) SetViewportSize(s Size) { c.size = s }

// Clear forgets the current content and returns to Uninitialized.
func (c *Controller) Clear() {
	c.t = Identity()
	c.initial = c.t
	c.state = Uninitialized
	c.content = false
	c.bounds = scene.Rect{}
}

func (c *Controller) clamp(s float64) float64 {
	return math.Max(c.opts.MinScale, math.Min(c.opts.MaxScale, s))
}

// FitToContent scales bounds into size minus padding on every side, capped
// at MaxFitScale, and centers it. Degenerate bounds or sizes produce the
// identity transform. The result becomes the transform Reset returns to.
func (c *Controller) FitToContent(bounds scene.Rect, size Size, padding float64) Transform {
	c.bounds = bounds
	c.content = true
	c.size = size
	c.t = fit(bounds, size, padding, c.opts)
	c.initial = c.t
	c.state = Fitted
	return c.t
}

func fit(b scene.Rect, size Size, padding float64, o Options) Transform {
	if !b.Finite() || !(b.W > 0) || !(b.H > 0) || !size.Valid() {
		return Identity()
	}
	if !(padding >= 0) {
		padding = 0
	}
	availW := size.W - 2*padding
	availH := size.H - 2*padding
	if availW <= 0 || availH <= 0 {
		availW, availH = size.W, size.H
	}
	s := math.Min(math.Min(availW/b.W, availH/b.H), o.MaxFitScale)
	s = math.Max(o.MinScale, math.Min(o.MaxScale, s))
	t := Transform{
		Scale:      s,
		TranslateX: (size.W-b.W*s)/2 - b.X*s,
		TranslateY: (size.H-b.H*s)/2 - b.Y*s,
	}
	if !t.Finite() {
		return Identity()
	}
	return t
}

// Fit refits the last content into the current viewport size.
func (c *Controller) Fit() Transform {
	if !c.content {
		return c.t
	}
	return c.FitToContent(c.bounds, c.size, c.opts.Padding)
}

// ZoomBy multiplies scale by factor, clamped, keeping translate.
func (c *Controller) ZoomBy(factor float64) Transform {
	if !validFactor(factor) {
		return c.t
	}
	c.t.Scale = c.clamp(c.t.Scale * factor)
	c.state = UserAdjusted
	return c.t
}

// ZoomToPointer scales by factor while keeping the content point under
// (px, py) fixed on screen: t' = p − (p − t)·(s'/s).
func (c *Controller) ZoomToPointer(factor, px, py float64) Transform {
	if !validFactor(factor) || !finite(px) || !finite(py) {
		return c.t
	}
	old := c.t.Scale
	if !(old > 0) || !finite(old) {
		c.t = Identity()
		old = 1
	}
	s := c.clamp(old * factor)
	ratio := s / old
	c.t = Transform{
		Scale:      s,
		TranslateX: px - (px-c.t.TranslateX)*ratio,
		TranslateY: py - (py-c.t.TranslateY)*ratio,
	}
	c.state = UserAdjusted
	return c.t
}

// PanBy moves the content by (dx, dy) screen units.
func (c *Controller) PanBy(dx, dy float64) Transform {
	if !finite(dx) || !finite(dy) || (dx == 0 && dy == 0) {
		return c.t
	}
	c.t.TranslateX += dx
	c.t.TranslateY += dy
	c.state = UserAdjusted
	return c.t
}

// ZoomIn zooms one step around the viewport center.
func (c *Controller) ZoomIn() Transform {
	return c.zoomCentered(c.opts.ZoomStep)
}

// ZoomOut zooms out one step around the viewport center.
func (c *Controller) ZoomOut() Transform {
	return c.zoomCentered(1 / c.opts.ZoomStep)
}

func (c *Controller) zoomCentered(factor float64) Transform {
	if !c.size.Valid() {
		return c.ZoomBy(factor)
	}
	return c.ZoomToPointer(factor, c.size.W/2, c.size.H/2)
}

// FitToScreen recomputes the fit for the current content and size.
func (c *Controller) FitToScreen() Transform { return c.Fit() }

// Reset returns to the transform produced by the last fit.
func (c *Controller) Reset() Transform {
	if c.state == Uninitialized {
		return c.t
	}
	c.t = c.initial
	c.state = Fitted
	return c.t
}

// CenterOn pans so the center of r sits in the middle of the viewport,
// keeping the current scale.
func (c *Controller) CenterOn(r scene.Rect) Transform {
	if !r.Finite() || !c.size.Valid() {
		return c.t
	}
	p := r.Center()
	c.t.TranslateX = c.size.W/2 - p.X*c.t.Scale
	c.t.TranslateY = c.size.H/2 - p.Y*c.t.Scale
	c.state = UserAdjusted
	return c.t
}

func validFactor(f float64) bool {
	return f > 0 && finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
