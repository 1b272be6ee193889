// Package viewer sequences the interaction layer around one diagram at a
// time: render, resolve ids, attach listeners, fit, paint overlays. It
// owns the scene and the transform; everything else only borrows them.
//
// A Viewer is not safe for concurrent use. Only Ticket.Run may execute off
// the owning goroutine.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/overlay"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
	"github.com/wesen/conceptmap/pkg/viewport"
)

var (
	// ErrRenderFailed wraps the renderer's error for the host.
	ErrRenderFailed = errors.New("viewer: render failed")
	// ErrNoDiagram is returned by Retry before any diagram was loaded.
	ErrNoDiagram = errors.New("viewer: no diagram loaded")
	// ErrUnknownNode is returned by FocusNode for ids not in the scene.
	ErrUnknownNode = errors.New("viewer: node not in scene")
)

// Renderer turns a diagram into a scene. pass increases with every render
// request and may be used by the renderer to suffix element ids.
type Renderer interface {
	Render(ctx context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error)

func (f RendererFunc) Render(ctx context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error) {
	return f(ctx, d, pass)
}

// Status is the render lifecycle as seen by the host.
type Status int

const (
	StatusEmpty Status = iota
	StatusRendering
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRendering:
		return "rendering"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

// Options configures a Viewer.
type Options struct {
	Viewport viewport.Options
	Theme    overlay.Theme
	// Dim is the opacity of elements outside a hover closure; zero means
	// overlay.DefaultDim.
	Dim              float64
	Resolver         *sceneid.Resolver
	DragThreshold    float64
	WheelSensitivity float64
	RenderTimeout    time.Duration
}

// Stats counts pipeline stages, for diagnostics and tests.
type Stats struct {
	Renders    int
	Stale      int
	Failures   int
	Attaches   int
	Fits       int
	Overlays   int
	Highlights int
	Writes     int
}

// Viewer is the orchestrator for one hosting surface.
type Viewer struct {
	log      *zap.Logger
	renderer Renderer
	opts     Options
	handlers interact.Handlers

	diagram    graphmodel.Diagram
	hasDiagram bool
	diagramSeq uint64
	driftSeen  uint64
	generation uint64
	status     Status
	err        error

	scene      *scene.Scene
	cat        *sceneid.Catalog
	adj        *graphmodel.Adjacency
	attachment *interact.Attachment
	input      *scene.Input
	vp         *viewport.Controller
	engine     *overlay.Engine
	hl         *overlay.Highlighter

	states  overlay.StateMap
	active  string
	hovered string

	size      viewport.Size
	resizeSeq uint64

	stats Stats
}

// New creates a viewer. handlers receive logical ids from the scene; hover
// is also applied to the scene by the viewer itself before it is forwarded.
func New(r Renderer, opts Options, handlers interact.Handlers, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Resolver == nil {
		opts.Resolver = sceneid.Default()
	}
	if opts.Dim <= 0 {
		opts.Dim = overlay.DefaultDim
	}
	return &Viewer{
		log:      log,
		renderer: r,
		opts:     opts,
		handlers: handlers,
		vp:       viewport.New(opts.Viewport),
		engine:   overlay.NewEngine(opts.Theme),
		hl:       overlay.NewHighlighter(opts.Dim),
	}
}

// ── Render lifecycle ──

// Ticket is one render request. Run may execute on any goroutine; its
// result goes back through Complete on the owning goroutine.
type Ticket struct {
	Generation uint64
	Diagram    graphmodel.Diagram

	renderer Renderer
	timeout  time.Duration
}

// Result is the outcome of Ticket.Run.
type Result struct {
	Generation uint64
	Scene      *scene.Scene
	Err        error
	Elapsed    time.Duration
}

// Run calls the renderer.
func (t Ticket) Run(ctx context.Context) Result {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	start := time.Now()
	res := Result{Generation: t.Generation}
	if t.renderer == nil {
		res.Err = errors.New("no renderer configured")
		return res
	}
	res.Scene, res.Err = t.renderer.Render(ctx, t.Diagram, int(t.Generation))
	if res.Err == nil && (res.Scene == nil || res.Scene.Root == nil) {
		res.Err = errors.New("renderer returned an empty scene")
	}
	res.Elapsed = time.Since(start)
	return res
}

// Load replaces the diagram and starts a render generation. Results of
// earlier generations are discarded when they arrive.
func (v *Viewer) Load(d graphmodel.Diagram) Ticket {
	v.diagram = d
	v.hasDiagram = true
	v.diagramSeq++
	return v.begin()
}

// Retry re-renders the current diagram.
func (v *Viewer) Retry() (Ticket, error) {
	if !v.hasDiagram {
		return Ticket{}, ErrNoDiagram
	}
	return v.begin(), nil
}

func (v *Viewer) begin() Ticket {
	v.generation++
	v.status = StatusRendering
	v.log.Debug("render requested",
		zap.Uint64("generation", v.generation),
		zap.String("source", v.diagram.Source),
		zap.Int("nodes", len(v.diagram.Nodes)),
		zap.Int("edges", len(v.diagram.Edges)))
	return Ticket{
		Generation: v.generation,
		Diagram:    v.diagram,
		renderer:   v.renderer,
		timeout:    v.opts.RenderTimeout,
	}
}

// Complete installs a render result. It returns false for results of a
// superseded generation, which are dropped untouched.
func (v *Viewer) Complete(res Result) bool {
	if res.Generation != v.generation {
		v.stats.Stale++
		v.log.Debug("discarding stale render",
			zap.Uint64("generation", res.Generation),
			zap.Uint64("current", v.generation))
		return false
	}
	v.stats.Renders++
	v.teardown()

	var cat *sceneid.Catalog
	if res.Err == nil {
		cat = v.opts.Resolver.Catalog(res.Scene)
		if cat.Len() == 0 {
			res.Err = errors.New("scene has no nodes or edges")
		}
	}
	if res.Err != nil {
		v.stats.Failures++
		v.status = StatusError
		v.err = fmt.Errorf("%w: %v", ErrRenderFailed, res.Err)
		v.log.Error("render failed",
			zap.Uint64("generation", res.Generation),
			zap.String("source", v.diagram.Source),
			zap.Error(res.Err))
		return true
	}

	v.status = StatusReady
	v.err = nil
	v.scene = res.Scene
	v.cat = cat
	v.adj = graphmodel.BuildAdjacency(v.diagram.Edges)
	v.hovered = ""

	v.attach()
	v.fit()
	v.paint(true)
	v.checkDrift()

	v.log.Info("diagram ready",
		zap.Uint64("generation", res.Generation),
		zap.String("source", v.diagram.Source),
		zap.Int("tracked", v.cat.Len()),
		zap.Duration("elapsed", res.Elapsed),
		zap.Stringer("transform", v.vp.Transform()))
	return true
}

// Render loads d and renders it synchronously.
func (v *Viewer) Render(ctx context.Context, d graphmodel.Diagram) error {
	t := v.Load(d)
	v.Complete(t.Run(ctx))
	return v.err
}

// teardown retires the current generation's listeners and scene.
func (v *Viewer) teardown() {
	v.attachment.Cleanup()
	v.attachment = nil
	v.scene = nil
	v.cat = nil
	v.adj = nil
	v.input = nil
	v.vp.Clear()
}

func (v *Viewer) attach() {
	v.attachment.Cleanup()
	v.attachment = interact.Attach(v.cat, interact.Handlers{
		OnNodeClick: v.onNodeClick,
		OnNodeHover: v.onNodeHover,
		OnEdgeClick: v.onEdgeClick,
	}, interact.Options{
		Viewport:         v.vp,
		DragThreshold:    v.opts.DragThreshold,
		WheelSensitivity: v.opts.WheelSensitivity,
	})
	v.input = scene.NewInput(v.scene, v.vp.ToContent)
	v.stats.Attaches++
}

func (v *Viewer) fit() {
	b, _ := v.scene.ContentBounds()
	v.vp.FitToContent(b, v.size, v.vp.Options().Padding)
	v.stats.Fits++
}

// paint reapplies node state, and the hover highlight when withHighlight.
func (v *Viewer) paint(withHighlight bool) {
	if v.cat == nil {
		return
	}
	states := v.states.Clone()
	if v.active != "" {
		f := states[v.active]
		f.IsActive = true
		states[v.active] = f
	}
	if v.hovered != "" {
		f := states[v.hovered]
		f.IsHovered = true
		states[v.hovered] = f
	}
	v.stats.Writes += v.engine.Apply(v.cat, states)
	v.stats.Overlays++
	if withHighlight {
		v.stats.Writes += v.hl.SetHoveredNode(v.cat, v.adj, v.hovered)
		v.stats.Highlights++
	}
}

// checkDrift logs a mismatch between scene and diagram once per loaded
// diagram; re-renders of the same diagram stay quiet.
func (v *Viewer) checkDrift() {
	if v.driftSeen == v.diagramSeq {
		return
	}
	edgeIDs := make([]string, len(v.diagram.Edges))
	for i, e := range v.diagram.Edges {
		edgeIDs[i] = e.ID
	}
	d := v.cat.Drift(v.diagram.NodeIDs(), edgeIDs)
	if d.Empty() {
		return
	}
	v.driftSeen = v.diagramSeq
	v.log.Warn("scene ids do not match diagram",
		zap.String("source", v.diagram.Source),
		zap.Strings("missing_nodes", d.MissingNodes),
		zap.Strings("unknown_nodes", d.UnknownNodes),
		zap.Strings("missing_edges", d.MissingEdges),
		zap.Strings("unknown_edges", d.UnknownEdges),
		zap.Int("conflicts", d.Conflicts))
}

// ── Handlers ──

func (v *Viewer) onNodeClick(id string) {
	if v.handlers.OnNodeClick != nil {
		v.handlers.OnNodeClick(id)
	}
}

func (v *Viewer) onEdgeClick(id string) {
	if v.handlers.OnEdgeClick != nil {
		v.handlers.OnEdgeClick(id)
	}
}

func (v *Viewer) onNodeHover(id string) {
	v.SetHovered(id)
	if v.handlers.OnNodeHover != nil {
		v.handlers.OnNodeHover(id)
	}
}

// ── Host inputs ──

// SetNodeStates replaces the host state map and repaints node state.
func (v *Viewer) SetNodeStates(states overlay.StateMap) {
	v.states = states
	v.paint(false)
}

// SetActive marks one node active ("" for none) and repaints node state.
func (v *Viewer) SetActive(id string) {
	if id == v.active {
		return
	}
	v.active = id
	v.paint(false)
}

// SetHovered marks one node hovered ("" for none) and repaints node state
// and the highlight.
func (v *Viewer) SetHovered(id string) {
	if id == v.hovered {
		return
	}
	v.hovered = id
	v.paint(true)
}

// Resize records a new surface size and returns a token. Only the latest
// token's FlushResize refits, so a burst of resizes costs one fit.
func (v *Viewer) Resize(s viewport.Size) uint64 {
	v.size = s
	v.vp.SetViewportSize(s)
	v.resizeSeq++
	return v.resizeSeq
}

// FlushResize refits if seq is still the latest resize.
func (v *Viewer) FlushResize(seq uint64) bool {
	if seq != v.resizeSeq {
		return false
	}
	if v.scene == nil {
		return false
	}
	v.fit()
	return true
}

// ── Control surface ──

func (v *Viewer) ZoomIn() viewport.Transform  { return v.vp.ZoomIn() }
func (v *Viewer) ZoomOut() viewport.Transform { return v.vp.ZoomOut() }

// FitToScreen refits the content to the current size.
func (v *Viewer) FitToScreen() viewport.Transform {
	if v.scene == nil {
		return v.vp.Transform()
	}
	v.fit()
	return v.vp.Transform()
}

// ResetTransform returns to the initial fitted transform.
func (v *Viewer) ResetTransform() viewport.Transform { return v.vp.Reset() }

// FocusNode centers the viewport on a node without changing scale.
func (v *Viewer) FocusNode(id string) error {
	if v.cat == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	var box scene.Rect
	found := false
	for _, el := range v.cat.Nodes(id) {
		if b, ok := el.Bounds(); ok {
			if !found {
				box, found = b, true
			} else {
				box = box.Union(b)
			}
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	v.vp.CenterOn(box)
	return nil
}

// Close retires listeners. The viewer may be reused with Load.
func (v *Viewer) Close() {
	v.attachment.Cleanup()
	v.attachment = nil
}

// ── Accessors ──

func (v *Viewer) Status() Status                   { return v.status }
func (v *Viewer) Err() error                       { return v.err }
func (v *Viewer) Generation() uint64               { return v.generation }
func (v *Viewer) Diagram() graphmodel.Diagram      { return v.diagram }
func (v *Viewer) Scene() *scene.Scene              { return v.scene }
func (v *Viewer) Catalog() *sceneid.Catalog        { return v.cat }
func (v *Viewer) Adjacency() *graphmodel.Adjacency { return v.adj }
func (v *Viewer) Transform() viewport.Transform    { return v.vp.Transform() }
func (v *Viewer) Viewport() *viewport.Controller   { return v.vp }
func (v *Viewer) Active() string                   { return v.active }
func (v *Viewer) Hovered() string                  { return v.hovered }
func (v *Viewer) States() overlay.StateMap         { return v.states }
func (v *Viewer) Stats() Stats                     { return v.stats }

// Input returns the pointer synthesiser for the current scene, or nil.
func (v *Viewer) Input() *scene.Input { return v.input }

// Listeners returns the live listener count of the current generation.
func (v *Viewer) Listeners() int {
	if v.attachment == nil || v.attachment.Closed() {
		return 0
	}
	return v.attachment.Len()
}
