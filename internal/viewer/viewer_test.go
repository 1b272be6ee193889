package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/overlay"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/viewport"
)

func abc() graphmodel.Diagram {
	d := graphmodel.Diagram{
		Source: "abc",
		Nodes:  []graphmodel.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges:  []graphmodel.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}},
	}
	d.Normalize()
	return d
}

// chainRenderer lays nodes out left to right, mermaid style: node groups
// are "flowchart-<id>-<pass>", edges "edge-<id>-<pass>". Every scene it
// produces is kept for leak checks.
type chainRenderer struct {
	scenes []*scene.Scene
	extra  []string // node ids rendered in addition to the diagram's
	fail   error
}

func (r *chainRenderer) Render(_ context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	root := scene.NewElement("svg")
	pos := map[string]float64{}
	ids := append(d.NodeIDs(), r.extra...)
	for i, id := range ids {
		x := float64(i * 100)
		pos[id] = x
		g := scene.NewElement("g",
			scene.Attr{Name: "id", Value: fmt.Sprintf("flowchart-%s-%d", id, pass)},
			scene.Attr{Name: "class", Value: "node"})
		rect := scene.NewElement("rect", scene.Attr{Name: "fill", Value: "#ffffff"})
		rect.SetGeometry(scene.Rect{X: x, Y: 0, W: 50, H: 30})
		root.Append(g.Append(rect))
	}
	for _, e := range d.Edges {
		p := scene.NewElement("path", scene.Attr{Name: "id", Value: fmt.Sprintf("edge-%s-%d", e.ID, pass)})
		p.SetPoints([]scene.Point{{X: pos[e.From] + 50, Y: 15}, {X: pos[e.To], Y: 15}})
		root.Append(p)
	}
	s := scene.New(root)
	r.scenes = append(r.scenes, s)
	return s, nil
}

type recorder struct {
	clicks []string
	hovers []string
}

func (r *recorder) handlers() interact.Handlers {
	return interact.Handlers{
		OnNodeClick: func(id string) { r.clicks = append(r.clicks, id) },
		OnNodeHover: func(id string) { r.hovers = append(r.hovers, id) },
	}
}

func newViewer(t *testing.T, r Renderer, h interact.Handlers) *Viewer {
	t.Helper()
	v := New(r, Options{}, h, zaptest.NewLogger(t))
	v.Resize(viewport.Size{W: 400, H: 200})
	return v
}

func opacity(v *Viewer, kind string, id string) string {
	var els []*scene.Element
	if kind == "node" {
		els = v.Catalog().Nodes(id)
	} else {
		els = v.Catalog().Edges(id)
	}
	if len(els) == 0 {
		return "<missing>"
	}
	o, _ := els[0].Attr("opacity")
	return o
}

// pointAt returns the screen position of a content point.
func pointAt(v *Viewer, x, y float64) scene.Point {
	return v.Transform().ToScreen(scene.Pt(x, y))
}

// ── End to end ──

func TestEndToEndClickAndHover(t *testing.T) {
	var rec recorder
	v := newViewer(t, &chainRenderer{}, rec.handlers())
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if v.Status() != StatusReady {
		t.Fatalf("expected ready, got %v", v.Status())
	}

	in := v.Input()
	b := pointAt(v, 125, 15)
	in.Move(b.X, b.Y)
	in.Down(b.X, b.Y)
	in.Up(b.X, b.Y)
	if !reflect.DeepEqual(rec.clicks, []string{"B"}) {
		t.Errorf("expected exactly one click on B, got %v", rec.clicks)
	}

	a := pointAt(v, 25, 15)
	in.Move(a.X, a.Y)
	if v.Hovered() != "A" {
		t.Fatalf("expected A hovered, got %q", v.Hovered())
	}
	for _, id := range []string{"A", "B"} {
		if o := opacity(v, "node", id); o != "1" {
			t.Errorf("%s should be lit, got %q", id, o)
		}
	}
	if o := opacity(v, "node", "C"); o != "0.3" {
		t.Errorf("C should be dimmed, got %q", o)
	}
	if o := opacity(v, "edge", "B_C"); o != "0.3" {
		t.Errorf("edge B→C should be dimmed, got %q", o)
	}
	if o := opacity(v, "edge", "A_B"); o != "1" {
		t.Errorf("edge A→B should be lit, got %q", o)
	}
	if rect := overlay.ShapeOf(v.Catalog().Nodes("A")[0]); rect.AttrOr("stroke", "") != "#2563eb" {
		t.Errorf("hovered node should carry the hover stroke, got %q", rect.AttrOr("stroke", ""))
	}

	in.Leave()
	if v.Hovered() != "" || opacity(v, "node", "C") != "1" {
		t.Error("leaving the surface should clear the highlight")
	}
	if !reflect.DeepEqual(rec.hovers, []string{"B", "", "A", ""}) {
		t.Errorf("unexpected hover sequence %v", rec.hovers)
	}
}

func TestActiveOverridesReview(t *testing.T) {
	v := newViewer(t, &chainRenderer{}, interact.Handlers{})
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	v.SetNodeStates(overlay.StateMap{"B": {NeedsReview: true}})
	rect := overlay.ShapeOf(v.Catalog().Nodes("B")[0])
	if rect.AttrOr("fill", "") != "#fecaca" {
		t.Errorf("expected review fill, got %q", rect.AttrOr("fill", ""))
	}
	v.SetActive("B")
	if rect.AttrOr("fill", "") != "#fde68a" {
		t.Errorf("expected active fill, got %q", rect.AttrOr("fill", ""))
	}
	v.SetActive("")
	if rect.AttrOr("fill", "") != "#fecaca" {
		t.Errorf("expected review fill again, got %q", rect.AttrOr("fill", ""))
	}
}

// ── Generations ──

func TestStaleRenderIsDiscarded(t *testing.T) {
	r := &chainRenderer{}
	v := newViewer(t, r, interact.Handlers{})

	first := v.Load(abc())
	second := abc()
	second.Source = "second"
	second.Nodes = append(second.Nodes, graphmodel.Node{ID: "D"})
	next := v.Load(second)

	if !v.Complete(next.Run(context.Background())) {
		t.Fatal("latest generation should be installed")
	}
	installed := v.Scene()
	if v.Complete(first.Run(context.Background())) {
		t.Error("stale generation should be discarded")
	}
	if v.Scene() != installed || len(v.Catalog().NodeIDs()) != 4 {
		t.Error("stale result replaced the current scene")
	}
	if v.Stats().Stale != 1 {
		t.Errorf("expected 1 stale result, got %d", v.Stats().Stale)
	}
	if r.scenes[1].ListenerCount() != 0 {
		t.Error("discarded scene must not get listeners")
	}
}

func TestRerenderDoesNotLeakListeners(t *testing.T) {
	r := &chainRenderer{}
	var rec recorder
	v := newViewer(t, r, rec.handlers())
	for i := 0; i < 5; i++ {
		if err := v.Render(context.Background(), abc()); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	for i, s := range r.scenes[:len(r.scenes)-1] {
		if n := s.ListenerCount(); n != 0 {
			t.Errorf("scene %d kept %d listeners", i, n)
		}
	}
	cur := r.scenes[len(r.scenes)-1]
	if cur.ListenerCount() != v.Listeners() {
		t.Errorf("expected %d listeners, got %d", v.Listeners(), cur.ListenerCount())
	}

	p := pointAt(v, 25, 15)
	in := v.Input()
	in.Move(p.X, p.Y)
	in.Down(p.X, p.Y)
	in.Up(p.X, p.Y)
	if len(rec.clicks) != 1 {
		t.Errorf("expected one click after re-renders, got %v", rec.clicks)
	}

	v.Close()
	v.Close()
	if cur.ListenerCount() != 0 {
		t.Error("Close should remove listeners")
	}
}

// ── Errors ──

func TestRenderFailureAndRetry(t *testing.T) {
	r := &chainRenderer{fail: errors.New("parse error on line 3")}
	v := newViewer(t, r, interact.Handlers{})

	err := v.Render(context.Background(), abc())
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
	if v.Status() != StatusError || v.Scene() != nil || v.Catalog() != nil || v.Adjacency() != nil {
		t.Error("failed render must not leave a scene behind")
	}
	if v.Viewport().State() != viewport.Uninitialized {
		t.Error("failed render must not establish a transform")
	}

	r.fail = nil
	tk, err := v.Retry()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	v.Complete(tk.Run(context.Background()))
	if v.Status() != StatusReady || v.Err() != nil {
		t.Errorf("retry should recover, status=%v err=%v", v.Status(), v.Err())
	}
}

func TestRetryWithoutDiagram(t *testing.T) {
	v := New(&chainRenderer{}, Options{}, interact.Handlers{}, nil)
	if _, err := v.Retry(); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("expected ErrNoDiagram, got %v", err)
	}
}

func TestEmptySceneIsAFailure(t *testing.T) {
	r := RendererFunc(func(context.Context, graphmodel.Diagram, int) (*scene.Scene, error) {
		return nil, nil
	})
	v := New(r, Options{}, interact.Handlers{}, nil)
	if err := v.Render(context.Background(), abc()); !errors.Is(err, ErrRenderFailed) {
		t.Errorf("expected ErrRenderFailed, got %v", err)
	}
}

func TestSceneWithoutTrackedElementsIsAFailure(t *testing.T) {
	empty := true
	r := RendererFunc(func(ctx context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error) {
		if empty {
			return scene.New(scene.NewElement("svg")), nil
		}
		return (&chainRenderer{}).Render(ctx, d, pass)
	})
	v := newViewer(t, r, interact.Handlers{})

	if err := v.Render(context.Background(), abc()); !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
	if v.Status() != StatusError || v.Scene() != nil || v.Catalog() != nil {
		t.Error("an untracked scene must not be installed")
	}
	if v.Stats().Failures != 1 {
		t.Errorf("expected one failure, got %d", v.Stats().Failures)
	}

	empty = false
	tk, err := v.Retry()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	v.Complete(tk.Run(context.Background()))
	if v.Status() != StatusReady {
		t.Errorf("retry should recover, got %v (%v)", v.Status(), v.Err())
	}
}

// ── Options ──

func TestDimDefaults(t *testing.T) {
	tests := []struct {
		dim  float64
		want string
	}{
		{0, "0.3"},
		{-1, "0.3"},
		{0.5, "0.5"},
	}
	for _, tt := range tests {
		v := New(&chainRenderer{}, Options{Dim: tt.dim}, interact.Handlers{}, zaptest.NewLogger(t))
		v.Resize(viewport.Size{W: 400, H: 200})
		if err := v.Render(context.Background(), abc()); err != nil {
			t.Fatalf("render: %v", err)
		}
		v.SetHovered("A")
		if o := opacity(v, "node", "C"); o != tt.want {
			t.Errorf("dim %v: C should have opacity %s, got %q", tt.dim, tt.want, o)
		}
		v.Close()
	}
}

func TestDriftLoggedOncePerDiagram(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := &chainRenderer{extra: []string{"Z"}}
	v := New(r, Options{}, interact.Handlers{}, zap.New(core))

	d := abc()
	for i := 0; i < 3; i++ {
		if err := v.Render(context.Background(), d); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	// Render() reloads; a retry of the same load must stay quiet.
	tk, _ := v.Retry()
	v.Complete(tk.Run(context.Background()))

	drift := logs.FilterMessage("scene ids do not match diagram")
	if drift.Len() != 3 {
		t.Fatalf("expected one warning per load, got %d", drift.Len())
	}
	fields := drift.All()[0].ContextMap()
	if !reflect.DeepEqual(fields["unknown_nodes"], []interface{}{"Z"}) {
		t.Errorf("unexpected drift fields %v", fields)
	}
}

func TestNoDriftForMatchingScene(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	v := New(&chainRenderer{}, Options{}, interact.Handlers{}, zap.New(core))
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %v", logs.All())
	}
}

// ── Minimal re-runs ──

func TestInputClassesRerunOnlyTheirStage(t *testing.T) {
	v := newViewer(t, &chainRenderer{}, interact.Handlers{})
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	base := v.Stats()

	v.SetNodeStates(overlay.StateMap{"A": {IsMastered: true}})
	v.SetActive("C")
	s := v.Stats()
	if s.Renders != base.Renders || s.Fits != base.Fits || s.Attaches != base.Attaches || s.Highlights != base.Highlights {
		t.Errorf("state changes should only repaint overlays: %+v → %+v", base, s)
	}
	if s.Overlays != base.Overlays+2 {
		t.Errorf("expected 2 overlay passes, got %d", s.Overlays-base.Overlays)
	}

	v.SetHovered("B")
	if v.Stats().Highlights != base.Highlights+1 {
		t.Error("hover should rerun the highlight")
	}

	v.ZoomIn()
	if v.Stats().Overlays != s.Overlays+1 || v.Stats().Fits != base.Fits {
		t.Error("zoom should not repaint or refit")
	}
}

func TestResizeIsCoalesced(t *testing.T) {
	v := newViewer(t, &chainRenderer{}, interact.Handlers{})
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	fits := v.Stats().Fits
	var seqs []uint64
	for _, w := range []float64{500, 600, 700} {
		seqs = append(seqs, v.Resize(viewport.Size{W: w, H: 300}))
	}
	applied := 0
	for _, s := range seqs {
		if v.FlushResize(s) {
			applied++
		}
	}
	if applied != 1 || v.Stats().Fits != fits+1 {
		t.Errorf("expected a single refit, applied=%d fits=%d", applied, v.Stats().Fits-fits)
	}
	if v.Viewport().Size().W != 700 {
		t.Errorf("refit should use the latest size, got %v", v.Viewport().Size())
	}
}

// ── Control surface ──

func TestControlSurface(t *testing.T) {
	v := newViewer(t, &chainRenderer{}, interact.Handlers{})
	if err := v.Render(context.Background(), abc()); err != nil {
		t.Fatalf("render: %v", err)
	}
	fitted := v.Transform()
	if zoomed := v.ZoomIn(); zoomed.Scale <= fitted.Scale {
		t.Errorf("zoom in should grow scale: %v → %v", fitted, zoomed)
	}
	v.ZoomOut()
	v.ZoomOut()
	if got := v.ResetTransform(); got != fitted {
		t.Errorf("reset should restore %v, got %v", fitted, got)
	}
	v.Viewport().PanBy(50, 0)
	if got := v.FitToScreen(); got != fitted {
		t.Errorf("fit should restore %v, got %v", fitted, got)
	}

	if err := v.FocusNode("C"); err != nil {
		t.Fatalf("focus: %v", err)
	}
	c := pointAt(v, 225, 15)
	if math.Abs(c.X-200) > 1e-9 || math.Abs(c.Y-100) > 1e-9 {
		t.Errorf("C should be centered, got %v", c)
	}
	if err := v.FocusNode("nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}
