package interact

import (
	"math"
	"reflect"
	"testing"

	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
	"github.com/wesen/conceptmap/pkg/viewport"
)

// recorder collects callbacks.
type recorder struct {
	clicks     []string
	hovers     []string
	edgeClicks []string
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnNodeClick: func(id string) { r.clicks = append(r.clicks, id) },
		OnNodeHover: func(id string) { r.hovers = append(r.hovers, id) },
		OnEdgeClick: func(id string) { r.edgeClicks = append(r.edgeClicks, id) },
	}
}

// chainScene lays out A, B, C left to right (50×30 boxes, 100 apart) with
// edges A_B and B_C between them.
func chainScene() *scene.Scene {
	root := scene.NewElement("svg")
	for i, id := range []string{"A", "B", "C"} {
		g := scene.NewElement("g", scene.Attr{Name: "class", Value: "node node-" + id})
		r := scene.NewElement("rect")
		r.SetGeometry(scene.Rect{X: float64(i * 100), Y: 0, W: 50, H: 30})
		g.Append(r)
		root.Append(g)
	}
	for i, id := range []string{"A_B", "B_C"} {
		p := scene.NewElement("path", scene.Attr{Name: "data-edge-id", Value: id})
		x := float64(i*100 + 50)
		p.SetPoints([]scene.Point{{X: x, Y: 15}, {X: x + 50, Y: 15}})
		root.Append(p)
	}
	return scene.New(root)
}

func setup(t *testing.T) (*scene.Scene, *sceneid.Catalog, *viewport.Controller, *scene.Input) {
	t.Helper()
	s := chainScene()
	cat := sceneid.Default().Catalog(s)
	vp := viewport.New(viewport.DefaultOptions())
	return s, cat, vp, scene.NewInput(s, vp.ToContent)
}

func click(in *scene.Input, x, y float64) {
	in.Move(x, y)
	in.Down(x, y)
	in.Up(x, y)
}

// ── Callbacks ──

func TestClickNodeOnce(t *testing.T) {
	_, cat, vp, in := setup(t)
	var rec recorder
	a := Attach(cat, rec.handlers(), Options{Viewport: vp})
	defer a.Cleanup()

	click(in, 125, 15)
	if !reflect.DeepEqual(rec.clicks, []string{"B"}) {
		t.Errorf("expected one click on B, got %v", rec.clicks)
	}
}

func TestClickEdge(t *testing.T) {
	_, cat, vp, in := setup(t)
	var rec recorder
	a := Attach(cat, rec.handlers(), Options{Viewport: vp})
	defer a.Cleanup()

	click(in, 175, 16)
	if !reflect.DeepEqual(rec.edgeClicks, []string{"B_C"}) || len(rec.clicks) != 0 {
		t.Errorf("expected edge click B_C, got edges=%v nodes=%v", rec.edgeClicks, rec.clicks)
	}
}

func TestHoverEnterLeave(t *testing.T) {
	_, cat, vp, in := setup(t)
	var rec recorder
	a := Attach(cat, rec.handlers(), Options{Viewport: vp})
	defer a.Cleanup()

	in.Move(10, 10)
	in.Move(20, 20)
	in.Move(110, 10)
	in.Move(80, 80)
	want := []string{"A", "", "B", ""}
	if !reflect.DeepEqual(rec.hovers, want) {
		t.Errorf("expected %v, got %v", want, rec.hovers)
	}
}

func TestNilHandlersAreSkipped(t *testing.T) {
	_, cat, vp, in := setup(t)
	a := Attach(cat, Handlers{}, Options{Viewport: vp})
	defer a.Cleanup()
	click(in, 10, 10)
	click(in, 75, 15)
}

// ── Lifecycle ──

func TestCleanupIdempotent(t *testing.T) {
	s, cat, vp, _ := setup(t)
	a := Attach(cat, Handlers{}, Options{Viewport: vp})
	if a.Len() == 0 || s.ListenerCount() != a.Len() {
		t.Fatalf("expected %d listeners on the scene, got %d", a.Len(), s.ListenerCount())
	}
	a.Cleanup()
	a.Cleanup()
	if s.ListenerCount() != 0 || a.Len() != 0 || !a.Closed() {
		t.Errorf("cleanup should remove everything, %d left", s.ListenerCount())
	}
	var nilAttachment *Attachment
	nilAttachment.Cleanup()
}

func TestReattachDoesNotAccumulate(t *testing.T) {
	s, cat, vp, in := setup(t)
	var rec recorder
	var a *Attachment
	for i := 0; i < 5; i++ {
		a.Cleanup()
		a = Attach(cat, rec.handlers(), Options{Viewport: vp})
	}
	defer a.Cleanup()
	if s.ListenerCount() != a.Len() {
		t.Errorf("expected %d listeners, got %d", a.Len(), s.ListenerCount())
	}
	click(in, 10, 10)
	if len(rec.clicks) != 1 {
		t.Errorf("expected exactly one click, got %v", rec.clicks)
	}
}

func TestAttachEmptyCatalog(t *testing.T) {
	a := Attach(nil, Handlers{}, Options{})
	if a.Len() != 0 {
		t.Error("nil catalog should bind nothing")
	}
	a.Cleanup()
}

// ── Gestures ──

func TestBackgroundDragPans(t *testing.T) {
	_, cat, vp, in := setup(t)
	var changes int
	a := Attach(cat, Handlers{}, Options{Viewport: vp, OnViewportChange: func(viewport.Transform) { changes++ }})
	defer a.Cleanup()

	in.Down(70, 80)
	in.Move(71, 80) // inside the dead zone
	if vp.State() == viewport.UserAdjusted {
		t.Fatal("movement inside the dead zone should not pan")
	}
	in.Move(90, 100)
	in.Move(100, 90)
	in.Up(100, 90)
	tr := vp.Transform()
	if tr.TranslateX != 30 || tr.TranslateY != 10 {
		t.Errorf("expected translate (30,10), got %v", tr)
	}
	if changes != 2 {
		t.Errorf("expected 2 viewport notifications, got %d", changes)
	}
}

func TestDragFromNodeDoesNotPan(t *testing.T) {
	_, cat, vp, in := setup(t)
	a := Attach(cat, Handlers{}, Options{Viewport: vp})
	defer a.Cleanup()

	in.Down(10, 10)
	in.Move(60, 60)
	in.Up(60, 60)
	if vp.Transform() != viewport.Identity() {
		t.Errorf("drag starting on a node must not pan, got %v", vp.Transform())
	}
}

func TestPanSuppressesHoverAndClick(t *testing.T) {
	_, cat, vp, in := setup(t)
	var rec recorder
	a := Attach(cat, rec.handlers(), Options{Viewport: vp})
	defer a.Cleanup()

	in.Down(70, 80)
	in.Move(70, 60) // pan starts, translate (0,-20)
	if !a.Panning() {
		t.Fatal("expected pan in progress")
	}
	// Content under (10,5) is (10,25), inside A.
	in.Move(10, 5)
	if len(rec.hovers) != 0 {
		t.Errorf("hover should be held back while panning, got %v", rec.hovers)
	}
	in.Up(10, 5)
	if len(rec.clicks) != 0 {
		t.Errorf("release after a pan must not click, got %v", rec.clicks)
	}

	// A click synthesised by the host right after the pan is dropped.
	scene.Dispatch(&scene.Event{Type: scene.EventClick, Target: cat.Nodes("A")[0]})
	if len(rec.clicks) != 0 {
		t.Errorf("click after pan should be suppressed, got %v", rec.clicks)
	}

	p := vp.Transform().ToScreen(scene.Pt(25, 15))
	click(in, p.X, p.Y)
	if !reflect.DeepEqual(rec.clicks, []string{"A"}) {
		t.Errorf("the next genuine click should go through, got %v", rec.clicks)
	}
	if !reflect.DeepEqual(rec.hovers, []string{"A"}) {
		t.Errorf("expected hover on A after the pan, got %v", rec.hovers)
	}
}

func TestWheelZoomsAtPointer(t *testing.T) {
	_, cat, vp, in := setup(t)
	a := Attach(cat, Handlers{}, Options{Viewport: vp})
	defer a.Cleanup()

	before := vp.ToContent(40, 40)
	in.Wheel(40, 40, -100)
	after := vp.ToContent(40, 40)
	if vp.Transform().Scale <= 1 {
		t.Errorf("scrolling up should zoom in, scale=%v", vp.Transform().Scale)
	}
	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Errorf("pointer anchor drifted: %v → %v", before, after)
	}
}

func TestNoViewportNoGestures(t *testing.T) {
	s, cat, _, _ := setup(t)
	a := Attach(cat, Handlers{}, Options{})
	defer a.Cleanup()
	if s.Root.ListenerCount(scene.EventWheel) != 0 {
		t.Error("wheel listener should not be bound without a viewport")
	}
	in := scene.NewInput(s, nil)
	in.Down(70, 80)
	in.Move(170, 180)
	in.Up(170, 180)
}
