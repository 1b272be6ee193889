package d2render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
)

func sample() graphmodel.Diagram {
	d := graphmodel.Diagram{
		Title:     "Plants",
		Direction: "LR",
		Nodes: []graphmodel.Node{
			{ID: "photo", Title: `Photo "synthesis"`},
			{ID: "glucose", Description: "a sugar"},
		},
		Edges: []graphmodel.Edge{
			{From: "photo", To: "glucose", Relationship: "produces"},
			{From: "photo", To: "glucose"},
		},
	}
	d.Normalize()
	return d
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// d2Output mimics the structure d2 emits: nested svg roots, shape and
// connection groups named by base64 class tokens.
func d2Output() string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 400 100">
<svg class="d2-1234 d2-svg" viewBox="0 0 400 100">
<g class="%s"><g class="shape"><rect x="10" y="10" width="100" height="40" fill="#F7F8FE"/></g><text x="60" y="35" class="text-bold">Photo</text></g>
<g class="%s"><g class="shape"><rect x="290" y="10" width="100" height="40" fill="#F7F8FE"/></g></g>
<g class="%s"><path d="M 110 25 L 290 25" fill="none" class="connection"/></g>
<g class="%s"><path d="M 110 40 C 150 60 250 60 290 40" fill="none" class="connection"/></g>
<g class="text shape"><rect x="0" y="0" width="1" height="1"/></g>
</svg>
</svg>`, b64("n0"), b64("n1"), b64("(n0 -> n1)[0]"), b64("(n0 -> n1)[1]"))
}

// ── Source ──

func TestSource(t *testing.T) {
	src := Source(sample())
	for _, want := range []string{
		"direction: right\n",
		`title: "Plants" {`,
		`n0: "Photo \"synthesis\""`,
		`n1: "glucose" {tooltip: "a sugar"}`,
		`n0 -> n1: "produces"`,
		"n0 -> n1\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}
}

func TestSourceSkipsDanglingEdges(t *testing.T) {
	d := graphmodel.Diagram{
		Nodes: []graphmodel.Node{{ID: "a"}},
		Edges: []graphmodel.Edge{{ID: "x", From: "a", To: "ghost"}},
	}
	if src := Source(d); strings.Contains(src, "->") {
		t.Errorf("dangling edge was emitted:\n%s", src)
	}
	if !strings.HasPrefix(Source(d), "direction: down\n") {
		t.Error("empty direction should map to down")
	}
}

// ── Stamping ──

func TestStamp(t *testing.T) {
	s, err := scene.DecodeSVG(strings.NewReader(d2Output()))
	if err != nil {
		t.Fatal(err)
	}
	d := sample()
	nodes, edges := Stamp(s, d)
	if nodes != 2 || edges != 2 {
		t.Fatalf("expected 2 nodes and 2 edges stamped, got %d/%d", nodes, edges)
	}

	cat := sceneid.Default().Catalog(s)
	drift := cat.Drift(d.NodeIDs(), []string{"photo_glucose", "photo_glucose_2"})
	if !drift.Empty() {
		t.Errorf("stamped scene drifted: %+v", drift)
	}
	if len(cat.Edges("photo_glucose_2")) != 1 {
		t.Error("second parallel edge should map to its own id")
	}
}

func TestStampIgnoresForeignKeys(t *testing.T) {
	svg := fmt.Sprintf(`<svg><g class="%s"/><g class="%s"/><g class="%s"/></svg>`,
		b64("n9"), b64("(n0 -> n1)[5]"), b64("legend"))
	s, err := scene.DecodeSVG(strings.NewReader(svg))
	if err != nil {
		t.Fatal(err)
	}
	if n, e := Stamp(s, sample()); n != 0 || e != 0 {
		t.Errorf("nothing should be stamped, got %d/%d", n, e)
	}
	if n, e := Stamp(nil, sample()); n != 0 || e != 0 {
		t.Error("nil scene should stamp nothing")
	}
}

// ── Invocation ──

func TestMissingBinary(t *testing.T) {
	r := New(Options{Binary: "conceptmap-no-such-d2"}, nil)
	if err := r.Available(); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("expected ErrNotInstalled, got %v", err)
	}
	if _, err := r.Render(context.Background(), sample(), 1); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("expected ErrNotInstalled, got %v", err)
	}
}

// fakeD2 writes a shell script standing in for d2.
func fakeD2(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "d2")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderThroughCLI(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "out.svg")
	if err := os.WriteFile(fixture, []byte(d2Output()), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := fakeD2(t, fmt.Sprintf(`grep -q "n0 -> n1" "$1" || exit 3
cp %q "$2"`, fixture))

	s, err := New(Options{Binary: bin, Layout: "elk", ThemeID: 3}, nil).Render(context.Background(), sample(), 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if ids := sceneid.Default().Catalog(s).NodeIDs(); len(ids) != 2 {
		t.Errorf("expected 2 resolved nodes, got %v", ids)
	}
}

func TestRenderReportsStderr(t *testing.T) {
	bin := fakeD2(t, `echo "err: line 3: unexpected token" >&2; exit 1`)
	_, err := New(Options{Binary: bin}, nil).Render(context.Background(), sample(), 1)
	if !errors.Is(err, ErrFailed) || !strings.Contains(err.Error(), "unexpected token") {
		t.Errorf("expected d2's message, got %v", err)
	}
}
