// Package jsrender is the built-in diagram renderer. Placement runs as a
// script in an embedded JavaScript runtime; the result is emitted as SVG in
// the same id conventions mermaid uses and decoded into a scene.
package jsrender

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/scene"
)

//go:embed layout.js
var defaultScript string

var (
	// ErrScript wraps exceptions thrown by the layout script.
	ErrScript = errors.New("jsrender: layout script failed")
	// ErrLayout is returned when the script's result cannot be used.
	ErrLayout = errors.New("jsrender: invalid layout")
)

const (
	// CharWidth is the label width per rune reported to the script.
	CharWidth = 8.0
	fontSize  = 14
)

// Options configures a Renderer.
type Options struct {
	// Script replaces the embedded layout script. It must define a global
	// layout(graph) function.
	Script string
	// ScriptName is used in error positions.
	ScriptName string
}

// Renderer lays out diagrams with a script and emits SVG scenes.
type Renderer struct {
	script string
	name   string
	log    *zap.Logger
}

// New returns a renderer. A nil log discards script output.
func New(opts Options, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{script: opts.Script, name: opts.ScriptName, log: log}
	if r.script == "" {
		r.script = defaultScript
		r.name = "layout.js"
	}
	if r.name == "" {
		r.name = "layout"
	}
	return r
}

// NewFromFile loads a layout script from path.
func NewFromFile(path string, log *zap.Logger) (*Renderer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout script: %w", err)
	}
	return New(Options{Script: string(b), ScriptName: path}, log), nil
}

// DefaultScript returns the embedded layout script.
func DefaultScript() string { return defaultScript }

// ── Layout ──

type graphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type graphEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

type graphInput struct {
	Direction string      `json:"direction"`
	Nodes     []graphNode `json:"nodes"`
	Edges     []graphEdge `json:"edges"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlacedNode is a node box in content coordinates.
type PlacedNode struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// PlacedEdge is an edge polyline with its label anchor.
type PlacedEdge struct {
	ID     string  `json:"id"`
	Points []point `json:"points"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
}

// Layout is the script's result.
type Layout struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Nodes  []PlacedNode `json:"nodes"`
	Edges  []PlacedEdge `json:"edges"`
}

// Layout runs the script on d. The runtime is created per call and
// interrupted when ctx is done.
func (r *Renderer) Layout(ctx context.Context, d graphmodel.Diagram) (Layout, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	vm.Set("measure", func(call goja.FunctionCall) goja.Value {
		s := ""
		if len(call.Arguments) > 0 {
			s = call.Arguments[0].String()
		}
		return vm.ToValue(float64(utf8.RuneCountInString(s)) * CharWidth)
	})
	vm.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		r.log.Debug("layout script", zap.String("output", strings.Join(parts, " ")))
		return goja.Undefined()
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	var out Layout
	if _, err := vm.RunScript(r.name, r.script); err != nil {
		return out, r.scriptErr(ctx, err)
	}
	fn, ok := goja.AssertFunction(vm.Get("layout"))
	if !ok {
		return out, fmt.Errorf("%w: script does not define layout()", ErrLayout)
	}
	res, err := fn(goja.Undefined(), vm.ToValue(input(d)))
	if err != nil {
		return out, r.scriptErr(ctx, err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return out, fmt.Errorf("%w: layout() returned nothing", ErrLayout)
	}
	if err := vm.ExportTo(res, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrLayout, err)
	}
	return out, check(out, d)
}

func (r *Renderer) scriptErr(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && ctx.Err() != nil {
		return fmt.Errorf("layout interrupted: %w", ctx.Err())
	}
	return fmt.Errorf("%w: %v", ErrScript, err)
}

func input(d graphmodel.Diagram) graphInput {
	in := graphInput{Direction: d.Direction}
	for _, n := range d.Nodes {
		in.Nodes = append(in.Nodes, graphNode{ID: n.ID, Label: n.Label()})
	}
	for _, e := range d.Edges {
		in.Edges = append(in.Edges, graphEdge{ID: e.ID, From: e.From, To: e.To, Label: e.Relationship})
	}
	return in
}

// check rejects layouts that lost a node or carry unusable numbers.
func check(l Layout, d graphmodel.Diagram) error {
	placed := make(map[string]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		r := scene.Rect{X: n.X, Y: n.Y, W: n.W, H: n.H}
		if !r.Finite() || r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("%w: node %q has box %v", ErrLayout, n.ID, r)
		}
		placed[n.ID] = true
	}
	for _, n := range d.Nodes {
		if !placed[n.ID] {
			return fmt.Errorf("%w: node %q was not placed", ErrLayout, n.ID)
		}
	}
	for _, e := range l.Edges {
		for _, p := range e.Points {
			if !scene.Pt(p.X, p.Y).Finite() {
				return fmt.Errorf("%w: edge %q has a non-finite point", ErrLayout, e.ID)
			}
		}
	}
	return nil
}

// ── SVG ──

// RenderSVG lays out d and returns SVG markup. Element ids carry pass as a
// suffix, so markup from different passes never shares ids.
func (r *Renderer) RenderSVG(ctx context.Context, d graphmodel.Diagram, pass int) ([]byte, error) {
	l, err := r.Layout(ctx, d)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="conceptmap" viewBox="0 0 %s %s" width="%s" height="%s">`,
		f(l.Width), f(l.Height), f(l.Width), f(l.Height))
	b.WriteByte('\n')
	if d.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", esc(d.Title))
	}

	b.WriteString(`<g class="edges">` + "\n")
	occurrence := map[[2]string]int{}
	for _, pe := range l.Edges {
		e, ok := d.Edge(pe.ID)
		if !ok || len(pe.Points) < 2 {
			continue
		}
		key := [2]string{e.From, e.To}
		k := occurrence[key]
		occurrence[key]++
		// The group is the tracked element, so the label dims with its path.
		fmt.Fprintf(&b, `<g class="edge edge-%s" data-edge-id="%s">`, esc(e.ID), esc(e.ID))
		b.WriteByte('\n')
		fmt.Fprintf(&b, `<path id="L-%s-%s-%d-%d" class="flowchart-link" fill="none" stroke="#64748b" stroke-width="1.5" d="%s"/>`,
			esc(e.From), esc(e.To), k, pass, pathData(pe.Points))
		b.WriteByte('\n')
		if e.Relationship != "" {
			fmt.Fprintf(&b, `<text class="edgeLabel" pointer-events="none" x="%s" y="%s" text-anchor="middle" font-size="12">%s</text>`,
				f(pe.LabelX), f(pe.LabelY-4), esc(e.Relationship))
			b.WriteByte('\n')
		}
		b.WriteString("</g>\n")
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="nodes">` + "\n")
	for _, pn := range l.Nodes {
		n, ok := d.Node(pn.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `<g id="flowchart-%s-%d" class="node default">`, esc(n.ID), pass)
		b.WriteByte('\n')
		if n.Description != "" {
			fmt.Fprintf(&b, "<title>%s</title>\n", esc(n.Description))
		}
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="#ffffff" stroke="#334155" stroke-width="1"/>`,
			f(pn.X), f(pn.Y), f(pn.W), f(pn.H))
		b.WriteByte('\n')
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="%d">%s</text>`,
			f(pn.X+pn.W/2), f(pn.Y+pn.H/2+fontSize/3), fontSize, esc(n.Label()))
		b.WriteString("\n</g>\n")
	}
	b.WriteString("</g>\n</svg>\n")
	return b.Bytes(), nil
}

// Render implements the viewer's renderer contract.
func (r *Renderer) Render(ctx context.Context, d graphmodel.Diagram, pass int) (*scene.Scene, error) {
	markup, err := r.RenderSVG(ctx, d, pass)
	if err != nil {
		return nil, err
	}
	return scene.DecodeSVG(bytes.NewReader(markup))
}

func pathData(pts []point) string {
	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(f(p.X))
		b.WriteByte(' ')
		b.WriteString(f(p.Y))
	}
	return b.String()
}

func f(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
