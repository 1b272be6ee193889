// Package d2render renders diagrams with the external d2 CLI and tags the
// resulting SVG with the host's node and edge ids.
//
// d2 marks every shape and connection group with a class token holding
// the base64 of its d2 id. Nodes are emitted under positional keys
// (n0, n1, ...) so that mapping back never depends on d2's quoting rules.
package d2render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/scene"
)

var (
	// ErrNotInstalled is returned when the d2 binary cannot be found.
	ErrNotInstalled = errors.New("d2render: d2 CLI not found in PATH")
	// ErrFailed wraps a non-zero d2 exit.
	ErrFailed = errors.New("d2render: d2 failed")
)

// Options configures the d2 invocation.
type Options struct {
	Binary  string `toml:"binary"`
	Layout  string `toml:"layout"`
	ThemeID int    `toml:"theme_id"`
	Pad     int    `toml:"pad"`
}

// DefaultOptions runs "d2" with its default layout engine.
func DefaultOptions() Options {
	return Options{Binary: "d2", Pad: 20}
}

// Renderer shells out to d2.
type Renderer struct {
	opts Options
	log  *zap.Logger
}

// New returns a renderer.
func New(opts Options, log *zap.Logger) *Renderer {
	if opts.Binary == "" {
		opts.Binary = "d2"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{opts: opts, log: log}
}

// Available reports whether the d2 binary can be found.
func (r *Renderer) Available() error {
	if _, err := exec.LookPath(r.opts.Binary); err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, r.opts.Binary)
	}
	return nil
}

// ── Source ──

var directions = map[string]string{
	"":   "down",
	"TD": "down",
	"TB": "down",
	"BT": "up",
	"LR": "right",
	"RL": "left",
}

// NodeKey is the d2 key used for the i-th node.
func NodeKey(i int) string { return "n" + strconv.Itoa(i) }

// Source returns the d2 text for d.
func Source(d graphmodel.Diagram) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "direction: %s\n", directions[d.Direction])
	if d.Title != "" {
		fmt.Fprintf(&sb, "title: %s {\n  near: top-center\n  shape: text\n}\n", quote(d.Title))
	}

	keys := make(map[string]string, len(d.Nodes))
	sb.WriteString("\n")
	for i, n := range d.Nodes {
		k := NodeKey(i)
		keys[n.ID] = k
		fmt.Fprintf(&sb, "%s: %s", k, quote(n.Label()))
		if n.Description != "" {
			fmt.Fprintf(&sb, " {tooltip: %s}", quote(n.Description))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	for _, e := range d.Edges {
		from, ok1 := keys[e.From]
		to, ok2 := keys[e.To]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&sb, "%s -> %s", from, to)
		if e.Relationship != "" {
			fmt.Fprintf(&sb, ": %s", quote(e.Relationship))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// ── Render ──

// SVG runs d2 on d and returns its raw output.
func (r *Renderer) SVG(ctx context.Context, d graphmodel.Diagram) ([]byte, error) {
	bin, err := exec.LookPath(r.opts.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, r.opts.Binary)
	}

	dir, err := os.MkdirTemp("", "conceptmap-d2-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.d2")
	out := filepath.Join(dir, "output.svg")
	if err := os.WriteFile(in, []byte(Source(d)), 0o644); err != nil {
		return nil, fmt.Errorf("write d2 source: %w", err)
	}

	args := []string{in, out}
	if r.opts.ThemeID > 0 {
		args = append(args, "--theme", strconv.Itoa(r.opts.ThemeID))
	}
	if r.opts.Layout != "" {
		args = append(args, "--layout", r.opts.Layout)
	}
	if r.opts.Pad > 0 {
		args = append(args, "--pad", strconv.Itoa(r.opts.Pad))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	r.log.Debug("running d2", zap.String("bin", bin), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("d2 interrupted: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrFailed, msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read d2 output: %w", err)
	}
	return b, nil
}

// Render implements the viewer's renderer contract. pass is not needed:
// d2 ids are stable and the stamped attributes are what the resolver uses.
func (r *Renderer) Render(ctx context.Context, d graphmodel.Diagram, _ int) (*scene.Scene, error) {
	b, err := r.SVG(ctx, d)
	if err != nil {
		return nil, err
	}
	s, err := scene.DecodeSVG(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	nodes, edges := Stamp(s, d)
	r.log.Debug("stamped d2 output", zap.Int("nodes", nodes), zap.Int("edges", edges))
	return s, nil
}

// ── Stamping ──

var (
	nodeKeyRe = regexp2.MustCompile(`^n(?<i>\d+)$`, regexp2.None)
	edgeKeyRe = regexp2.MustCompile(`^\((?<from>n\d+) -> (?<to>n\d+)\)\[(?<k>\d+)\]$`, regexp2.None)
)

// Stamp sets data-node-id and data-edge-id on the groups d2 emitted for
// d's nodes and edges, returning how many of each it tagged.
func Stamp(s *scene.Scene, d graphmodel.Diagram) (nodes, edges int) {
	if s == nil {
		return 0, 0
	}
	matcher := graphmodel.NewEdgeMatcher(d.Edges)
	nodeAt := func(key string) (string, bool) {
		m, _ := nodeKeyRe.FindStringMatch(key)
		if m == nil {
			return "", false
		}
		i, err := strconv.Atoi(m.GroupByName("i").String())
		if err != nil || i >= len(d.Nodes) {
			return "", false
		}
		return d.Nodes[i].ID, true
	}

	s.Walk(func(el *scene.Element) bool {
		for _, key := range d2Keys(el) {
			if id, ok := nodeAt(key); ok {
				el.SetAttr("data-node-id", id)
				nodes++
				return true
			}
			m, _ := edgeKeyRe.FindStringMatch(key)
			if m == nil {
				continue
			}
			from, ok1 := nodeAt(m.GroupByName("from").String())
			to, ok2 := nodeAt(m.GroupByName("to").String())
			k, err := strconv.Atoi(m.GroupByName("k").String())
			if !ok1 || !ok2 || err != nil {
				continue
			}
			if id, ok := matcher.Match(from, to, k); ok {
				el.SetAttr("data-edge-id", id)
				edges++
				return true
			}
		}
		return true
	})
	return nodes, edges
}

// d2Keys returns the d2 ids an element carries: its id attribute and every
// class token that decodes as base64 text.
func d2Keys(el *scene.Element) []string {
	var keys []string
	if id := el.ID(); id != "" {
		keys = append(keys, id)
	}
	for _, c := range el.Classes() {
		b, err := base64.StdEncoding.DecodeString(c)
		if err != nil || len(b) == 0 || !utf8.Valid(b) {
			continue
		}
		keys = append(keys, string(b))
	}
	return keys
}
