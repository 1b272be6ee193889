// Package sceneid maps rendered scene elements back to host node and edge
// ids. Renderers tag their output in different ways, so resolution tries a
// fixed chain of strategies: an explicit data attribute, then a class token
// in a known family (node-<id>, edge-<id>), then the element id with the
// renderer's suffixes stripped.
package sceneid

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/wesen/conceptmap/pkg/scene"
)

// ErrAmbiguous reports an element carrying more than one candidate id under
// a single strategy. Resolution still yields the first candidate.
var ErrAmbiguous = errors.New("sceneid: element carries conflicting ids")

// Strategy is the rule that produced an id.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDataAttr
	StrategyClass
	StrategyElementID
)

func (s Strategy) String() string {
	switch s {
	case StrategyDataAttr:
		return "data-attr"
	case StrategyClass:
		return "class"
	case StrategyElementID:
		return "element-id"
	default:
		return "none"
	}
}

// Kind distinguishes node and edge elements.
type Kind int

const (
	KindNode Kind = iota
	KindEdge
)

func (k Kind) String() string {
	if k == KindEdge {
		return "edge"
	}
	return "node"
}

// Convention describes how one renderer tags elements of one kind.
type Convention struct {
	// DataAttrs are checked in order; the first non-empty value wins.
	DataAttrs []string `toml:"data_attrs" yaml:"data_attrs"`
	// ClassPrefix marks class tokens carrying the id, e.g. "node-".
	ClassPrefix string `toml:"class_prefix" yaml:"class_prefix"`
	// IDPatterns are regular expressions over the element id with a named
	// group "id", e.g. `^flowchart-(?<id>.+)-\d+$`.
	IDPatterns []string `toml:"id_patterns" yaml:"id_patterns"`
}

// DefaultNodeConvention covers data-node-id, node-<id> class tokens and
// mermaid-style "flowchart-<id>-<n>" element ids. A generic data-id is left
// out: nodes are resolved before edges, so it would claim edges too.
func DefaultNodeConvention() Convention {
	return Convention{
		DataAttrs:   []string{"data-node-id"},
		ClassPrefix: "node-",
		IDPatterns: []string{
			`^flowchart-(?<id>.+)-\d+$`,
			`^node-(?<id>.+?)(?:-\d+)*$`,
		},
	}
}

// DefaultEdgeConvention covers data-edge-id, edge-<id> class tokens and
// "edge-<id>-<n>" element ids.
func DefaultEdgeConvention() Convention {
	return Convention{
		DataAttrs:   []string{"data-edge-id"},
		ClassPrefix: "edge-",
		IDPatterns:  []string{`^edge-(?<id>.+?)(?:-\d+)*$`},
	}
}

// Match is a resolved id.
type Match struct {
	ID       string
	Strategy Strategy
	// Others lists further candidates found by the same strategy.
	Others []string
}

type compiled struct {
	conv     Convention
	patterns []*regexp2.Regexp
}

func compile(kind Kind, c Convention) (compiled, error) {
	out := compiled{conv: c}
	for _, p := range c.IDPatterns {
		re, err := regexp2.Compile(p, regexp2.None)
		if err != nil {
			return compiled{}, fmt.Errorf("%s id pattern %q: %w", kind, p, err)
		}
		if re.GroupNumberFromName("id") < 0 {
			return compiled{}, fmt.Errorf("%s id pattern %q: missing (?<id>...) group", kind, p)
		}
		re.MatchTimeout = 50 * time.Millisecond
		out.patterns = append(out.patterns, re)
	}
	return out, nil
}

// Resolver resolves node and edge ids for scene elements.
type Resolver struct {
	node compiled
	edge compiled
}

// New builds a resolver from node and edge conventions.
func New(node, edge Convention) (*Resolver, error) {
	n, err := compile(KindNode, node)
	if err != nil {
		return nil, err
	}
	e, err := compile(KindEdge, edge)
	if err != nil {
		return nil, err
	}
	return &Resolver{node: n, edge: e}, nil
}

// Default returns a resolver using the default conventions.
func Default() *Resolver {
	r, err := New(DefaultNodeConvention(), DefaultEdgeConvention())
	if err != nil {
		panic(err)
	}
	return r
}

// NodeID returns the node id el represents, if any.
func (r *Resolver) NodeID(el *scene.Element) (string, bool) {
	m, _ := r.Resolve(el, KindNode)
	return m.ID, m.Strategy != StrategyNone
}

// EdgeID returns the edge id el represents, if any.
func (r *Resolver) EdgeID(el *scene.Element) (string, bool) {
	m, _ := r.Resolve(el, KindEdge)
	return m.ID, m.Strategy != StrategyNone
}

// Resolve applies the strategy chain for kind. The error is ErrAmbiguous when
// the winning strategy saw more than one distinct candidate; the match is
// still usable.
func (r *Resolver) Resolve(el *scene.Element, kind Kind) (Match, error) {
	if el == nil {
		return Match{}, nil
	}
	c := r.node
	if kind == KindEdge {
		c = r.edge
	}

	for _, name := range c.conv.DataAttrs {
		if v := strings.TrimSpace(el.AttrOr(name, "")); v != "" {
			return Match{ID: v, Strategy: StrategyDataAttr}, nil
		}
	}

	if prefix := c.conv.ClassPrefix; prefix != "" {
		var ids []string
		for _, tok := range el.Classes() {
			if len(tok) > len(prefix) && strings.HasPrefix(tok, prefix) && !contains(ids, tok[len(prefix):]) {
				ids = append(ids, tok[len(prefix):])
			}
		}
		if len(ids) > 0 {
			m := Match{ID: ids[0], Strategy: StrategyClass, Others: ids[1:]}
			if len(ids) > 1 {
				return m, fmt.Errorf("%w: %s classes %v", ErrAmbiguous, kind, ids)
			}
			return m, nil
		}
	}

	if id := el.ID(); id != "" {
		for _, re := range c.patterns {
			m, err := re.FindStringMatch(id)
			if err != nil || m == nil {
				continue
			}
			if v := m.GroupByName("id").String(); v != "" {
				return Match{ID: v, Strategy: StrategyElementID}, nil
			}
		}
	}
	return Match{}, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
