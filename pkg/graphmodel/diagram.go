// Package graphmodel holds the concept-map data model: nodes, directed
// relationship edges, the symmetric adjacency index derived from them, and
// the diagram file formats the viewer loads.
package graphmodel

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyID is returned for nodes or edges without an identifier.
	ErrEmptyID = errors.New("graphmodel: empty id")
	// ErrDuplicateID is returned when two nodes or two edges share an id.
	ErrDuplicateID = errors.New("graphmodel: duplicate id")
	// ErrDanglingEdge is returned for edges whose endpoints are not declared.
	ErrDanglingEdge = errors.New("graphmodel: edge endpoint not declared")
	// ErrSyntax is returned by the flowchart parser.
	ErrSyntax = errors.New("graphmodel: syntax error")
)

// Node is a concept in the map.
type Node struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Label returns the title, falling back to the id.
func (n Node) Label() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// Edge is a directed relationship between two concepts.
type Edge struct {
	ID           string `yaml:"id,omitempty"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	Relationship string `yaml:"relationship,omitempty"`
}

// Diagram is the renderer input: nodes and edges in declaration order.
type Diagram struct {
	Title     string `yaml:"title,omitempty"`
	Direction string `yaml:"direction,omitempty"` // TD, TB, BT, LR or RL
	Nodes     []Node `yaml:"nodes"`
	Edges     []Edge `yaml:"edges"`

	// Source names where the diagram came from (file path, "-" for stdin).
	Source string `yaml:"-"`
}

// Node looks up a node by id.
func (d *Diagram) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge looks up an edge by id.
func (d *Diagram) Edge(id string) (Edge, bool) {
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// NodeIDs returns node ids in declaration order.
func (d *Diagram) NodeIDs() []string {
	ids := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Normalize assigns ids to edges that lack one. Generated ids are
// "<from>_<to>", suffixed with "_2", "_3", ... for parallel edges, and never
// collide with explicit ids.
func (d *Diagram) Normalize() {
	taken := make(map[string]bool, len(d.Edges))
	for _, e := range d.Edges {
		if e.ID != "" {
			taken[e.ID] = true
		}
	}
	for i := range d.Edges {
		e := &d.Edges[i]
		if e.ID != "" {
			continue
		}
		base := e.From + "_" + e.To
		id := base
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		e.ID = id
		taken[id] = true
	}
	if d.Direction == "" {
		d.Direction = "TD"
	}
}

// Validate checks ids are present and unique and that every edge endpoint
// is a declared node.
func (d *Diagram) Validate() error {
	nodes := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node #%d", ErrEmptyID, i)
		}
		if nodes[n.ID] {
			return fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}
		nodes[n.ID] = true
	}
	edges := make(map[string]bool, len(d.Edges))
	for i, e := range d.Edges {
		if e.ID == "" {
			return fmt.Errorf("%w: edge #%d", ErrEmptyID, i)
		}
		if edges[e.ID] {
			return fmt.Errorf("%w: edge %q", ErrDuplicateID, e.ID)
		}
		edges[e.ID] = true
		if !nodes[e.From] {
			return fmt.Errorf("%w: edge %q from %q", ErrDanglingEdge, e.ID, e.From)
		}
		if !nodes[e.To] {
			return fmt.Errorf("%w: edge %q to %q", ErrDanglingEdge, e.ID, e.To)
		}
	}
	switch d.Direction {
	case "", "TD", "TB", "BT", "LR", "RL":
	default:
		return fmt.Errorf("%w: direction %q", ErrSyntax, d.Direction)
	}
	return nil
}
