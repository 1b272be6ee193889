package sceneid

import "github.com/wesen/conceptmap/pkg/scene"

// Ref names the host entity an element belongs to.
type Ref struct {
	Kind Kind
	ID   string
}

// Conflict records an element whose id could not be resolved unambiguously.
type Conflict struct {
	Element *scene.Element
	Kind    Kind
	Chosen  string
	Others  []string
}

// Catalog is the resolved view of one scene: every tracked element grouped
// by host id. It is built once per render and discarded with the scene.
//
// An element nested inside another element with the same ref is not
// tracked on its own; the outer element stands for both.
type Catalog struct {
	Scene *scene.Scene

	nodes     map[string][]*scene.Element
	edges     map[string][]*scene.Element
	nodeOrder []string
	edgeOrder []string
	refs      map[*scene.Element]Ref
	conflicts []Conflict
}

// Catalog resolves every element of s. Node resolution is tried before edge
// resolution.
func (r *Resolver) Catalog(s *scene.Scene) *Catalog {
	c := &Catalog{
		Scene: s,
		nodes: make(map[string][]*scene.Element),
		edges: make(map[string][]*scene.Element),
		refs:  make(map[*scene.Element]Ref),
	}
	if s == nil || s.Root == nil {
		return c
	}
	var visit func(el *scene.Element, outer []Ref)
	visit = func(el *scene.Element, outer []Ref) {
		if ref, ok := c.resolve(r, el); ok && !containsRef(outer, ref) {
			c.track(el, ref)
			outer = append(outer[:len(outer):len(outer)], ref)
		}
		for _, ch := range el.Children() {
			visit(ch, outer)
		}
	}
	visit(s.Root, nil)
	return c
}

func (c *Catalog) resolve(r *Resolver, el *scene.Element) (Ref, bool) {
	for _, kind := range []Kind{KindNode, KindEdge} {
		m, err := r.Resolve(el, kind)
		if m.Strategy == StrategyNone {
			continue
		}
		if err != nil {
			c.conflicts = append(c.conflicts, Conflict{Element: el, Kind: kind, Chosen: m.ID, Others: m.Others})
		}
		return Ref{Kind: kind, ID: m.ID}, true
	}
	return Ref{}, false
}

func (c *Catalog) track(el *scene.Element, ref Ref) {
	c.refs[el] = ref
	if ref.Kind == KindEdge {
		if _, ok := c.edges[ref.ID]; !ok {
			c.edgeOrder = append(c.edgeOrder, ref.ID)
		}
		c.edges[ref.ID] = append(c.edges[ref.ID], el)
		return
	}
	if _, ok := c.nodes[ref.ID]; !ok {
		c.nodeOrder = append(c.nodeOrder, ref.ID)
	}
	c.nodes[ref.ID] = append(c.nodes[ref.ID], el)
}

func containsRef(refs []Ref, r Ref) bool {
	for _, x := range refs {
		if x == r {
			return true
		}
	}
	return false
}

// Nodes returns the elements tracked for node id, in document order.
func (c *Catalog) Nodes(id string) []*scene.Element { return c.nodes[id] }

// Edges returns the elements tracked for edge id, in document order.
func (c *Catalog) Edges(id string) []*scene.Element { return c.edges[id] }

// NodeIDs returns resolved node ids in first-seen order.
func (c *Catalog) NodeIDs() []string { return c.nodeOrder }

// EdgeIDs returns resolved edge ids in first-seen order.
func (c *Catalog) EdgeIDs() []string { return c.edgeOrder }

// Lookup returns the ref of a tracked element.
func (c *Catalog) Lookup(el *scene.Element) (Ref, bool) {
	r, ok := c.refs[el]
	return r, ok
}

// Owner returns the ref of el or its nearest tracked ancestor.
func (c *Catalog) Owner(el *scene.Element) (Ref, bool) {
	for n := el; n != nil; n = n.Parent() {
		if r, ok := c.refs[n]; ok {
			return r, true
		}
	}
	return Ref{}, false
}

// Tracked reports whether el itself is a tracked node or edge element.
func (c *Catalog) Tracked(el *scene.Element) bool {
	_, ok := c.refs[el]
	return ok
}

// Len returns the number of tracked elements.
func (c *Catalog) Len() int { return len(c.refs) }

// Conflicts returns elements whose ids were ambiguous.
func (c *Catalog) Conflicts() []Conflict { return c.conflicts }

// Drift compares the catalog to the host's node and edge ids. It returns
// host ids with no element, and element ids the host does not know.
func (c *Catalog) Drift(nodeIDs, edgeIDs []string) Drift {
	var d Drift
	d.MissingNodes, d.UnknownNodes = diff(nodeIDs, c.nodeOrder, c.nodes)
	d.MissingEdges, d.UnknownEdges = diff(edgeIDs, c.edgeOrder, c.edges)
	d.Conflicts = len(c.conflicts)
	return d
}

// Drift summarises mismatches between a scene and the host data.
type Drift struct {
	MissingNodes []string
	UnknownNodes []string
	MissingEdges []string
	UnknownEdges []string
	Conflicts    int
}

// Empty reports whether the scene matches the host data exactly.
func (d Drift) Empty() bool {
	return len(d.MissingNodes) == 0 && len(d.UnknownNodes) == 0 &&
		len(d.MissingEdges) == 0 && len(d.UnknownEdges) == 0 && d.Conflicts == 0
}

func diff(host, seenOrder []string, seen map[string][]*scene.Element) (missing, unknown []string) {
	known := make(map[string]bool, len(host))
	for _, id := range host {
		known[id] = true
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	for _, id := range seenOrder {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return missing, unknown
}
