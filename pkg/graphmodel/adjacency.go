package graphmodel

import "sort"

// Adjacency is the undirected neighbour index over a diagram's edges.
// Direction is ignored: if A→B exists then A∈N(B) and B∈N(A). Self-loops are
// recorded as incident edges but contribute no neighbours.
//
// A nil *Adjacency behaves as an empty index.
type Adjacency struct {
	neighbors map[string]map[string]struct{}
	incident  map[string][]string
	endpoints map[string]Edge
	edgeOrder []string
}

// BuildAdjacency indexes edges. Edges without an id are indexed for
// neighbourhood only.
func BuildAdjacency(edges []Edge) *Adjacency {
	a := &Adjacency{
		neighbors: make(map[string]map[string]struct{}),
		incident:  make(map[string][]string),
		endpoints: make(map[string]Edge),
	}
	for _, e := range edges {
		if e.ID != "" {
			if _, dup := a.endpoints[e.ID]; !dup {
				a.endpoints[e.ID] = e
				a.edgeOrder = append(a.edgeOrder, e.ID)
				a.incident[e.From] = append(a.incident[e.From], e.ID)
				if e.To != e.From {
					a.incident[e.To] = append(a.incident[e.To], e.ID)
				}
			}
		}
		if e.From == e.To {
			continue
		}
		a.link(e.From, e.To)
		a.link(e.To, e.From)
	}
	return a
}

func (a *Adjacency) link(from, to string) {
	set, ok := a.neighbors[from]
	if !ok {
		set = make(map[string]struct{})
		a.neighbors[from] = set
	}
	set[to] = struct{}{}
}

// Neighbors returns the sorted neighbour ids of id. Unknown ids have none.
func (a *Adjacency) Neighbors(id string) []string {
	if a == nil {
		return nil
	}
	set := a.neighbors[id]
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether x and y are neighbours.
func (a *Adjacency) Has(x, y string) bool {
	if a == nil {
		return false
	}
	_, ok := a.neighbors[x][y]
	return ok
}

// Closure returns id together with its neighbours.
func (a *Adjacency) Closure(id string) map[string]bool {
	out := map[string]bool{id: true}
	for _, n := range a.Neighbors(id) {
		out[n] = true
	}
	return out
}

// Endpoints returns the edge registered under edgeID.
func (a *Adjacency) Endpoints(edgeID string) (Edge, bool) {
	if a == nil {
		return Edge{}, false
	}
	e, ok := a.endpoints[edgeID]
	return e, ok
}

// IncidentEdges returns ids of edges touching id, in declaration order.
func (a *Adjacency) IncidentEdges(id string) []string {
	if a == nil {
		return nil
	}
	return a.incident[id]
}

// EdgeIDs returns every indexed edge id in declaration order.
func (a *Adjacency) EdgeIDs() []string {
	if a == nil {
		return nil
	}
	return a.edgeOrder
}
