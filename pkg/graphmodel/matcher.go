package graphmodel

// EdgeMatcher maps renderer-side edge handles back to host edge ids.
// Renderers that only know "the n-th edge from X to Y" resolve through it.
type EdgeMatcher struct {
	byPair map[[2]string][]string
}

// NewEdgeMatcher indexes edges by (from, to) in declaration order.
func NewEdgeMatcher(edges []Edge) *EdgeMatcher {
	m := &EdgeMatcher{byPair: make(map[[2]string][]string)}
	for _, e := range edges {
		if e.ID == "" {
			continue
		}
		k := [2]string{e.From, e.To}
		m.byPair[k] = append(m.byPair[k], e.ID)
	}
	return m
}

// Match returns the id of the occurrence-th (zero-based) edge from→to.
func (m *EdgeMatcher) Match(from, to string, occurrence int) (string, bool) {
	ids := m.byPair[[2]string{from, to}]
	if occurrence < 0 || occurrence >= len(ids) {
		return "", false
	}
	return ids[occurrence], true
}
