package overlay

import (
	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
)

const (
	attrOpacity = "opacity"

	// DefaultDim is the opacity of elements outside the hover neighbourhood.
	DefaultDim = 0.3
)

// Highlighter dims everything outside a hovered node's neighbourhood. Like
// Engine it works on one catalog at a time and remembers each element's own
// opacity, so lit and cleared elements get the renderer's value back.
type Highlighter struct {
	Dim float64

	cat       *sceneid.Catalog
	originals map[*scene.Element]string
}

// NewHighlighter returns a highlighter dimming to dim; values outside
// [0, 1] fall back to DefaultDim.
func NewHighlighter(dim float64) *Highlighter {
	if !(dim >= 0 && dim <= 1) {
		dim = DefaultDim
	}
	return &Highlighter{Dim: dim}
}

// SetHoveredNode writes opacity on every tracked node and edge element and
// returns the number of writes that changed a value.
//
// An empty id clears: everything goes back to full opacity. Otherwise the
// hovered node and its neighbours stay at full opacity, as do edges touching
// the hovered node; everything else is dimmed. An id the scene and index do
// not know dims everything. Full opacity is 1 unless the renderer gave the
// element an opacity of its own.
func (h *Highlighter) SetHoveredNode(cat *sceneid.Catalog, adj *graphmodel.Adjacency, id string) int {
	if cat == nil {
		return 0
	}
	if cat != h.cat {
		h.cat = cat
		h.originals = make(map[*scene.Element]string)
	}
	dim := formatFloat(h.Dim)

	var lit map[string]bool
	if id != "" && (len(cat.Nodes(id)) > 0 || len(adj.Neighbors(id)) > 0) {
		lit = adj.Closure(id)
	}

	writes := 0
	set := func(el *scene.Element, dimmed bool) {
		v := h.full(el)
		if dimmed {
			v = dim
		}
		if el.SetAttr(attrOpacity, v) {
			writes++
		}
	}
	for _, nid := range cat.NodeIDs() {
		dimmed := id != "" && !lit[nid]
		for _, el := range cat.Nodes(nid) {
			set(el, dimmed)
		}
	}
	for _, eid := range cat.EdgeIDs() {
		dimmed := id != ""
		if e, ok := adj.Endpoints(eid); ok && lit != nil && (e.From == id || e.To == id) {
			dimmed = false
		}
		for _, el := range cat.Edges(eid) {
			set(el, dimmed)
		}
	}
	return writes
}

// full returns el's undimmed opacity, capturing it on first sight.
func (h *Highlighter) full(el *scene.Element) string {
	v, ok := h.originals[el]
	if !ok {
		v = el.AttrOr(attrOpacity, "1")
		h.originals[el] = v
	}
	return v
}
