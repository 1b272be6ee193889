package overlay

import (
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
)

const (
	attrFill        = "fill"
	attrStroke      = "stroke"
	attrStrokeWidth = "stroke-width"
)

var channelAttrs = [...]string{attrFill, attrStroke, attrStrokeWidth}

// shapeTags are the elements whose paint a node overlay targets.
var shapeTags = map[string]bool{
	"rect": true, "circle": true, "ellipse": true, "polygon": true, "path": true,
}

// original is an element's own channel values before any overlay.
type original struct {
	values  [3]string
	present [3]bool
}

// Engine applies node state onto one catalog at a time. It remembers each
// painted element's original channel values so a node returning to the
// default state gets them back.
type Engine struct {
	theme Theme

	cat       *sceneid.Catalog
	originals map[*scene.Element]original
}

// NewEngine creates an engine with theme. A nil theme uses DefaultTheme.
func NewEngine(theme Theme) *Engine {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &Engine{theme: theme}
}

// Theme returns the engine's theme.
func (e *Engine) Theme() Theme { return e.theme }

// Apply paints every node in cat from states and returns the number of
// attribute writes that changed a value. A second call with the same input
// writes nothing. Elements the catalog does not track are untouched.
func (e *Engine) Apply(cat *sceneid.Catalog, states StateMap) int {
	if cat == nil {
		return 0
	}
	if cat != e.cat {
		e.cat = cat
		e.originals = make(map[*scene.Element]original)
	}
	writes := 0
	for _, id := range cat.NodeIDs() {
		style := e.theme.Resolve(states[id])
		want := [3]string{style.Fill, style.Stroke, ""}
		if style.StrokeWidth > 0 {
			want[2] = formatFloat(style.StrokeWidth)
		}
		for _, el := range cat.Nodes(id) {
			writes += e.paint(ShapeOf(el), want)
		}
	}
	return writes
}

func (e *Engine) paint(el *scene.Element, want [3]string) int {
	orig, seen := e.originals[el]
	if !seen {
		for i, name := range channelAttrs {
			orig.values[i], orig.present[i] = el.Attr(name)
		}
		e.originals[el] = orig
	}
	writes := 0
	for i, name := range channelAttrs {
		v := want[i]
		if v == "" {
			if !orig.present[i] {
				if el.RemoveAttr(name) {
					writes++
				}
				continue
			}
			v = orig.values[i]
		}
		if el.SetAttr(name, v) {
			writes++
		}
	}
	return writes
}

// ShapeOf returns the element that carries a node's paint: el itself when
// it is a shape, otherwise its first shape descendant, otherwise el.
func ShapeOf(el *scene.Element) *scene.Element {
	var found *scene.Element
	el.Walk(func(n *scene.Element) bool {
		if found != nil {
			return false
		}
		if shapeTags[n.Tag] {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return el
	}
	return found
}
