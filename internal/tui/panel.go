package tui

import (
	"fmt"
	"image"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/overlay"
)

var panelBG = c("#111827")

var (
	panelTitleStyle = lipgloss.NewStyle().
			Foreground(c("#38bdf8")).
			Background(panelBG).
			Bold(true)

	panelDimStyle = lipgloss.NewStyle().
			Foreground(c("#64748b")).
			Background(panelBG)

	panelTextStyle = lipgloss.NewStyle().
			Foreground(c("#e2e8f0")).
			Background(panelBG)

	panelSepStyle = lipgloss.NewStyle().
			Foreground(c("#334155")).
			Background(panelBG)
)

// panelLine is one styled row of the side panel.
type panelLine struct {
	style lipgloss.Style
	text  string
}

// flagRows are the persistent states shown for a node.
var flagRows = []struct {
	state overlay.State
	label string
}{
	{overlay.StateMastered, "mastered"},
	{overlay.StateNeedsReview, "needs review"},
	{overlay.StateHasAnnotation, "annotated"},
}

// panelLines describes the focused node: the active one, else the
// hovered one.
func panelLines(v *viewer.Viewer, width int) []panelLine {
	rule := panelLine{panelDimStyle, strings.Repeat("─", max(width-2, 0))}
	var out []panelLine
	title := func(s string) {
		out = append(out, panelLine{panelTitleStyle, s}, rule)
	}
	text := func(s string) { out = append(out, panelLine{panelTextStyle, "  " + s}) }
	dim := func(s string) { out = append(out, panelLine{panelDimStyle, "  " + s}) }

	id := v.Active()
	if id == "" {
		id = v.Hovered()
	}
	d := v.Diagram()

	title("NODE")
	if id == "" {
		dim("(none: click or tab)")
	} else {
		n, ok := d.Node(id)
		if ok {
			text(n.Label())
		}
		dim("id " + id)
		if ok && n.Description != "" {
			for _, l := range wrap(n.Description, width-4) {
				dim(l)
			}
		}
		flags := v.States()[id]
		for _, fr := range flagRows {
			mark := "·"
			if flags.Has(fr.state) {
				mark = "✓"
			}
			text(fmt.Sprintf("%s %s", mark, fr.label))
		}
	}
	out = append(out, panelLine{panelTextStyle, ""})

	title("NEIGHBOURS")
	if adj := v.Adjacency(); id != "" && adj != nil {
		ns := adj.Neighbors(id)
		if len(ns) == 0 {
			dim("(isolated)")
		}
		for _, nb := range ns {
			label := nb
			if n, ok := d.Node(nb); ok {
				label = n.Label()
			}
			text("• " + label)
		}
	} else {
		dim("-")
	}
	out = append(out, panelLine{panelTextStyle, ""})

	title("VIEW")
	t := v.Transform()
	dim(fmt.Sprintf("status %s", v.Status()))
	dim(fmt.Sprintf("zoom %.0f%%", t.Scale*100))
	if cat := v.Catalog(); cat != nil {
		dim(fmt.Sprintf("%d nodes, %d edges", len(cat.NodeIDs()), len(cat.EdgeIDs())))
	}
	dim(fmt.Sprintf("generation %d", v.Generation()))
	return out
}

// buildPanelLayers renders the separator and the panel body.
func buildPanelLayers(v *viewer.Viewer, r image.Rectangle) []*lipgloss.Layer {
	w, h := r.Dx(), r.Dy()
	if w <= 1 || h <= 0 {
		return nil
	}
	sep := make([]string, h)
	for i := range sep {
		sep[i] = panelSepStyle.Render("│")
	}
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(strings.Join(sep, "\n")).X(r.Min.X).Y(r.Min.Y).Z(1).ID("separator"),
	}

	inner := w - 1
	lines := panelLines(v, inner)
	rows := make([]string, h)
	for i := range rows {
		if i < len(lines) {
			rows[i] = lines[i].style.Render(fit(" "+lines[i].text, inner))
		} else {
			rows[i] = panelTextStyle.Render(strings.Repeat(" ", inner))
		}
	}
	layers = append(layers, lipgloss.NewLayer(strings.Join(rows, "\n")).
		X(r.Min.X+1).Y(r.Min.Y).Z(1).ID("panel"))
	return layers
}

// wrap breaks s into lines of at most width runes at spaces.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(w) > width {
			lines = append(lines, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
