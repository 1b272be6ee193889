package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/wesen/conceptmap/internal/viewer"
)

// View implements tea.Model.
func (m Model) View() tea.View {
	if m.Width == 0 || m.Height == 0 {
		return tea.NewView("")
	}
	v := m.sess.v
	reg := m.regions()

	layers := []*lipgloss.Layer{
		fillLayer(reg.Canvas, canvasStyle, "canvas-bg", 0),
		barLayer(reg.Toolbar, m.toolbarText(), toolbarStyle, "toolbar"),
		barLayer(reg.Footer, m.footerText(reg.Footer.Dx()), footerStyle, "footer"),
	}

	if !reg.Canvas.Empty() {
		f := paint(v, reg.Canvas.Dx(), reg.Canvas.Dy(), m.cells)
		layers = append(layers,
			lipgloss.NewLayer(f.Render()).X(reg.Canvas.Min.X).Y(reg.Canvas.Min.Y).Z(0).ID("scene"))
	}
	if !reg.Panel.Empty() {
		layers = append(layers, buildPanelLayers(v, reg.Panel)...)
	}

	switch v.Status() {
	case viewer.StatusRendering:
		msg := m.spin.View() + " rendering…"
		layers = append(layers, lipgloss.NewLayer(spinnerStyle.Render(msg)).
			X(reg.Canvas.Min.X+1).Y(reg.Canvas.Min.Y).Z(50).ID("spinner"))
	case viewer.StatusError:
		body := fmt.Sprintf("Could not render the diagram\n\n%s\n\nr retry  q quit", wrapError(v.Err(), reg.Canvas.Dx()-6))
		layers = append(layers, modalLayer(body, reg.Canvas, errorBoxStyle, "error"))
	}
	if m.help.ShowAll {
		layers = append(layers, modalLayer(m.help.View(m.keys), reg.Canvas, helpBoxStyle, "help"))
	}

	comp := lipgloss.NewCompositor(layers...)
	canvas := lipgloss.NewCanvas(m.Width, m.Height)
	canvas.Compose(comp)

	view := tea.NewView(canvas.Render())
	view.AltScreen = true
	view.MouseMode = tea.MouseModeAllMotion
	return view
}

func (m Model) toolbarText() string {
	v := m.sess.v
	d := v.Diagram()
	name := d.Title
	if name == "" {
		name = d.Source
	}
	parts := []string{" conceptmap"}
	if name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, fmt.Sprintf("zoom %.0f%%", v.Transform().Scale*100))
	if id := v.Active(); id != "" {
		parts = append(parts, "● "+id)
	}
	return strings.Join(parts, "  │  ")
}

func (m Model) footerText(width int) string {
	if m.flash != "" {
		return " " + m.flash
	}
	if h := m.sess.v.Hovered(); h != "" {
		return " hover: " + h
	}
	hv := m.help
	hv.SetWidth(max(width-1, 0))
	return " " + hv.View(m.keys)
}

func wrapError(err error, width int) string {
	if err == nil {
		return ""
	}
	return strings.Join(wrap(err.Error(), max(width, 20)), "\n")
}
