package tui

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// c is shorthand for lipgloss.Color.
func c(hex string) color.Color { return lipgloss.Color(hex) }

// Palette: slate on near-black. Scene colors are blended against canvasBG.
const (
	canvasBG    = "#0b1120"
	gridFG      = "#1e293b"
	edgeFG      = "#64748b"
	edgeLabelFG = "#cbd5e1"
	nodeFill    = "#ffffff"
	nodeStroke  = "#334155"
	darkText    = "#0f172a"
	lightText   = "#f8fafc"
)

var (
	toolbarStyle = lipgloss.NewStyle().
			Background(c("#1e293b")).
			Foreground(c("#e2e8f0")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Background(c(canvasBG)).
			Foreground(c("#94a3b8"))

	canvasStyle = lipgloss.NewStyle().
			Background(c(canvasBG))

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c("#f87171")).
			Foreground(c("#fecaca")).
			Background(c("#1f0a0a")).
			Padding(0, 1)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c("#38bdf8")).
			Background(c("#0f172a")).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(c("#38bdf8")).
			Background(c(canvasBG))
)

var canvasColor, _ = colorful.Hex(canvasBG)

// blend mixes hex over the canvas background at alpha. Unparseable colors
// fall back to def.
func blend(hex, def string, alpha float64) string {
	col, err := colorful.Hex(hex)
	if err != nil {
		col, _ = colorful.Hex(def)
	}
	if alpha >= 1 {
		return col.Clamped().Hex()
	}
	if alpha < 0 {
		alpha = 0
	}
	return canvasColor.BlendLab(col, alpha).Clamped().Hex()
}

// textOn picks a readable label color for a box filled with hex.
func textOn(hex string) string {
	col, err := colorful.Hex(hex)
	if err != nil {
		return lightText
	}
	l, _, _ := col.Lab()
	if l > 0.6 {
		return darkText
	}
	return lightText
}

// borderFor maps a stroke width to a box border: heavier strokes get
// heavier lines.
func borderFor(width float64) lipgloss.Border {
	switch {
	case width >= 2.5:
		return lipgloss.ThickBorder()
	case width >= 2:
		return lipgloss.RoundedBorder()
	default:
		return lipgloss.NormalBorder()
	}
}
