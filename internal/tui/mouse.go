package tui

import (
	"image"

	tea "charm.land/bubbletea/v2"
)

// wheelDelta is the pixel delta reported for one wheel notch.
const wheelDelta = 100

// handleMouse feeds terminal mouse events into the scene. Cells map to the
// viewport pixel at their center; leaving the canvas ends every hover.
func handleMouse(m Model, msg tea.MouseMsg, canvas image.Rectangle) Model {
	mouse := msg.Mouse()
	m.MouseX = mouse.X
	m.MouseY = mouse.Y

	in := m.sess.v.Input()
	if in == nil {
		m.inCanvas = false
		return m
	}

	p := image.Pt(mouse.X, mouse.Y)
	if !p.In(canvas) {
		if m.inCanvas {
			in.Leave()
			m.inCanvas = false
		}
		return m
	}
	m.inCanvas = true
	x, y := m.cells.center(p.X-canvas.Min.X, p.Y-canvas.Min.Y)

	switch msg.(type) {
	case tea.MouseMotionMsg:
		in.Move(x, y)

	case tea.MouseClickMsg:
		if mouse.Button == tea.MouseLeft {
			in.Down(x, y)
		}

	case tea.MouseReleaseMsg:
		if in.Pressed() {
			in.Up(x, y)
		}

	case tea.MouseWheelMsg:
		switch mouse.Button {
		case tea.MouseWheelUp:
			in.Wheel(x, y, -wheelDelta)
		case tea.MouseWheelDown:
			in.Wheel(x, y, wheelDelta)
		}
	}
	return m
}
