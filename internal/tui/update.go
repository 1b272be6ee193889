package tui

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/internal/nodestate"
	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/overlay"
)

// Pan steps, in cells.
const (
	panCols = 4
	panRows = 2
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.SetWidth(msg.Width)
		return m, m.resize()

	case resizeFlushMsg:
		m.sess.v.FlushResize(msg.seq)

	case renderDoneMsg:
		if m.sess.v.Complete(msg.res) && m.sess.v.Status() == viewer.StatusError {
			m.flash = "render failed, press r to retry"
		}

	case savedMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("save failed: %v", msg.err)
			m.sess.log.Error("saving node states", zap.String("path", msg.path), zap.Error(msg.err))
		} else {
			m.flash = "saved " + msg.path
		}

	case spinner.TickMsg:
		if m.sess.v.Status() != viewer.StatusRendering {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		return m.handleKeys(msg)

	case tea.MouseMsg:
		m = handleMouse(m, msg, m.regions().Canvas)
		return m.applyEvents(), nil
	}

	return m, nil
}

func (m Model) regions() regions {
	return computeLayout(m.Width, m.Height, m.showPanel)
}

// resize reports the canvas size to the viewer. The refit waits for the
// debounce window; only the last resize of a burst gets one.
func (m Model) resize() tea.Cmd {
	r := m.regions().Canvas
	seq := m.sess.v.Resize(canvasSize(r.Dx(), r.Dy(), m.cells))
	if m.opts.ResizeDebounce <= 0 {
		m.sess.v.FlushResize(seq)
		return nil
	}
	return tea.Tick(m.opts.ResizeDebounce, func(time.Time) tea.Msg {
		return resizeFlushMsg{seq: seq}
	})
}

// handleKeys maps keys onto the control surface.
func (m Model) handleKeys(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	v := m.sess.v
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ZoomIn):
		v.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		v.ZoomOut()
	case key.Matches(msg, m.keys.Fit):
		v.FitToScreen()
	case key.Matches(msg, m.keys.Reset):
		v.ResetTransform()

	case key.Matches(msg, m.keys.Up):
		v.Viewport().PanBy(0, panRows*m.cells.H)
	case key.Matches(msg, m.keys.Down):
		v.Viewport().PanBy(0, -panRows*m.cells.H)
	case key.Matches(msg, m.keys.Left):
		v.Viewport().PanBy(panCols*m.cells.W, 0)
	case key.Matches(msg, m.keys.Right):
		v.Viewport().PanBy(-panCols*m.cells.W, 0)

	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Clear):
		v.SetActive("")
		m.help.ShowAll = false

	case key.Matches(msg, m.keys.Mastered):
		return m.toggle(overlay.StateMastered)
	case key.Matches(msg, m.keys.Review):
		return m.toggle(overlay.StateNeedsReview)
	case key.Matches(msg, m.keys.Annotate):
		return m.toggle(overlay.StateHasAnnotation)

	case key.Matches(msg, m.keys.Panel):
		m.showPanel = !m.showPanel
		return m, m.resize()

	case key.Matches(msg, m.keys.Reload):
		return m.reload()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// cycle activates the next or previous rendered node and centers it.
func (m *Model) cycle(dir int) {
	v := m.sess.v
	if v.Catalog() == nil {
		return
	}
	ids := v.Catalog().NodeIDs()
	if len(ids) == 0 {
		return
	}
	i := -1
	for j, id := range ids {
		if id == v.Active() {
			i = j
			break
		}
	}
	switch {
	case i < 0 && dir < 0:
		i = len(ids) - 1
	case i < 0:
		i = 0
	default:
		i = (i + dir + len(ids)) % len(ids)
	}
	v.SetActive(ids[i])
	if err := v.FocusNode(ids[i]); err != nil {
		m.flash = err.Error()
	}
}

// toggle flips a persistent flag on the active node and saves the map.
func (m Model) toggle(s overlay.State) (tea.Model, tea.Cmd) {
	v := m.sess.v
	id := v.Active()
	if id == "" {
		m.flash = "select a node first"
		return m, nil
	}
	states, err := nodestate.Toggle(v.States(), id, s)
	if err != nil {
		m.flash = err.Error()
		return m, nil
	}
	v.SetNodeStates(states)
	m.flash = fmt.Sprintf("%s: %s %s", id, s, onOff(states[id].Has(s)))
	if m.opts.StatesPath == "" {
		return m, nil
	}
	path := m.opts.StatesPath
	return m, func() tea.Msg {
		return savedMsg{path: path, err: nodestate.Save(path, states)}
	}
}

// reload retries a failed render, or re-reads the diagram source.
func (m Model) reload() (tea.Model, tea.Cmd) {
	v := m.sess.v
	if v.Status() == viewer.StatusError || m.opts.Reload == nil {
		t, err := v.Retry()
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		m.flash = ""
		return m, m.start(t)
	}
	d, err := m.opts.Reload()
	if err != nil {
		m.flash = fmt.Sprintf("reload failed: %v", err)
		m.sess.log.Warn("reloading diagram", zap.Error(err))
		return m, nil
	}
	m.diagram = d
	m.flash = "reloaded"
	return m, m.start(v.Load(d))
}

// applyEvents turns the handler callbacks of the last input into host
// behaviour: a click selects.
func (m Model) applyEvents() Model {
	v := m.sess.v
	for _, ev := range m.sess.drain() {
		switch ev.kind {
		case evNodeClick:
			v.SetActive(ev.id)
			m.flash = ""
		case evEdgeClick:
			m.flash = describeEdge(v, ev.id)
		}
	}
	return m
}

func describeEdge(v *viewer.Viewer, id string) string {
	d := v.Diagram()
	e, ok := d.Edge(id)
	if !ok {
		return id
	}
	if e.Relationship == "" {
		return fmt.Sprintf("%s → %s", e.From, e.To)
	}
	return fmt.Sprintf("%s → %s: %s", e.From, e.To, e.Relationship)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
