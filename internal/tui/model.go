// Package tui hosts the interaction layer in a terminal. It paints the
// viewer's scene into character cells, feeds mouse input back through the
// scene, and maps keys onto the viewer's control surface.
package tui

import (
	"context"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/overlay"
)

// Options configures the terminal host.
type Options struct {
	CellWidth      float64
	CellHeight     float64
	ResizeDebounce time.Duration
	// StatesPath receives node states after every toggle. Empty keeps
	// toggles in memory.
	StatesPath string
	// Reload re-reads the diagram. Nil makes reload a re-render.
	Reload func() (graphmodel.Diagram, error)
}

type eventKind int

const (
	evNodeClick eventKind = iota
	evEdgeClick
	evNodeHover
)

type event struct {
	kind eventKind
	id   string
}

// session is the state shared by every copy of the Model: the viewer and
// the handler events it produced during the current Update.
type session struct {
	v      *viewer.Viewer
	log    *zap.Logger
	events []event
}

func (s *session) push(k eventKind) func(string) {
	return func(id string) { s.events = append(s.events, event{kind: k, id: id}) }
}

func (s *session) drain() []event {
	evs := s.events
	s.events = nil
	return evs
}

// Model is the bubbletea model.
type Model struct {
	opts    Options
	sess    *session
	diagram graphmodel.Diagram
	cells   cellSize

	Width, Height  int
	MouseX, MouseY int
	inCanvas       bool
	showPanel      bool

	keys keyMap
	help help.Model
	spin spinner.Model

	// flash is a one-line message shown in the footer until the next one.
	flash string
}

// New creates the model. Rendering starts in Init.
func New(r viewer.Renderer, vopts viewer.Options, d graphmodel.Diagram, states overlay.StateMap, opts Options, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	s := &session{log: log}
	s.v = viewer.New(r, vopts, interact.Handlers{
		OnNodeClick: s.push(evNodeClick),
		OnEdgeClick: s.push(evEdgeClick),
		OnNodeHover: s.push(evNodeHover),
	}, log)
	s.v.SetNodeStates(states)

	return Model{
		opts:      opts,
		sess:      s,
		diagram:   d,
		cells:     cellSize{W: opts.CellWidth, H: opts.CellHeight},
		showPanel: true,
		keys:      defaultKeys(),
		help:      help.New(),
		spin:      spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
	}
}

// Viewer exposes the orchestrator, for the command and tests.
func (m Model) Viewer() *viewer.Viewer { return m.sess.v }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.start(m.sess.v.Load(m.diagram))
}

// ── Messages ──

type renderDoneMsg struct {
	res viewer.Result
}

type resizeFlushMsg struct {
	seq uint64
}

type savedMsg struct {
	path string
	err  error
}

// start runs a render ticket off the event loop and spins until it lands.
func (m Model) start(t viewer.Ticket) tea.Cmd {
	run := func() tea.Msg {
		return renderDoneMsg{res: t.Run(context.Background())}
	}
	return tea.Batch(run, m.spin.Tick)
}
