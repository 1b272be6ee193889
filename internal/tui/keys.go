package tui

import "charm.land/bubbles/v2/key"

// keyMap lists the viewer's key bindings. It implements help.KeyMap.
type keyMap struct {
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Fit      key.Binding
	Reset    key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Next     key.Binding
	Prev     key.Binding
	Clear    key.Binding
	Mastered key.Binding
	Review   key.Binding
	Annotate key.Binding
	Panel    key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Fit:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit")),
		Reset:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next node")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous node")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
		Mastered: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mastered")),
		Review:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "needs review")),
		Annotate: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "annotated")),
		Panel:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "panel")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Fit, k.Next, k.Mastered, k.Reload, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.Fit, k.Reset},
		{k.Up, k.Down, k.Left, k.Right},
		{k.Next, k.Prev, k.Clear, k.Panel},
		{k.Mastered, k.Review, k.Annotate},
		{k.Reload, k.Help, k.Quit},
	}
}
