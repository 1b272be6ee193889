package cellbuf

import "charm.land/lipgloss/v2"

// Spec describes a cell style by hex colors. Empty colors are left unset.
type Spec struct {
	FG   string
	BG   string
	Bold bool
}

// Palette hands out one StyleKey per distinct Spec.
type Palette struct {
	keys   map[Spec]StyleKey
	styles map[StyleKey]lipgloss.Style
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{keys: map[Spec]StyleKey{}, styles: map[StyleKey]lipgloss.Style{}}
}

// Key returns the key for s, registering it on first use.
func (p *Palette) Key(s Spec) StyleKey {
	if k, ok := p.keys[s]; ok {
		return k
	}
	k := StyleKey(len(p.keys))
	p.keys[s] = k
	st := lipgloss.NewStyle().Bold(s.Bold)
	if s.FG != "" {
		st = st.Foreground(lipgloss.Color(s.FG))
	}
	if s.BG != "" {
		st = st.Background(lipgloss.Color(s.BG))
	}
	p.styles[k] = st
	return k
}

// Len returns the number of registered specs.
func (p *Palette) Len() int { return len(p.keys) }

// Styles returns the key→style map for Buffer.Render.
func (p *Palette) Styles() map[StyleKey]lipgloss.Style { return p.styles }

// Render renders b with the palette's styles.
func (p *Palette) Render(b *Buffer) string { return b.Render(p.styles) }
