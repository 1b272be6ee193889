// Package overlay writes per-node visual state onto an existing scene:
// fill, stroke and stroke width from a precedence table of state flags, and
// opacity from the hover highlight. It never restructures the scene; every
// write is a plain attribute update, and writes that would not change a
// value are skipped.
package overlay

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Flags are the independent per-node states. Several may be set at once.
type Flags struct {
	HasAnnotation bool `yaml:"has_annotation,omitempty"`
	IsMastered    bool `yaml:"is_mastered,omitempty"`
	NeedsReview   bool `yaml:"needs_review,omitempty"`
	IsActive      bool `yaml:"is_active,omitempty"`
	IsHovered     bool `yaml:"is_hovered,omitempty"`
}

// StateMap holds flags per node id. Absent ids have all flags false.
type StateMap map[string]Flags

// Clone returns a shallow copy so callers can set transient flags without
// touching the host's map.
func (m StateMap) Clone() StateMap {
	out := make(StateMap, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// State names one flag in the precedence table.
type State string

const (
	StateActive        State = "active"
	StateHovered       State = "hovered"
	StateMastered      State = "mastered"
	StateNeedsReview   State = "needs_review"
	StateHasAnnotation State = "has_annotation"
)

// Precedence is the fixed order in which states claim a channel.
var Precedence = []State{StateActive, StateHovered, StateMastered, StateNeedsReview, StateHasAnnotation}

// Has reports whether f has state s set.
func (f Flags) Has(s State) bool {
	switch s {
	case StateActive:
		return f.IsActive
	case StateHovered:
		return f.IsHovered
	case StateMastered:
		return f.IsMastered
	case StateNeedsReview:
		return f.NeedsReview
	case StateHasAnnotation:
		return f.HasAnnotation
	}
	return false
}

// Style is the set of channels a state may claim. Empty strings and a zero
// width leave the channel to lower-precedence states.
type Style struct {
	Fill        string  `toml:"fill" yaml:"fill,omitempty"`
	Stroke      string  `toml:"stroke" yaml:"stroke,omitempty"`
	StrokeWidth float64 `toml:"stroke_width" yaml:"stroke_width,omitempty"`
}

// Validate checks colors parse as hex.
func (s Style) Validate() error {
	for _, col := range []string{s.Fill, s.Stroke} {
		if col == "" {
			continue
		}
		if _, err := colorful.Hex(col); err != nil {
			return fmt.Errorf("color %q: %w", col, err)
		}
	}
	if s.StrokeWidth < 0 {
		return fmt.Errorf("stroke width %v is negative", s.StrokeWidth)
	}
	return nil
}

// Theme maps each state to the channels it claims.
type Theme map[State]Style

// DefaultTheme returns the stock palette.
func DefaultTheme() Theme {
	return Theme{
		StateActive:        {Fill: "#fde68a", Stroke: "#d97706", StrokeWidth: 3},
		StateHovered:       {Stroke: "#2563eb", StrokeWidth: 2.5},
		StateMastered:      {Fill: "#bbf7d0", Stroke: "#16a34a", StrokeWidth: 2},
		StateNeedsReview:   {Fill: "#fecaca", Stroke: "#dc2626", StrokeWidth: 2},
		StateHasAnnotation: {Stroke: "#7c3aed", StrokeWidth: 2},
	}
}

// Merge returns t with every channel set in o replacing t's.
func (t Theme) Merge(o Theme) Theme {
	out := make(Theme, len(t))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range o {
		cur := out[k]
		if v.Fill != "" {
			cur.Fill = v.Fill
		}
		if v.Stroke != "" {
			cur.Stroke = v.Stroke
		}
		if v.StrokeWidth > 0 {
			cur.StrokeWidth = v.StrokeWidth
		}
		out[k] = cur
	}
	return out
}

// Validate checks every state style and rejects unknown state names.
func (t Theme) Validate() error {
	for s, st := range t {
		known := false
		for _, p := range Precedence {
			if p == s {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown state %q", s)
		}
		if err := st.Validate(); err != nil {
			return fmt.Errorf("state %s: %w", s, err)
		}
	}
	return nil
}

// Resolve walks the precedence order once per channel. The first set state
// claiming a channel wins it; unclaimed channels stay empty, meaning "use
// the element's own value".
func (t Theme) Resolve(f Flags) Style {
	var out Style
	for _, s := range Precedence {
		if !f.Has(s) {
			continue
		}
		st := t[s]
		if out.Fill == "" {
			out.Fill = st.Fill
		}
		if out.Stroke == "" {
			out.Stroke = st.Stroke
		}
		if out.StrokeWidth == 0 {
			out.StrokeWidth = st.StrokeWidth
		}
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
