// Package config loads conceptmap settings from TOML. Missing keys keep
// their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wesen/conceptmap/internal/d2render"
	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/overlay"
	"github.com/wesen/conceptmap/pkg/sceneid"
	"github.com/wesen/conceptmap/pkg/viewport"
)

// ErrInvalidConfig is returned by Validate and Load for unusable values.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	EngineBuiltin = "builtin"
	EngineD2      = "d2"
)

// Config holds conceptmap configuration.
type Config struct {
	Renderer    RendererConfig           `toml:"renderer"`
	Viewport    viewport.Options         `toml:"viewport"`
	Highlight   HighlightConfig          `toml:"highlight"`
	Interaction InteractionConfig        `toml:"interaction"`
	IDs         IDsConfig                `toml:"ids"`
	Theme       map[string]overlay.Style `toml:"theme"`
	Log         LogConfig                `toml:"log"`
	TUI         TUIConfig                `toml:"tui"`
}

// RendererConfig selects and tunes the renderer.
type RendererConfig struct {
	Engine string `toml:"engine"` // "builtin" or "d2"
	// LayoutScript replaces the built-in layout script.
	LayoutScript string           `toml:"layout_script"`
	TimeoutMS    int              `toml:"timeout_ms"`
	D2           d2render.Options `toml:"d2"`
}

// HighlightConfig controls hover dimming.
type HighlightConfig struct {
	Dim float64 `toml:"dim"`
}

// InteractionConfig controls pointer gestures.
type InteractionConfig struct {
	DragThreshold    float64 `toml:"drag_threshold"`
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
	ResizeDebounceMS int     `toml:"resize_debounce_ms"`
}

// IDsConfig holds the id conventions of the renderer in use.
type IDsConfig struct {
	Node sceneid.Convention `toml:"node"`
	Edge sceneid.Convention `toml:"edge"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
	File   string `toml:"file"`
}

// TUIConfig maps terminal cells to content pixels.
type TUIConfig struct {
	CellWidth  float64 `toml:"cell_width"`
	CellHeight float64 `toml:"cell_height"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			Engine:    EngineBuiltin,
			TimeoutMS: 10000,
			D2:        d2render.DefaultOptions(),
		},
		Viewport:  viewport.DefaultOptions(),
		Highlight: HighlightConfig{Dim: overlay.DefaultDim},
		Interaction: InteractionConfig{
			DragThreshold:    interact.DefaultDragThreshold,
			WheelSensitivity: 500,
			ResizeDebounceMS: 150,
		},
		IDs: IDsConfig{
			Node: sceneid.DefaultNodeConvention(),
			Edge: sceneid.DefaultEdgeConvention(),
		},
		Log: LogConfig{Level: "info", Format: "console"},
		TUI: TUIConfig{CellWidth: 8, CellHeight: 16},
	}
}

// Dir returns the conceptmap config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "conceptmap")
}

// DefaultPath is the file Load reads when given no path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path over the defaults. An empty path reads DefaultPath and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects values the components cannot work with.
func (c *Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Renderer.Engine {
	case EngineBuiltin, EngineD2:
	default:
		return bad("renderer.engine %q (want %s or %s)", c.Renderer.Engine, EngineBuiltin, EngineD2)
	}
	if c.Renderer.TimeoutMS < 0 {
		return bad("renderer.timeout_ms %d is negative", c.Renderer.TimeoutMS)
	}

	vp := c.Viewport
	if vp.MinScale <= 0 || vp.MaxScale < vp.MinScale {
		return bad("viewport scale range [%v, %v]", vp.MinScale, vp.MaxScale)
	}
	if vp.MaxFitScale <= 0 || vp.Padding < 0 || vp.ZoomStep <= 1 {
		return bad("viewport max_fit_scale %v, padding %v, zoom_step %v", vp.MaxFitScale, vp.Padding, vp.ZoomStep)
	}

	if c.Highlight.Dim <= 0 || c.Highlight.Dim > 1 {
		return bad("highlight.dim %v outside (0, 1]", c.Highlight.Dim)
	}
	if c.Interaction.DragThreshold < 0 || c.Interaction.WheelSensitivity <= 0 || c.Interaction.ResizeDebounceMS < 0 {
		return bad("interaction values must be positive")
	}
	if c.TUI.CellWidth <= 0 || c.TUI.CellHeight <= 0 {
		return bad("tui cell size %vx%v", c.TUI.CellWidth, c.TUI.CellHeight)
	}

	if _, err := c.Resolver(); err != nil {
		return bad("ids: %v", err)
	}
	if err := overlay.DefaultTheme().Merge(c.ThemeOverrides()).Validate(); err != nil {
		return bad("theme: %v", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return bad("log.format %q", c.Log.Format)
	}
	return nil
}

// ── Component options ──

// ThemeOverrides converts the [theme.<state>] tables.
func (c *Config) ThemeOverrides() overlay.Theme {
	t := make(overlay.Theme, len(c.Theme))
	for k, v := range c.Theme {
		t[overlay.State(k)] = v
	}
	return t
}

// Resolver compiles the id conventions.
func (c *Config) Resolver() (*sceneid.Resolver, error) {
	return sceneid.New(c.IDs.Node, c.IDs.Edge)
}

// ResizeDebounce is the resize coalescing window.
func (c *Config) ResizeDebounce() time.Duration {
	return time.Duration(c.Interaction.ResizeDebounceMS) * time.Millisecond
}

// ViewerOptions builds the orchestrator's options.
func (c *Config) ViewerOptions() (viewer.Options, error) {
	r, err := c.Resolver()
	if err != nil {
		return viewer.Options{}, fmt.Errorf("%w: ids: %v", ErrInvalidConfig, err)
	}
	return viewer.Options{
		Viewport:         c.Viewport,
		Theme:            overlay.DefaultTheme().Merge(c.ThemeOverrides()),
		Dim:              c.Highlight.Dim,
		Resolver:         r,
		DragThreshold:    c.Interaction.DragThreshold,
		WheelSensitivity: c.Interaction.WheelSensitivity,
		RenderTimeout:    time.Duration(c.Renderer.TimeoutMS) * time.Millisecond,
	}, nil
}
