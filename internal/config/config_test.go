package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesen/conceptmap/pkg/overlay"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── Defaults ──

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Viewport.MinScale != 0.1 || cfg.Viewport.MaxScale != 3 || cfg.Viewport.MaxFitScale != 1.5 {
		t.Errorf("unexpected viewport defaults %+v", cfg.Viewport)
	}
	if cfg.Highlight.Dim != 0.3 {
		t.Errorf("expected dim 0.3, got %v", cfg.Highlight.Dim)
	}
}

func TestLoadMissingDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("absent default file should not fail: %v", err)
	}
	if cfg.Renderer.Engine != EngineBuiltin {
		t.Errorf("expected builtin engine, got %q", cfg.Renderer.Engine)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}

// ── Merging ──

func TestLoadMergesOverDefaults(t *testing.T) {
	path := write(t, `
[renderer]
engine = "d2"
timeout_ms = 2500

[renderer.d2]
layout = "elk"

[viewport]
max_scale = 4.0

[highlight]
dim = 0.5

[interaction]
resize_debounce_ms = 40

[ids.node]
class_prefix = "concept-"

[theme.mastered]
fill = "#00ff00"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.Engine != EngineD2 || cfg.Renderer.D2.Layout != "elk" || cfg.Renderer.D2.Binary != "d2" {
		t.Errorf("renderer not merged: %+v", cfg.Renderer)
	}
	if cfg.Viewport.MaxScale != 4 || cfg.Viewport.MinScale != 0.1 {
		t.Errorf("viewport not merged: %+v", cfg.Viewport)
	}
	if cfg.IDs.Node.ClassPrefix != "concept-" || len(cfg.IDs.Node.DataAttrs) == 0 {
		t.Errorf("ids not merged: %+v", cfg.IDs.Node)
	}
	if cfg.ResizeDebounce() != 40*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.ResizeDebounce())
	}

	opts, err := cfg.ViewerOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dim != 0.5 || opts.RenderTimeout != 2500*time.Millisecond {
		t.Errorf("unexpected viewer options %+v", opts)
	}
	m := opts.Theme[overlay.StateMastered]
	if m.Fill != "#00ff00" || m.Stroke == "" {
		t.Errorf("theme override should keep unset channels: %+v", m)
	}
}

// ── Validation ──

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"engine", "[renderer]\nengine = \"graphviz\"\n"},
		{"scale range", "[viewport]\nmin_scale = 2.0\nmax_scale = 1.0\n"},
		{"zoom step", "[viewport]\nzoom_step = 1.0\n"},
		{"dim", "[highlight]\ndim = 1.5\n"},
		{"zero dim", "[highlight]\ndim = 0.0\n"},
		{"pattern", "[ids.node]\nid_patterns = [\"^(?<nope>.+)$\"]\n"},
		{"theme state", "[theme.selected]\nfill = \"#fff\"\n"},
		{"theme color", "[theme.active]\nfill = \"yellow\"\n"},
		{"unknown key", "[viewport]\nzoom = 2.0\n"},
		{"syntax", "[viewport\n"},
		{"log format", "[log]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		_, err := Load(write(t, tt.body))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Highlight.Dim = 0.25
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Highlight.Dim != 0.25 {
		t.Errorf("expected dim to survive, got %v", got.Highlight.Dim)
	}
}
