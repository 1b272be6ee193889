package cellbuf

import (
	"image"
	"strings"
	"testing"
)

func testPalette() (*Palette, StyleKey, StyleKey, StyleKey) {
	p := NewPalette()
	bg := p.Key(Spec{FG: "#808080", BG: "#101010"})
	red := p.Key(Spec{FG: "#ff0000"})
	blue := p.Key(Spec{FG: "#0000ff", Bold: true})
	return p, bg, red, blue
}

// ── Buffer ──

func TestNew(t *testing.T) {
	_, bg, _, _ := testPalette()
	b := New(10, 5, bg)
	if b.W != 10 || b.H != 5 || len(b.Cells) != 5 {
		t.Fatalf("expected 10x5, got %dx%d", b.W, b.H)
	}
	for y := range b.Cells {
		for x, c := range b.Cells[y] {
			if c.Ch != ' ' || c.Style != bg {
				t.Fatalf("cell (%d,%d): expected blank, got %q/%d", x, y, c.Ch, c.Style)
			}
		}
	}
}

func TestNegativeSize(t *testing.T) {
	b := New(-5, -3, 0)
	if b.W != 0 || b.H != 0 {
		t.Fatalf("expected 0x0, got %dx%d", b.W, b.H)
	}
	if got := b.Render(nil); got != "" {
		t.Errorf("empty buffer should render empty, got %q", got)
	}
}

func TestInBounds(t *testing.T) {
	b := New(10, 5, 0)
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{9, 4, true},
		{-1, 0, false},
		{0, -1, false},
		{10, 0, false},
		{0, 5, false},
	}
	for _, tc := range tests {
		if got := b.InBounds(tc.x, tc.y); got != tc.want {
			t.Errorf("InBounds(%d, %d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestSetAndGet(t *testing.T) {
	_, bg, red, _ := testPalette()
	b := New(10, 5, bg)
	b.Set(3, 2, 'X', red)
	if c := b.Get(3, 2); c.Ch != 'X' || c.Style != red {
		t.Fatalf("expected X/red, got %q/%d", c.Ch, c.Style)
	}
	b.Set(-1, 0, 'X', red)
	b.Set(10, 0, 'X', red)
	if c := b.Get(100, 100); c != (Cell{}) {
		t.Errorf("out-of-bounds Get should return zero cell, got %+v", c)
	}
}

func TestSetStringClips(t *testing.T) {
	_, bg, red, _ := testPalette()
	b := New(5, 1, bg)
	b.SetString(3, 0, "Héllo", red)
	if b.Get(3, 0).Ch != 'H' || b.Get(4, 0).Ch != 'é' {
		t.Errorf("expected H and é at 3,4, got %q %q", b.Get(3, 0).Ch, b.Get(4, 0).Ch)
	}
}

func TestFillRectClips(t *testing.T) {
	_, bg, _, blue := testPalette()
	b := New(5, 3, bg)
	b.FillRect(image.Rect(3, 1, 10, 10), '#', blue)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			want := x >= 3 && y >= 1
			if got := b.Get(x, y).Ch == '#'; got != want {
				t.Errorf("cell (%d,%d): filled=%v, want %v", x, y, got, want)
			}
		}
	}
}

// ── Palette ──

func TestPaletteReusesKeys(t *testing.T) {
	p := NewPalette()
	a := p.Key(Spec{FG: "#ffffff"})
	b := p.Key(Spec{FG: "#000000"})
	if a == b {
		t.Fatal("distinct specs should get distinct keys")
	}
	if p.Key(Spec{FG: "#ffffff"}) != a || p.Len() != 2 {
		t.Errorf("same spec should reuse its key, have %d specs", p.Len())
	}
	if _, ok := p.Styles()[b]; !ok {
		t.Error("registered key should have a style")
	}
}

// ── Render ──

func TestRenderLines(t *testing.T) {
	p, bg, red, _ := testPalette()
	b := New(10, 3, bg)
	b.SetString(2, 1, "Hi", red)
	out := p.Render(b)
	if lines := strings.Split(out, "\n"); len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(out, "Hi") {
		t.Errorf("rendered output lost text: %q", out)
	}
}

func TestRenderMergesRuns(t *testing.T) {
	p, bg, red, blue := testPalette()
	uniform := New(50, 1, bg)
	alternating := New(50, 1, bg)
	for x := 0; x < 50; x++ {
		k := red
		if x%2 == 1 {
			k = blue
		}
		alternating.Set(x, 0, '.', k)
	}
	if u, a := p.Render(uniform), p.Render(alternating); len(u) >= len(a) {
		t.Errorf("uniform render (%d bytes) should be shorter than alternating (%d bytes)", len(u), len(a))
	}
}

func TestRenderMissingStyle(t *testing.T) {
	b := New(5, 1, StyleKey(99))
	b.SetString(0, 0, "plain", StyleKey(99))
	if got := b.Render(nil); got != "plain" {
		t.Errorf("unstyled keys should render plain, got %q", got)
	}
}

func BenchmarkRenderEdgeCanvas(b *testing.B) {
	p, bg, red, blue := testPalette()
	buf := New(150, 40, bg)
	for y := 0; y < 40; y++ {
		for x := 0; x < 150; x += 5 {
			if y%3 == 0 {
				buf.Set(x, y, '·', red)
			}
		}
		buf.Set(y, y, '\\', blue)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Render(buf)
	}
}
