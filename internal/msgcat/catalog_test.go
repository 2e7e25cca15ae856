package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("status.strategies_loaded", map[string]any{"Player1": "A", "Player2": "B"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Strategies loaded: A vs B" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderMissingKeyErrors(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("status.strategies_loaded", map[string]any{"Player1": "A"}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if got := c.Text("nope.nothing", nil, "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("controls:\n  auto_start: \"Play\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("controls.auto_start", nil, ""); got != "Play" {
		t.Fatalf("got %q", got)
	}
	if got := c.Text("controls.auto_stop", nil, ""); got != "Stop" {
		t.Fatalf("embedded key lost: %q", got)
	}
}

func TestDuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	body := []byte("controls:\n  auto_start: \"x\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
