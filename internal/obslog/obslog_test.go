package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	l, err := Build(Options{Level: "debug", Format: "json", Console: true, Stdout: &buf})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("ply_applied")
	_ = l.Sync()
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["msg"] != "ply_applied" || rec["level"] != "info" {
		t.Fatalf("rec=%v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "warn", Format: "console", Console: true, Stdout: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("out=%q", buf.String())
	}
}

func TestFileSinkOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	l, err := Build(Options{File: true, FilePath: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("session_start")
	_ = l.Sync()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), " | INFO | ") {
		t.Fatalf("legacy format expected: %q", b)
	}
}

func TestNoSinksIsNop(t *testing.T) {
	l, err := Build(Options{})
	if err != nil || l == nil {
		t.Fatalf("l=%v err=%v", l, err)
	}
}
