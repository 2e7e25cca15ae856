package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/park285/otheller-go/internal/render"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

var ErrNothingToExport = errors.New("no board to export")

// Exporter writes board PNGs into Dir.
type Exporter struct {
	Dir      string
	Renderer *render.BoardRenderer
}

// Export renders gs and returns the written path. Files are named
// <session prefix>-<move count>.png.
func (e *Exporter) Export(ctx context.Context, sessionID string, gs *dto.GameState) (string, error) {
	if gs == nil {
		return "", ErrNothingToExport
	}
	r := e.Renderer
	if r == nil {
		r = render.NewBoardRenderer(0)
	}
	data, err := r.RenderPNG(ctx, gs, render.DefaultOptions())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	prefix := sessionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "board"
	}
	path := filepath.Join(e.Dir, fmt.Sprintf("%s-%03d.png", prefix, gs.MoveCount))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write board png: %w", err)
	}
	return path, nil
}
