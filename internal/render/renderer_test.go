package render

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"

	dto "github.com/park285/otheller-go/pkg/othellodto"
)

func openingState() *dto.GameState {
	gs := &dto.GameState{CurrentPlayer: dto.Player1, BlackScore: 2, WhiteScore: 2, Player1Name: "greedy", Player2Name: "random"}
	gs.Board[3][3], gs.Board[4][4] = dto.WhiteStone, dto.WhiteStone
	gs.Board[3][4], gs.Board[4][3] = dto.BlackStone, dto.BlackStone
	gs.ValidMoves = []dto.Move{{Row: 2, Col: 3}, {Row: 3, Col: 2}, {Row: 4, Col: 5}, {Row: 5, Col: 4}}
	return gs
}

func luminance(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r*299 + g*587 + b*114) / 1000 >> 8
}

func TestRenderPNGDecodes(t *testing.T) {
	r := NewBoardRenderer(48)
	b, err := r.RenderPNG(context.Background(), openingState(), DefaultOptions())
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, h := r.Size()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("size=%v want %dx%d", img.Bounds(), w, h)
	}
}

func TestStonesAndHints(t *testing.T) {
	r := NewBoardRenderer(48)
	img, err := r.Render(context.Background(), openingState(), DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	cellCenter := func(row, col int) (int, int) { return sideMargin + col*48 + 24, topMargin + row*48 + 24 }

	bx, by := cellCenter(3, 4)
	wx, wy := cellCenter(3, 3)
	black, white := luminance(img.At(bx, by)), luminance(img.At(wx, wy))
	if black >= white {
		t.Fatalf("black stone (%d) should be darker than white (%d)", black, white)
	}

	hx, hy := cellCenter(2, 3)
	ex, ey := cellCenter(0, 0)
	if luminance(img.At(hx, hy)) <= luminance(img.At(ex, ey)) {
		t.Fatalf("legal move hint not visible")
	}
}

func TestRenderNilAndCancelled(t *testing.T) {
	r := NewBoardRenderer(48)
	if _, err := r.Render(context.Background(), nil, DefaultOptions()); err == nil {
		t.Fatalf("expected error for nil state")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, openingState(), DefaultOptions()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestStatusLine(t *testing.T) {
	gs := openingState()
	if got := statusLine(gs); got != "Move 1 | greedy (black) to play" {
		t.Fatalf("got %q", got)
	}
	w := dto.Player2
	gs.IsGameOver, gs.Winner = true, &w
	if got := statusLine(gs); got != "Game over: random wins" {
		t.Fatalf("got %q", got)
	}
}
