package tui

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/render"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

func opening() *dto.GameState {
	gs := &dto.GameState{CurrentPlayer: dto.Player1, Player1Name: "greedy", Player2Name: "random", BlackScore: 2, WhiteScore: 2, MoveCount: 4}
	gs.Board[3][3] = dto.WhiteStone
	gs.Board[4][4] = dto.WhiteStone
	gs.Board[3][4] = dto.BlackStone
	gs.Board[4][3] = dto.BlackStone
	gs.ValidMoves = []dto.Move{{Row: 2, Col: 3}, {Row: 3, Col: 2}}
	return gs
}

func TestViewActivateUsesCursor(t *testing.T) {
	v := NewView(nil, msgcat.MustDefault(), nil)
	if v.Activate() {
		t.Fatalf("no handler attached yet")
	}
	var gotR, gotC = -1, -1
	v.RenderSnapshot(opening(), func(r, c int) { gotR, gotC = r, c })
	v.MoveCursor(-2, -1)
	if !v.Activate() {
		t.Fatalf("expected click to be delivered")
	}
	if gotR != 2 || gotC != 3 {
		t.Fatalf("clicked (%d,%d), want (2,3)", gotR, gotC)
	}

	for i := 0; i < 20; i++ {
		v.MoveCursor(1, 1)
	}
	if r, c := v.Cursor(); r != dto.BoardSize-1 || c != dto.BoardSize-1 {
		t.Fatalf("cursor not clamped: (%d,%d)", r, c)
	}

	v.RenderEndOfGame(opening())
	if v.Activate() {
		t.Fatalf("finished board must not accept clicks")
	}
}

func TestViewTextPanels(t *testing.T) {
	v := NewView(nil, msgcat.MustDefault(), nil)
	v.RenderSnapshot(opening(), nil)
	v.SetControlEnabled(orchestrator.ControlNextMove, true)
	v.SetAutoStepLabel("Stop")
	v.AppendLog("Game start")
	v.Report(orchestrator.LevelError, "Communication error: refused")
	v.sync()

	info := v.info.GetText(true)
	if !strings.Contains(info, "greedy") || !strings.Contains(info, "Stop") {
		t.Fatalf("info = %q", info)
	}
	if got := v.logView.GetText(true); !strings.Contains(got, "Game start") {
		t.Fatalf("log = %q", got)
	}
	if got := v.statusView.GetText(true); !strings.Contains(got, "Communication error: refused") {
		t.Fatalf("status = %q", got)
	}

	v.ShowHumanPrompt(true)
	v.sync()
	if !strings.Contains(v.info.GetText(true), "Your turn") {
		t.Fatalf("prompt not shown: %q", v.info.GetText(true))
	}

	gs := opening()
	w := dto.Player2
	gs.Winner = &w
	gs.IsGameOver = true
	v.RenderEndOfGame(gs)
	v.sync()
	if !strings.Contains(v.info.GetText(true), "random wins 2-2") {
		t.Fatalf("banner missing: %q", v.info.GetText(true))
	}

	v.ClearLog()
	v.ResetView()
	v.sync()
	if v.logView.GetText(true) != "" || !strings.Contains(v.info.GetText(true), "No game") {
		t.Fatalf("reset view not applied")
	}
}

func TestDrawBoard(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(60, 12)

	v := NewView(nil, msgcat.MustDefault(), nil)
	v.RenderSnapshot(opening(), nil)
	v.ShowHumanPrompt(true)
	v.drawBoard(screen, 0, 0)

	cell := func(r, c int) (rune, tcell.Style) {
		ch, _, style, _ := screen.GetContent(3+c*cellWidth+1, 1+r)
		return ch, style
	}
	if ch, style := cell(3, 4); ch != stoneR {
		t.Fatalf("(3,4) = %q", ch)
	} else if fg, _, _ := style.Decompose(); fg != tcell.ColorBlack {
		t.Fatalf("(3,4) fg = %v", fg)
	}
	if ch, style := cell(3, 3); ch != stoneR {
		t.Fatalf("(3,3) = %q", ch)
	} else if fg, _, _ := style.Decompose(); fg != tcell.ColorWhite {
		t.Fatalf("(3,3) fg = %v", fg)
	}
	if ch, _ := cell(2, 3); ch != hintR {
		t.Fatalf("legal move hint missing, got %q", ch)
	}
	if ch, _ := cell(0, 0); ch != ' ' {
		t.Fatalf("(0,0) = %q", ch)
	}
	if ch, _, _, _ := screen.GetContent(3+7*cellWidth+1, 0); ch != '7' {
		t.Fatalf("column label = %q", ch)
	}
}

func TestExporterWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "boards")
	e := &Exporter{Dir: dir, Renderer: render.NewBoardRenderer(24)}
	path, err := e.Export(context.Background(), "0123456789abcdef", opening())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "01234567-004.png" {
		t.Fatalf("path = %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := e.Export(context.Background(), "x", nil); err != ErrNothingToExport {
		t.Fatalf("want ErrNothingToExport, got %v", err)
	}
}
