// Package tui is the terminal front-end: an 8x8 board with a cursor, a move
// log, a status line and the load form. It implements the orchestrator's
// Presenter and StatusReporter.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/orchestrator"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

const maxLogLines = 200

// View holds what the screen shows. Presenter calls only mutate this model and
// queue a redraw; widgets are synced on the UI goroutine.
type View struct {
	app    *tview.Application
	msgs   *msgcat.Catalog
	logger *zap.Logger

	mu        sync.Mutex
	state     *dto.GameState
	onCell    func(row, col int)
	finished  bool
	banner    string
	controls  map[orchestrator.ControlID]bool
	autoLabel string
	prompt    bool
	logLines  []string
	status    string
	level     orchestrator.Level
	curRow    int
	curCol    int

	board      *tview.Box
	info       *tview.TextView
	logView    *tview.TextView
	statusView *tview.TextView
	layout     *tview.Flex
}

// NewView builds the widgets. app may be nil in tests; then nothing is queued.
func NewView(app *tview.Application, msgs *msgcat.Catalog, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &View{
		app:       app,
		msgs:      msgs,
		logger:    logger,
		controls:  map[orchestrator.ControlID]bool{},
		autoLabel: msgs.Text("controls.auto_start", nil, "Auto play"),
		curRow:    dto.BoardSize / 2,
		curCol:    dto.BoardSize / 2,
	}
	v.board = newBoardBox(v)

	v.info = tview.NewTextView()
	v.info.SetDynamicColors(true)
	v.info.SetBorder(false)

	v.logView = tview.NewTextView()
	v.logView.SetDynamicColors(true)
	v.logView.SetBorder(true)
	v.logView.SetTitle(" Moves ")
	v.logView.SetTitleAlign(tview.AlignLeft)

	v.statusView = tview.NewTextView()
	v.statusView.SetDynamicColors(true)
	v.statusView.SetBorder(true)
	v.statusView.SetBorderPadding(0, 0, 1, 1)
	v.statusView.SetTitle(" Status ")
	v.statusView.SetTitleAlign(tview.AlignLeft)

	side := tview.NewFlex().SetDirection(tview.FlexRow)
	side.AddItem(v.info, 8, 0, false)
	side.AddItem(v.logView, 0, 1, false)

	boardRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	boardRow.AddItem(v.board, boardWidth+2, 0, true)
	boardRow.AddItem(side, 0, 1, false)

	v.layout = tview.NewFlex().SetDirection(tview.FlexRow)
	v.layout.AddItem(boardRow, 0, 1, true)
	v.layout.AddItem(v.statusView, 3, 0, false)
	v.sync()
	return v
}

// Layout is the root primitive of the game page.
func (v *View) Layout() *tview.Flex { return v.layout }

// Board is the focusable board widget.
func (v *View) Board() *tview.Box { return v.board }

func (v *View) RenderSnapshot(state *dto.GameState, onCell func(row, col int)) {
	v.mu.Lock()
	v.state = state
	v.onCell = onCell
	v.finished = false
	v.banner = ""
	v.mu.Unlock()
	v.refresh()
}

func (v *View) RenderEndOfGame(state *dto.GameState) {
	data := map[string]any{"Black": state.BlackScore, "White": state.WhiteScore}
	var banner string
	if w := state.Outcome(); w.Valid() {
		data["Winner"] = state.PlayerName(w)
		banner = v.msgs.Text("banner.win", data, fmt.Sprintf("%s wins %d-%d", state.PlayerName(w), state.BlackScore, state.WhiteScore))
	} else {
		banner = v.msgs.Text("banner.draw", data, fmt.Sprintf("Draw %d-%d", state.BlackScore, state.WhiteScore))
	}
	v.mu.Lock()
	v.state = state
	v.onCell = nil
	v.finished = true
	v.banner = banner
	v.mu.Unlock()
	v.refresh()
}

func (v *View) ResetView() {
	v.mu.Lock()
	v.state = nil
	v.onCell = nil
	v.finished = false
	v.banner = ""
	v.prompt = false
	v.curRow, v.curCol = dto.BoardSize/2, dto.BoardSize/2
	v.mu.Unlock()
	v.refresh()
}

func (v *View) SetControlEnabled(id orchestrator.ControlID, enabled bool) {
	v.mu.Lock()
	v.controls[id] = enabled
	v.mu.Unlock()
	v.refresh()
}

func (v *View) SetAutoStepLabel(text string) {
	v.mu.Lock()
	v.autoLabel = text
	v.mu.Unlock()
	v.refresh()
}

func (v *View) ShowHumanPrompt(visible bool) {
	v.mu.Lock()
	v.prompt = visible
	v.mu.Unlock()
	v.refresh()
}

func (v *View) AppendLog(line string) {
	v.mu.Lock()
	v.logLines = append(v.logLines, line)
	if len(v.logLines) > maxLogLines {
		v.logLines = v.logLines[len(v.logLines)-maxLogLines:]
	}
	v.mu.Unlock()
	v.refresh()
}

func (v *View) ClearLog() {
	v.mu.Lock()
	v.logLines = nil
	v.mu.Unlock()
	v.refresh()
}

// Report implements orchestrator.StatusReporter.
func (v *View) Report(level orchestrator.Level, message string) {
	v.mu.Lock()
	v.level = level
	v.status = message
	v.mu.Unlock()
	v.refresh()
}

// MoveCursor shifts the selection, clamped to the board.
func (v *View) MoveCursor(dRow, dCol int) {
	v.mu.Lock()
	r, c := v.curRow+dRow, v.curCol+dCol
	if r >= 0 && r < dto.BoardSize {
		v.curRow = r
	}
	if c >= 0 && c < dto.BoardSize {
		v.curCol = c
	}
	v.mu.Unlock()
	v.refresh()
}

// Cursor returns the selected cell.
func (v *View) Cursor() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.curRow, v.curCol
}

// Activate clicks the selected cell. It reports false when no click handler
// is attached (not a human-vs-ai session or the game is over).
func (v *View) Activate() bool {
	v.mu.Lock()
	fn, r, c := v.onCell, v.curRow, v.curCol
	v.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(r, c)
	return true
}

// ControlEnabled reports the last state set for id.
func (v *View) ControlEnabled(id orchestrator.ControlID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls[id]
}

// refresh asks the application to sync and redraw. QueueUpdateDraw blocks
// when called from the UI goroutine with a full queue, so it is sent from
// its own goroutine.
func (v *View) refresh() {
	if v.app == nil {
		return
	}
	go v.app.QueueUpdateDraw(v.sync)
}

func (v *View) sync() {
	v.mu.Lock()
	info := v.infoTextLocked()
	logText := strings.Join(v.logLines, "\n")
	status := v.statusTextLocked()
	v.mu.Unlock()

	v.info.SetText(info)
	v.logView.SetText(logText)
	v.logView.ScrollToEnd()
	v.statusView.SetText(status)
}

func (v *View) infoTextLocked() string {
	var b strings.Builder
	gs := v.state
	if gs == nil {
		b.WriteString("[white::b]No game[-:-:-]\n")
		b.WriteString("[dimgray]o load   q quit[-]\n")
		return b.String()
	}
	fmt.Fprintf(&b, "[white::b]%s[-:-:-] ● %d\n", tview.Escape(nameOr(gs.Player1Name, "Black")), gs.BlackScore)
	fmt.Fprintf(&b, "[white::b]%s[-:-:-] ○ %d\n", tview.Escape(nameOr(gs.Player2Name, "White")), gs.WhiteScore)
	fmt.Fprintf(&b, "[dimgray]move %d[-]\n", gs.MoveCount)
	switch {
	case v.finished:
		fmt.Fprintf(&b, "[yellow::b]%s[-:-:-]\n", tview.Escape(v.banner))
	case v.prompt:
		fmt.Fprintf(&b, "[green]%s[-]\n", tview.Escape(v.msgs.Text("prompt.your_turn", nil, "Your turn: select a highlighted cell.")))
	default:
		fmt.Fprintf(&b, "%s to play\n", tview.Escape(nameOr(gs.PlayerName(gs.CurrentPlayer), gs.CurrentPlayer.Color())))
	}
	b.WriteString("\n")
	b.WriteString(v.controlsLineLocked())
	return b.String()
}

func (v *View) controlsLineLocked() string {
	item := func(key string, label string, enabled bool) string {
		if enabled {
			return fmt.Sprintf("[white]%s[-] %s", key, tview.Escape(label))
		}
		return fmt.Sprintf("[dimgray]%s %s[-]", key, tview.Escape(label))
	}
	return strings.Join([]string{
		item("n", "next", v.controls[orchestrator.ControlNextMove]),
		item("a", v.autoLabel, v.controls[orchestrator.ControlAutoStep]),
	}, "  ") + "\n[dimgray]r reset  o load  p png  q quit[-]"
}

func (v *View) statusTextLocked() string {
	if v.status == "" {
		return ""
	}
	color := "white"
	switch v.level {
	case orchestrator.LevelSuccess:
		color = "green"
	case orchestrator.LevelError:
		color = "red"
	}
	return fmt.Sprintf("[%s]%s[-]", color, tview.Escape(v.status))
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

var (
	_ orchestrator.Presenter      = (*View)(nil)
	_ orchestrator.StatusReporter = (*View)(nil)
)
