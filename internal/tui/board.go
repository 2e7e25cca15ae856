package tui

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	dto "github.com/park285/otheller-go/pkg/othellodto"
)

const (
	cellWidth  = 3
	boardWidth = dto.BoardSize*cellWidth + 3
)

var (
	boardStyle = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorBlack)
	altStyle   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	cursorBG   = tcell.ColorOlive
	lastMoveBG = tcell.ColorTeal
	hintFG     = tcell.ColorLightGreen
	labelStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stoneR     = '●'
	hintR      = '·'
)

func newBoardBox(v *View) *tview.Box {
	box := tview.NewBox()
	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		v.drawBoard(screen, x, y)
		return x, y, width, height
	})
	return box
}

// drawBoard paints coordinates on the top row and left column, then one
// cell per square.
func (v *View) drawBoard(screen tcell.Screen, x, y int) {
	v.mu.Lock()
	gs := v.state
	curR, curC := v.curRow, v.curCol
	prompt := v.prompt
	v.mu.Unlock()

	for c := 0; c < dto.BoardSize; c++ {
		screen.SetContent(x+3+c*cellWidth+1, y, rune('0'+c), nil, labelStyle)
	}
	for r := 0; r < dto.BoardSize; r++ {
		label := strconv.Itoa(r)
		screen.SetContent(x+1, y+1+r, rune(label[0]), nil, labelStyle)
		for c := 0; c < dto.BoardSize; c++ {
			style := boardStyle
			if (r+c)%2 == 1 {
				style = altStyle
			}
			ch := ' '
			if gs != nil {
				switch gs.Board[r][c] {
				case dto.BlackStone:
					ch = stoneR
					style = style.Foreground(tcell.ColorBlack)
				case dto.WhiteStone:
					ch = stoneR
					style = style.Foreground(tcell.ColorWhite)
				default:
					if prompt && gs.IsLegal(r, c) {
						ch = hintR
						style = style.Foreground(hintFG)
					}
				}
				if gs.LastMove != nil && gs.LastMove.Row == r && gs.LastMove.Col == c {
					style = style.Background(lastMoveBG)
				}
			}
			if r == curR && c == curC {
				style = style.Background(cursorBG)
			}
			cx := x + 3 + c*cellWidth
			screen.SetContent(cx, y+1+r, ' ', nil, style)
			screen.SetContent(cx+1, y+1+r, ch, nil, style)
			screen.SetContent(cx+2, y+1+r, ' ', nil, style)
		}
	}
}
