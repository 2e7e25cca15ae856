package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/park285/otheller-go/internal/session"
	"github.com/park285/otheller-go/internal/upload"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// SetupForm edits the upload form: mode, strategy paths and the human colour.
type SetupForm struct {
	form *tview.Form
	flex *tview.Flex
}

// NewSetupForm binds fields to f. onLoad runs when the user confirms;
// onCancel returns to the board.
func NewSetupForm(f *upload.Form, onLoad func(), onCancel func()) *SetupForm {
	p1, p2, ai := f.Paths()
	modeIdx := 0
	if f.SelectedMode() == session.ModeHumanVsAI {
		modeIdx = 1
	}
	colorIdx := 0
	if f.HumanColor() == dto.Player2 {
		colorIdx = 1
	}

	form := tview.NewForm()
	form.AddDropDown("Mode", []string{"AI vs AI", "Human vs AI"}, modeIdx, func(_ string, index int) {
		if index == 1 {
			f.SetMode(session.ModeHumanVsAI)
			return
		}
		f.SetMode(session.ModeAIvsAI)
	})
	form.AddInputField("Player 1 (black)", p1, 48, nil, f.SetPlayer1Path)
	form.AddInputField("Player 2 (white)", p2, 48, nil, f.SetPlayer2Path)
	form.AddInputField("AI strategy", ai, 48, nil, f.SetAIPath)
	form.AddDropDown("Your colour", []string{"Black (first)", "White (second)"}, colorIdx, func(_ string, index int) {
		if index == 1 {
			_ = f.SetHumanColor("white")
			return
		}
		_ = f.SetHumanColor("black")
	})
	form.AddButton("Load", onLoad)
	form.AddButton("Cancel", onCancel)

	form.SetBorder(true)
	form.SetTitle(" Load strategies ")
	form.SetTitleAlign(tview.AlignCenter)
	form.SetButtonBackgroundColor(tcell.ColorDarkCyan)
	form.SetButtonTextColor(tcell.ColorWhite)
	form.SetCancelFunc(onCancel)

	help := tview.NewTextView().
		SetText("Tab/Shift+Tab: fields  |  Enter: confirm  |  Esc: back").
		SetTextAlign(tview.AlignCenter)
	help.SetTextColor(tcell.ColorGray)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(help, 1, 0, false)
	return &SetupForm{form: form, flex: flex}
}

func (s *SetupForm) Primitive() tview.Primitive { return s.flex }
