package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/upload"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// Actions is the orchestrator surface the key bindings drive.
type Actions interface {
	Load(ctx context.Context) error
	NextMove(ctx context.Context) error
	ToggleAutoStepping() error
	ResetSession(ctx context.Context) error
	Snapshot() *dto.GameState
	SessionID() string
}

const (
	pageGame  = "game"
	pageSetup = "setup"
)

// App owns the tview application and routes keys to Actions. Calls that may
// block on the network run on their own goroutine.
type App struct {
	tv       *tview.Application
	pages    *tview.Pages
	view     *View
	form     *upload.Form
	exporter *Exporter
	msgs     *msgcat.Catalog
	logger   *zap.Logger

	actions Actions
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewApp(form *upload.Form, exporter *Exporter, msgs *msgcat.Catalog, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	tv := tview.NewApplication()
	a := &App{
		tv:       tv,
		pages:    tview.NewPages(),
		form:     form,
		exporter: exporter,
		msgs:     msgs,
		logger:   logger,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.view = NewView(tv, msgs, logger)
	a.pages.SetBorder(true).SetTitle(" otheller ")
	a.pages.AddPage(pageGame, a.view.Layout(), true, true)
	a.view.Board().SetInputCapture(a.handleKey)
	return a
}

// View is the Presenter and StatusReporter to hand to the orchestrator.
func (a *App) View() *View { return a.view }

// Bind attaches the orchestrator. It must be called before Run.
func (a *App) Bind(actions Actions) { a.actions = actions }

// Run blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.actions == nil {
		return errors.New("tui: no actions bound")
	}
	go func() {
		select {
		case <-ctx.Done():
			a.tv.Stop()
		case <-a.ctx.Done():
		}
	}()
	err := a.tv.SetRoot(a.pages, true).SetFocus(a.view.Board()).Run()
	a.cancel()
	a.wg.Wait()
	return err
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp:
		a.view.MoveCursor(-1, 0)
		return nil
	case tcell.KeyDown:
		a.view.MoveCursor(1, 0)
		return nil
	case tcell.KeyLeft:
		a.view.MoveCursor(0, -1)
		return nil
	case tcell.KeyRight:
		a.view.MoveCursor(0, 1)
		return nil
	case tcell.KeyEnter:
		a.view.Activate()
		return nil
	case tcell.KeyRune:
	default:
		return event
	}
	switch event.Rune() {
	case 'h':
		a.view.MoveCursor(0, -1)
	case 'j':
		a.view.MoveCursor(1, 0)
	case 'k':
		a.view.MoveCursor(-1, 0)
	case 'l':
		a.view.MoveCursor(0, 1)
	case 'o':
		a.showSetup()
	case ' ':
		a.view.Activate()
	case 'n':
		if a.view.ControlEnabled(orchestrator.ControlNextMove) {
			a.background("next_move", a.actions.NextMove)
		}
	case 'a':
		// the orchestrator reports the refusal even when the control is disabled
		if err := a.actions.ToggleAutoStepping(); err != nil {
			a.logger.Debug("auto_step_toggle", zap.Error(err))
		}
	case 'r':
		a.background("reset", a.actions.ResetSession)
	case 'p':
		a.background("export", a.export)
	case 'q':
		a.tv.Stop()
	default:
		return event
	}
	return nil
}

// background runs fn off the UI goroutine. Failures are already reported to
// the status line by the orchestrator, so only a debug line is logged here.
func (a *App) background(op string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(a.ctx); err != nil {
			a.logger.Debug("tui_action_failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func (a *App) export(ctx context.Context) error {
	if a.exporter == nil {
		return ErrNothingToExport
	}
	path, err := a.exporter.Export(ctx, a.actions.SessionID(), a.actions.Snapshot())
	if err != nil {
		a.view.Report(orchestrator.LevelError, err.Error())
		return err
	}
	a.view.Report(orchestrator.LevelSuccess, a.msgs.Text("status.exported", map[string]any{"Path": path}, "Board saved to "+path))
	return nil
}

func (a *App) showSetup() {
	back := func() {
		a.pages.SwitchToPage(pageGame)
		a.pages.RemovePage(pageSetup)
		a.tv.SetFocus(a.view.Board())
	}
	setup := NewSetupForm(a.form, func() {
		back()
		a.background("load", a.actions.Load)
	}, back)
	a.pages.AddPage(pageSetup, setup.Primitive(), true, true)
}
