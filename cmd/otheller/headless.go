package main

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/otheller-go/internal/broadcast"
	appcfg "github.com/park285/otheller-go/internal/config"
	"github.com/park285/otheller-go/internal/moveservice"
	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/session"
	"github.com/park285/otheller-go/internal/upload"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// logPresenter prints the game to the logger and closes done at game over.
type logPresenter struct {
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
}

func (p *logPresenter) RenderSnapshot(gs *dto.GameState, _ func(row, col int)) {
	p.logger.Info("board",
		zap.Int("move", gs.MoveCount),
		zap.Stringer("to_play", gs.CurrentPlayer),
		zap.Int("black", gs.BlackScore),
		zap.Int("white", gs.WhiteScore),
	)
}

func (p *logPresenter) RenderEndOfGame(*dto.GameState)                 { p.once.Do(func() { close(p.done) }) }
func (p *logPresenter) ResetView()                                     {}
func (p *logPresenter) SetControlEnabled(orchestrator.ControlID, bool) {}
func (p *logPresenter) SetAutoStepLabel(string)                        {}
func (p *logPresenter) ShowHumanPrompt(bool)                           {}
func (p *logPresenter) AppendLog(line string)                          { p.logger.Info(line) }
func (p *logPresenter) ClearLog()                                      {}

func (p *logPresenter) Report(level orchestrator.Level, message string) {
	if level == orchestrator.LevelError {
		p.logger.Warn(message)
		return
	}
	p.logger.Info(message)
}

func runHeadless(ctx context.Context, cfg *appcfg.Config, client *moveservice.Client, form *upload.Form, msgs *msgcat.Catalog, egress broadcast.Egress, logger *zap.Logger, sessionID *func() string) error {
	if form.SelectedMode() != session.ModeAIvsAI {
		return errors.New("headless mode plays ai-vs-ai only")
	}
	view := &logPresenter{logger: logger.Named("game"), done: make(chan struct{})}
	mirror := newMirror(view, egress, cfg.Spectator, logger)
	defer closeMirror(mirror)

	orch := orchestrator.New(client, mirror, mirror.Status(view),
		orchestrator.WithControls(form),
		orchestrator.WithCatalog(msgs),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithAutoStepInterval(cfg.Play.AutoStepInterval),
		orchestrator.WithMoveDelay(cfg.Play.MoveDelay),
	)
	defer orch.Close()
	*sessionID = orch.SessionID
	mirror.SetSessionSource(orch.SessionID)

	if err := orch.Load(ctx); err != nil {
		return err
	}
	if orch.Lifecycle() != session.Finished {
		if err := orch.ToggleAutoStepping(); err != nil {
			return err
		}
	} else {
		view.once.Do(func() { close(view.done) })
	}

	select {
	case <-view.done:
		gs := orch.Snapshot()
		logger.Info("headless_done",
			zap.String("session_id", orch.SessionID()),
			zap.Stringer("winner", gs.Outcome()),
			zap.Int("black", gs.BlackScore),
			zap.Int("white", gs.WhiteScore),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
