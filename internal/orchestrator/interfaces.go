package orchestrator

import (
	"context"

	"github.com/park285/otheller-go/internal/session"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// MoveService executes plies remotely. A reply with success=false is returned
// as dto.ServiceError; any other error is a transport failure.
type MoveService interface {
	SubmitStrategies(ctx context.Context, bundle dto.StrategyBundle) (*dto.StrategiesResult, error)
	SubmitHumanVsAI(ctx context.Context, ai dto.StrategyFile, human dto.Player) (*dto.HumanVsAIResult, error)
	RequestNextPly(ctx context.Context, humanMove *dto.Move) (*dto.GameState, error)
	ResetSession(ctx context.Context) error
}

// ControlID names a UI control the orchestrator toggles.
type ControlID string

const (
	ControlNextMove ControlID = "next-move"
	ControlAutoStep ControlID = "auto-step"
)

// Presenter draws the board and the surrounding controls. Calls are made
// while orchestration state is locked and must not call back into the
// orchestrator synchronously.
type Presenter interface {
	RenderSnapshot(state *dto.GameState, onCell func(row, col int))
	RenderEndOfGame(state *dto.GameState)
	ResetView()
	SetControlEnabled(id ControlID, enabled bool)
	SetAutoStepLabel(text string)
	ShowHumanPrompt(visible bool)
	AppendLog(line string)
	ClearLog()
}

// Level classifies a status message.
type Level int

const (
	LevelLoading Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "loading"
	}
}

// StatusReporter surfaces transient status text.
type StatusReporter interface {
	Report(level Level, message string)
}

// Controls exposes the upload form: readiness checks, payload extraction and
// the selected mode.
type Controls interface {
	StrategiesReady() bool
	HumanVsAIReady() bool
	StrategyBundle() (dto.StrategyBundle, error)
	AIStrategy() (dto.StrategyFile, error)
	SelectedMode() session.ModeKind
	HumanColor() dto.Player
}
