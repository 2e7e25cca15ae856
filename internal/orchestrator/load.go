package orchestrator

import (
	"context"

	"github.com/park285/otheller-go/internal/session"
	dto "github.com/park285/otheller-go/pkg/othellodto"
	"go.uber.org/zap"
)

// Load uploads strategies for whichever mode the controls have selected.
func (o *Orchestrator) Load(ctx context.Context) error {
	if o.controls == nil {
		return ErrNoControls
	}
	if o.controls.SelectedMode() == session.ModeHumanVsAI {
		return o.LoadHumanVsAI(ctx)
	}
	return o.LoadStrategies(ctx)
}

// LoadStrategies uploads both strategy files and starts an ai-vs-ai session.
func (o *Orchestrator) LoadStrategies(ctx context.Context) error {
	if o.controls == nil {
		return ErrNoControls
	}
	if !o.controls.StrategiesReady() {
		o.status.Report(LevelError, o.msgs.Text("status.need_both_files", nil, "Select both strategy files."))
		return ErrUploadInvalid
	}
	bundle, err := o.controls.StrategyBundle()
	if err != nil {
		o.status.Report(LevelError, o.msgs.Text("status.read_failed", map[string]any{"Error": err.Error()}, "Could not read strategy files"))
		return err
	}

	o.status.Report(LevelLoading, o.msgs.Text("status.uploading", nil, "Uploading strategy files..."))
	res, err := o.svc.SubmitStrategies(ctx, bundle)
	if err != nil {
		o.logger.Warn("upload_failed", zap.String("mode", session.ModeAIvsAI.String()), zap.Error(err))
		o.reportFailure(err)
		return err
	}
	if res.State == nil {
		o.reportFailure(dto.ServiceError{Op: "upload_strategies", Message: "no state in reply"})
		return ErrEmptyOutcome
	}
	p1, p2 := pick(res.Player1Name, res.State.Player1Name), pick(res.Player2Name, res.State.Player2Name)
	o.status.Report(LevelSuccess, o.msgs.Text("status.strategies_loaded", map[string]any{"Player1": p1, "Player2": p2},
		"Strategies loaded: "+p1+" vs "+p2))
	return o.StartSession(Outcome{Mode: session.AIvsAI(), State: res.State})
}

// LoadHumanVsAI uploads the AI strategy with the human's colour and starts a
// human-vs-ai session.
func (o *Orchestrator) LoadHumanVsAI(ctx context.Context) error {
	if o.controls == nil {
		return ErrNoControls
	}
	if !o.controls.HumanVsAIReady() {
		o.status.Report(LevelError, o.msgs.Text("status.need_ai_file", nil, "Select the AI strategy file."))
		return ErrUploadInvalid
	}
	ai, err := o.controls.AIStrategy()
	if err != nil {
		o.status.Report(LevelError, o.msgs.Text("status.read_failed", map[string]any{"Error": err.Error()}, "Could not read strategy files"))
		return err
	}
	color := o.controls.HumanColor()
	if !color.Valid() {
		color = dto.Player1
	}

	o.status.Report(LevelLoading, o.msgs.Text("status.uploading", nil, "Uploading strategy files..."))
	res, err := o.svc.SubmitHumanVsAI(ctx, ai, color)
	if err != nil {
		o.logger.Warn("upload_failed", zap.String("mode", session.ModeHumanVsAI.String()), zap.Error(err))
		o.reportFailure(err)
		return err
	}
	if res.State == nil {
		o.reportFailure(dto.ServiceError{Op: "upload_human_vs_ai", Message: "no state in reply"})
		return ErrEmptyOutcome
	}
	human := res.HumanPlayer
	if !human.Valid() {
		human = color
	}
	o.status.Report(LevelSuccess, o.msgs.Text("status.human_vs_ai_ready", map[string]any{"Color": human.Color(), "AI": res.AIName},
		"Ready: Human vs "+res.AIName))
	return o.StartSession(Outcome{Mode: session.HumanVsAI(human), State: res.State})
}

func pick(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
