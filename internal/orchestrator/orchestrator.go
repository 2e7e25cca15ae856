package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/otheller-go/internal/clock"
	"github.com/park285/otheller-go/internal/humaninput"
	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/session"
	dto "github.com/park285/otheller-go/pkg/othellodto"
	"go.uber.org/zap"
)

const (
	DefaultAutoStepInterval = 1500 * time.Millisecond
	DefaultMoveDelay        = 1000 * time.Millisecond
)

// Outcome is a successful strategy upload, ready to become a session.
type Outcome struct {
	Mode  session.Mode
	State *dto.GameState
}

// Orchestrator is the turn/session state machine. All decisions run under mu;
// remote calls are made with mu released and their replies are applied only
// if they still carry the current request token.
type Orchestrator struct {
	mu sync.Mutex

	svc      MoveService
	view     Presenter
	status   StatusReporter
	controls Controls

	state *session.State
	gate  *humaninput.Gate

	clock  clock.Clock
	msgs   *msgcat.Catalog
	logger *zap.Logger

	autoInterval time.Duration
	moveDelay    time.Duration

	seq     uint64 // last issued ply token
	pending uint64 // token of the in-flight ply, 0 when none
	epoch   uint64 // bumped on session start and reset
	autoTok uint64
	defTok  uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

func WithControls(c Controls) Option { return func(o *Orchestrator) { o.controls = c } }

func WithClock(c clock.Clock) Option { return func(o *Orchestrator) { o.clock = c } }

func WithCatalog(c *msgcat.Catalog) Option { return func(o *Orchestrator) { o.msgs = c } }

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithAutoStepInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.autoInterval = d
		}
	}
}

func WithMoveDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.moveDelay = d
		}
	}
}

func New(svc MoveService, view Presenter, status StatusReporter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:          svc,
		view:         view,
		status:       status,
		state:        session.New(),
		clock:        clock.Real{},
		logger:       zap.NewNop(),
		autoInterval: DefaultAutoStepInterval,
		moveDelay:    DefaultMoveDelay,
		epoch:        1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.msgs == nil {
		o.msgs = msgcat.MustDefault()
	}
	o.gate = humaninput.NewGate(o.state, view, o.msgs, o.logger)
	o.ctx, o.cancel = context.WithCancel(context.Background())
	return o
}

// Gate exposes the human input gate, mainly for front-ends wiring key input.
func (o *Orchestrator) Gate() *humaninput.Gate { return o.gate }

// Snapshot returns a copy of the current snapshot or nil.
func (o *Orchestrator) Snapshot() *dto.GameState { return o.state.Snapshot() }

func (o *Orchestrator) SessionID() string { return o.state.ID() }

func (o *Orchestrator) Mode() session.Mode { return o.state.CurrentMode() }

func (o *Orchestrator) Lifecycle() session.Lifecycle { return o.state.Lifecycle() }

// StartSession replaces any running session with the uploaded outcome.
// ai-vs-ai sessions wait for an explicit next move or auto play; human-vs-ai
// sessions immediately hand the turn to the human or schedule the AI.
func (o *Orchestrator) StartSession(out Outcome) error {
	if out.State == nil {
		return ErrEmptyOutcome
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.teardownLocked()
	o.state.Clear()
	id := o.state.Begin()
	o.state.SetMode(out.Mode)
	gs := out.State.Clone()
	o.state.ReplaceSnapshot(gs)

	o.logger.Info("session_start",
		zap.String("session_id", id),
		zap.String("mode", out.Mode.Kind.String()),
		zap.String("player1", gs.Player1Name),
		zap.String("player2", gs.Player2Name),
	)

	o.view.ClearLog()
	o.view.SetAutoStepLabel(o.autoStartLabel())
	o.view.SetControlEnabled(ControlNextMove, true)
	o.view.SetControlEnabled(ControlAutoStep, true)
	o.view.RenderSnapshot(gs.Clone(), o.clickHandlerLocked())
	o.view.AppendLog(o.msgs.Text("log.game_start", map[string]any{"Player1": gs.Player1Name, "Player2": gs.Player2Name},
		"Game start: "+gs.Player1Name+" vs "+gs.Player2Name))

	if gs.IsGameOver {
		o.endLocked(gs)
		return nil
	}
	if out.Mode.Kind == session.ModeHumanVsAI {
		o.nextActorLocked()
	}
	return nil
}

// AdvancePly requests the next ply, carrying humanMove when set. Only one
// request may be outstanding.
func (o *Orchestrator) AdvancePly(ctx context.Context, humanMove *dto.Move) error {
	return o.advance(ctx, humanMove, 0)
}

// NextMove is the manual "next move" control.
func (o *Orchestrator) NextMove(ctx context.Context) error {
	err := o.advance(ctx, nil, 0)
	if errors.Is(err, ErrNoSession) {
		o.status.Report(LevelError, o.msgs.Text("status.no_session", nil, "No game in progress."))
	}
	return err
}

// advance issues one ply request. A non-zero epoch pins the request to the
// session that scheduled it.
func (o *Orchestrator) advance(ctx context.Context, humanMove *dto.Move, epoch uint64) error {
	o.mu.Lock()
	if epoch != 0 && epoch != o.epoch {
		o.mu.Unlock()
		return ErrStaleResponse
	}
	if !o.state.HasSnapshot() {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.state.IsFinished() {
		o.mu.Unlock()
		return ErrSessionFinished
	}
	if o.pending != 0 {
		o.mu.Unlock()
		return ErrPlyInFlight
	}
	o.seq++
	token := o.seq
	o.pending = token
	// clicks during a request are stray; apply or failure re-arms
	o.gate.Disarm()
	sid := o.state.ID()
	o.mu.Unlock()

	fields := []zap.Field{zap.String("session_id", sid), zap.Uint64("token", token)}
	if humanMove != nil {
		fields = append(fields, zap.Int("row", humanMove.Row), zap.Int("col", humanMove.Col))
	}
	o.logger.Debug("ply_request", fields...)

	gs, err := o.svc.RequestNextPly(ctx, humanMove)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != token {
		o.logger.Info("ply_stale", zap.Uint64("token", token))
		return ErrStaleResponse
	}
	o.pending = 0
	if err == nil && gs == nil {
		err = errors.New("empty state in reply")
	}
	if err != nil {
		o.logger.Warn("ply_failed", zap.String("session_id", sid), zap.Error(err))
		o.reportFailure(err)
		// keep the session resumable: a human turn gets its prompt back
		if o.state.IsHumanTurn() && !o.gate.Waiting() {
			o.armHumanLocked()
		}
		return err
	}
	o.applyLocked(gs)
	return nil
}

// applyLocked replaces the snapshot, then runs the termination check and
// next-actor evaluation without releasing mu.
func (o *Orchestrator) applyLocked(gs *dto.GameState) {
	o.state.CancelDeferred()
	o.state.ReplaceSnapshot(gs)
	o.logger.Info("ply_applied",
		zap.String("session_id", o.state.ID()),
		zap.Int("move_count", gs.MoveCount),
		zap.Stringer("current", gs.CurrentPlayer),
		zap.Int("black", gs.BlackScore),
		zap.Int("white", gs.WhiteScore),
	)
	o.view.RenderSnapshot(gs.Clone(), o.clickHandlerLocked())
	if gs.IsGameOver {
		o.endLocked(gs)
		return
	}
	o.nextActorLocked()
}

func (o *Orchestrator) nextActorLocked() {
	if o.state.CurrentMode().Kind != session.ModeHumanVsAI {
		return
	}
	if o.state.IsHumanTurn() {
		o.armHumanLocked()
		return
	}
	o.gate.Disarm()
	o.scheduleDeferredLocked()
}

func (o *Orchestrator) armHumanLocked() {
	t := o.gate.Arm()
	epoch := o.epoch
	o.wg.Add(1)
	go o.awaitHuman(t, epoch)
}

func (o *Orchestrator) awaitHuman(t *humaninput.Ticket, epoch uint64) {
	defer o.wg.Done()
	mv, err := t.Wait(o.ctx)
	if err != nil {
		return
	}
	if err := o.advance(o.ctx, &mv, epoch); err != nil && !errors.Is(err, ErrStaleResponse) {
		o.logger.Debug("human_ply_not_applied", zap.Error(err))
	}
}

func (o *Orchestrator) scheduleDeferredLocked() {
	o.defTok++
	tok, epoch := o.defTok, o.epoch
	h := o.clock.AfterFunc(o.moveDelay, func() { o.deferredFire(tok, epoch) })
	o.state.ScheduleDeferred(h)
}

func (o *Orchestrator) deferredFire(tok, epoch uint64) {
	o.mu.Lock()
	if tok != o.defTok || epoch != o.epoch || !o.state.DeferredPending() {
		o.mu.Unlock()
		return
	}
	o.state.CancelDeferred()
	o.mu.Unlock()
	if err := o.advance(o.ctx, nil, epoch); err != nil {
		o.logger.Debug("deferred_ply_not_applied", zap.Error(err))
	}
}

// endLocked finalizes a finished game. It runs at most once per session
// because a finished session refuses further plies.
func (o *Orchestrator) endLocked(gs *dto.GameState) {
	o.state.MarkFinished(true)
	o.gate.Disarm()
	o.state.CancelDeferred()
	o.stopAutoLocked()
	o.view.SetControlEnabled(ControlNextMove, false)
	o.view.SetControlEnabled(ControlAutoStep, false)
	o.view.RenderEndOfGame(gs.Clone())

	var line string
	switch w := gs.Outcome(); w {
	case dto.Player1, dto.Player2:
		name := gs.PlayerName(w)
		line = o.msgs.Text("log.game_over_win", map[string]any{"Winner": name}, "Game over: "+name+" wins!")
	default:
		line = o.msgs.Text("log.game_over_draw", nil, "Game over: draw!")
	}
	o.view.AppendLog(line)
	o.logger.Info("game_over",
		zap.String("session_id", o.state.ID()),
		zap.Stringer("winner", gs.Outcome()),
		zap.Int("black", gs.BlackScore),
		zap.Int("white", gs.WhiteScore),
	)
}

// ToggleAutoStepping starts or stops the recurring auto-step timer.
func (o *Orchestrator) ToggleAutoStepping() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.TimerArmed() {
		o.stopAutoLocked()
		o.logger.Info("auto_step_stopped", zap.String("session_id", o.state.ID()))
		return nil
	}
	if !o.state.HasSnapshot() {
		o.status.Report(LevelError, o.msgs.Text("status.no_session", nil, "No game in progress."))
		return ErrNoSession
	}
	if o.state.IsFinished() {
		return ErrSessionFinished
	}
	if o.state.CurrentMode().Kind != session.ModeAIvsAI {
		o.status.Report(LevelError, o.msgs.Text("status.auto_refused", nil, "Auto play is not available in human vs AI mode."))
		return ErrAutoStepRefused
	}

	o.autoTok++
	tok := o.autoTok
	h := o.clock.Every(o.autoInterval, func() { o.autoTick(tok) })
	o.state.ArmTimer(h)
	o.view.SetAutoStepLabel(o.msgs.Text("controls.auto_stop", nil, "Stop"))
	o.logger.Info("auto_step_started", zap.String("session_id", o.state.ID()), zap.Duration("interval", o.autoInterval))
	return nil
}

// AutoStepping reports whether the recurring timer is armed.
func (o *Orchestrator) AutoStepping() bool { return o.state.TimerArmed() }

// autoTick re-checks live state before acting: a tick may race a stop.
func (o *Orchestrator) autoTick(tok uint64) {
	o.mu.Lock()
	if tok != o.autoTok || !o.state.TimerArmed() {
		o.mu.Unlock()
		return
	}
	if !o.state.HasSnapshot() || o.state.IsFinished() {
		o.stopAutoLocked()
		o.mu.Unlock()
		return
	}
	epoch := o.epoch
	o.mu.Unlock()

	err := o.advance(o.ctx, nil, epoch)
	switch {
	case err == nil, errors.Is(err, ErrPlyInFlight):
		// next tick will retry when the current request completes
	default:
		o.logger.Debug("auto_step_tick_skipped", zap.Error(err))
	}
}

func (o *Orchestrator) stopAutoLocked() {
	o.autoTok++
	o.state.DisarmTimer()
	o.view.SetAutoStepLabel(o.autoStartLabel())
}

func (o *Orchestrator) autoStartLabel() string {
	return o.msgs.Text("controls.auto_start", nil, "Auto play")
}

// ResetSession clears local state right away, then asks the service to reset.
// A failed remote reset is reported but does not undo the local reset.
func (o *Orchestrator) ResetSession(ctx context.Context) error {
	o.mu.Lock()
	sid := o.state.ID()
	o.teardownLocked()
	// presenter sees the reset while the session id is still readable
	o.view.ResetView()
	o.view.ClearLog()
	o.view.SetAutoStepLabel(o.autoStartLabel())
	o.view.SetControlEnabled(ControlNextMove, false)
	o.view.SetControlEnabled(ControlAutoStep, false)
	o.state.Clear()
	o.status.Report(LevelLoading, o.msgs.Text("status.reset_ready", nil, "Ready for a new match"))
	o.mu.Unlock()

	o.logger.Info("session_reset", zap.String("session_id", sid))
	if err := o.svc.ResetSession(ctx); err != nil {
		o.logger.Warn("remote_reset_failed", zap.Error(err))
		o.status.Report(LevelError, o.msgs.Text("status.reset_failed", map[string]any{"Error": failureText(err)}, "Reset failed"))
		return err
	}
	return nil
}

// teardownLocked stops everything that could act on the current session and
// invalidates in-flight work.
func (o *Orchestrator) teardownLocked() {
	o.epoch++
	o.pending = 0
	o.defTok++
	o.state.CancelDeferred()
	o.stopAutoLocked()
	o.gate.Disarm()
}

func (o *Orchestrator) clickHandlerLocked() func(row, col int) {
	if o.state.CurrentMode().Kind != session.ModeHumanVsAI {
		return nil
	}
	return o.gate.ClickAdapter()
}

func (o *Orchestrator) reportFailure(err error) {
	var se dto.ServiceError
	if errors.As(err, &se) {
		o.status.Report(LevelError, o.msgs.Text("status.service_error", map[string]any{"Error": se.Error()}, "Error: "+se.Error()))
		return
	}
	o.status.Report(LevelError, o.msgs.Text("status.comm_error", map[string]any{"Error": err.Error()}, "Communication error: "+err.Error()))
}

func failureText(err error) string {
	var se dto.ServiceError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

// Close stops timers, releases a waiting human ticket and waits for
// background goroutines.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.teardownLocked()
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}
