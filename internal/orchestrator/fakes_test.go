package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/otheller-go/internal/clock"
	"github.com/park285/otheller-go/internal/session"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

type plyReply struct {
	state *dto.GameState
	err   error
}

type fakeService struct {
	mu       sync.Mutex
	replies  []plyReply
	moves    []*dto.Move
	resets   int
	resetErr error

	strategies *dto.StrategiesResult
	humanVsAI  *dto.HumanVsAIResult
	uploadErr  error
	lastColor  dto.Player

	// when block is set, RequestNextPly signals entered and waits for release
	block   bool
	entered chan struct{}
	release chan struct{}
}

func newFakeService(replies ...plyReply) *fakeService {
	return &fakeService{replies: replies, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (f *fakeService) SubmitStrategies(ctx context.Context, b dto.StrategyBundle) (*dto.StrategiesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strategies, f.uploadErr
}

func (f *fakeService) SubmitHumanVsAI(ctx context.Context, ai dto.StrategyFile, human dto.Player) (*dto.HumanVsAIResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastColor = human
	return f.humanVsAI, f.uploadErr
}

func (f *fakeService) RequestNextPly(ctx context.Context, mv *dto.Move) (*dto.GameState, error) {
	f.mu.Lock()
	f.moves = append(f.moves, mv)
	block := f.block
	var r plyReply
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	} else {
		r = plyReply{err: errors.New("no scripted reply")}
	}
	f.mu.Unlock()
	if block {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.state, r.err
}

func (f *fakeService) ResetSession(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moves)
}

func (f *fakeService) move(i int) *dto.Move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moves[i]
}

type recView struct {
	mu         sync.Mutex
	renders    []*dto.GameState
	clickable  []bool
	endings    int
	resets     int
	controls   map[ControlID]bool
	autoLabels []string
	prompt     bool
	logs       []string

	onReset func()
}

func newRecView() *recView { return &recView{controls: map[ControlID]bool{}} }

func (v *recView) RenderSnapshot(s *dto.GameState, onCell func(int, int)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, s)
	v.clickable = append(v.clickable, onCell != nil)
}
func (v *recView) RenderEndOfGame(*dto.GameState) { v.mu.Lock(); v.endings++; v.mu.Unlock() }
func (v *recView) ResetView() {
	v.mu.Lock()
	v.resets++
	hook := v.onReset
	v.mu.Unlock()
	if hook != nil {
		hook()
	}
}
func (v *recView) SetControlEnabled(id ControlID, on bool) {
	v.mu.Lock()
	v.controls[id] = on
	v.mu.Unlock()
}
func (v *recView) SetAutoStepLabel(s string) {
	v.mu.Lock()
	v.autoLabels = append(v.autoLabels, s)
	v.mu.Unlock()
}
func (v *recView) ShowHumanPrompt(on bool) { v.mu.Lock(); v.prompt = on; v.mu.Unlock() }
func (v *recView) AppendLog(s string)      { v.mu.Lock(); v.logs = append(v.logs, s); v.mu.Unlock() }
func (v *recView) ClearLog()               { v.mu.Lock(); v.logs = nil; v.mu.Unlock() }

func (v *recView) lastLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.autoLabels) == 0 {
		return ""
	}
	return v.autoLabels[len(v.autoLabels)-1]
}

func (v *recView) lastLog() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.logs) == 0 {
		return ""
	}
	return v.logs[len(v.logs)-1]
}

func (v *recView) endCount() int { v.mu.Lock(); defer v.mu.Unlock(); return v.endings }

type statusLine struct {
	level Level
	msg   string
}

type recStatus struct {
	mu    sync.Mutex
	lines []statusLine
}

func (r *recStatus) Report(l Level, m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, statusLine{l, m})
}

func (r *recStatus) last() statusLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return statusLine{}
	}
	return r.lines[len(r.lines)-1]
}

type fakeControls struct {
	ready bool
	mode  session.ModeKind
	color dto.Player
}

func (c *fakeControls) StrategiesReady() bool { return c.ready }
func (c *fakeControls) HumanVsAIReady() bool  { return c.ready }
func (c *fakeControls) StrategyBundle() (dto.StrategyBundle, error) {
	return dto.StrategyBundle{Player1: dto.StrategyFile{Name: "a.py"}, Player2: dto.StrategyFile{Name: "b.py"}}, nil
}
func (c *fakeControls) AIStrategy() (dto.StrategyFile, error) {
	return dto.StrategyFile{Name: "ai.py"}, nil
}
func (c *fakeControls) SelectedMode() session.ModeKind { return c.mode }
func (c *fakeControls) HumanColor() dto.Player         { return c.color }

type harness struct {
	o      *Orchestrator
	svc    *fakeService
	view   *recView
	status *recStatus
	clk    *clock.Manual
}

func newHarness(t *testing.T, svc *fakeService, opts ...Option) *harness {
	t.Helper()
	h := &harness{svc: svc, view: newRecView(), status: &recStatus{}, clk: clock.NewManual()}
	opts = append([]Option{WithClock(h.clk)}, opts...)
	h.o = New(svc, h.view, h.status, opts...)
	t.Cleanup(h.o.Close)
	return h
}

func st(current dto.Player, moveCount int, moves ...dto.Move) *dto.GameState {
	return &dto.GameState{
		CurrentPlayer: current,
		ValidMoves:    moves,
		MoveCount:     moveCount,
		Player1Name:   "A",
		Player2Name:   "B",
		BlackScore:    2,
		WhiteScore:    2,
	}
}

func over(winner dto.Player, moveCount int) *dto.GameState {
	w := winner
	return &dto.GameState{IsGameOver: true, Winner: &w, MoveCount: moveCount, Player1Name: "A", Player2Name: "B", BlackScore: 40, WhiteScore: 24}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
