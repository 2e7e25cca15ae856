package session

import (
	"sync"

	"github.com/google/uuid"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// ModeKind selects who drives the moves in a session.
type ModeKind int

const (
	ModeUnset ModeKind = iota
	ModeAIvsAI
	ModeHumanVsAI
)

func (k ModeKind) String() string {
	switch k {
	case ModeAIvsAI:
		return "ai-vs-ai"
	case ModeHumanVsAI:
		return "human-vs-ai"
	default:
		return "unset"
	}
}

// Mode is the session mode. Human is only meaningful for ModeHumanVsAI.
type Mode struct {
	Kind  ModeKind
	Human dto.Player
}

func AIvsAI() Mode { return Mode{Kind: ModeAIvsAI} }

func HumanVsAI(human dto.Player) Mode { return Mode{Kind: ModeHumanVsAI, Human: human} }

// Lifecycle is NoSession -> Active -> Finished.
type Lifecycle int

const (
	NoSession Lifecycle = iota
	Active
	Finished
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "no_session"
	}
}

// TimerHandle is anything that can cancel a scheduled task.
type TimerHandle interface {
	Stop() bool
}

// State holds the current snapshot and session flags. It has no policy of
// its own; the orchestrator decides when to mutate it.
type State struct {
	mu       sync.RWMutex
	id       string
	snapshot *dto.GameState
	mode     Mode
	finished bool
	timer    TimerHandle
	deferred TimerHandle
}

func New() *State { return &State{} }

// Begin assigns a fresh session id.
func (s *State) Begin() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return id
}

func (s *State) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// ReplaceSnapshot overwrites the current snapshot unconditionally.
func (s *State) ReplaceSnapshot(gs *dto.GameState) {
	s.mu.Lock()
	s.snapshot = gs
	s.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot, nil when none is held.
func (s *State) Snapshot() *dto.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

func (s *State) HasSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

func (s *State) MarkFinished(v bool) {
	s.mu.Lock()
	s.finished = v
	s.mu.Unlock()
}

func (s *State) IsFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

func (s *State) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *State) CurrentMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Lifecycle derives the lifecycle from the held snapshot and finished flag.
func (s *State) Lifecycle() Lifecycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.snapshot == nil:
		return NoSession
	case s.finished:
		return Finished
	default:
		return Active
	}
}

// IsHumanTurn is true iff the mode is human-vs-ai, a snapshot exists and it
// is the configured human's move.
func (s *State) IsHumanTurn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode.Kind == ModeHumanVsAI && s.snapshot != nil && s.snapshot.CurrentPlayer == s.mode.Human
}

// IsLegalMove checks (row, col) against the snapshot's legal move set.
func (s *State) IsLegalMove(row, col int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.IsLegal(row, col)
}

// ArmTimer stores h, stopping any handle it replaces.
func (s *State) ArmTimer(h TimerHandle) {
	s.mu.Lock()
	prev := s.timer
	s.timer = h
	s.mu.Unlock()
	if prev != nil && prev != h {
		prev.Stop()
	}
}

// DisarmTimer stops and clears the stored handle. Returns false if nothing was armed.
func (s *State) DisarmTimer() bool {
	s.mu.Lock()
	h := s.timer
	s.timer = nil
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h.Stop()
	return true
}

func (s *State) TimerArmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timer != nil
}

// ScheduleDeferred stores the handle of a one-shot deferred ply, stopping any
// handle it replaces.
func (s *State) ScheduleDeferred(h TimerHandle) {
	s.mu.Lock()
	prev := s.deferred
	s.deferred = h
	s.mu.Unlock()
	if prev != nil && prev != h {
		prev.Stop()
	}
}

// CancelDeferred stops and clears the deferred ply handle.
func (s *State) CancelDeferred() bool {
	s.mu.Lock()
	h := s.deferred
	s.deferred = nil
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h.Stop()
	return true
}

func (s *State) DeferredPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deferred != nil
}

// Clear returns to NoSession: snapshot, mode, finished flag and session id are dropped.
// Stored timers are stopped.
func (s *State) Clear() {
	s.mu.Lock()
	h, d := s.timer, s.deferred
	s.timer, s.deferred = nil, nil
	s.snapshot = nil
	s.mode = Mode{}
	s.finished = false
	s.id = ""
	s.mu.Unlock()
	if h != nil {
		h.Stop()
	}
	if d != nil {
		d.Stop()
	}
}
