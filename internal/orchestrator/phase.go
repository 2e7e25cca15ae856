package orchestrator

// Phase is the orchestrator state as seen from outside.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingRemotePly
	PhaseAwaitingHuman
	PhaseAutoStepping
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingRemotePly:
		return "awaiting_remote_ply"
	case PhaseAwaitingHuman:
		return "awaiting_human"
	case PhaseAutoStepping:
		return "auto_stepping"
	case PhaseEnded:
		return "ended"
	default:
		return "idle"
	}
}

// Phase derives the current phase. Ended wins over everything; a running
// auto-step timer wins over an in-flight request.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.state.HasSnapshot() && o.state.IsFinished():
		return PhaseEnded
	case o.gate.Waiting():
		return PhaseAwaitingHuman
	case o.state.TimerArmed():
		return PhaseAutoStepping
	case o.pending != 0 || o.state.DeferredPending():
		return PhaseAwaitingRemotePly
	default:
		return PhaseIdle
	}
}
