package othellodto

// StrategiesResult is the reply to an ai-vs-ai strategy upload.
type StrategiesResult struct {
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	Player1Name string     `json:"player1_name"`
	Player2Name string     `json:"player2_name"`
	State       *GameState `json:"state"`
}

// HumanVsAIResult is the reply to a human-vs-ai strategy upload.
type HumanVsAIResult struct {
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	AIName      string     `json:"ai_name"`
	HumanPlayer Player     `json:"human_player"`
	State       *GameState `json:"state"`
}

// PlyResult is the reply to a next-move request.
type PlyResult struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	State   *GameState `json:"state"`
}

// ResetResult is the reply to a reset request.
type ResetResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StateResult is the reply to a state probe.
type StateResult struct {
	State *GameState `json:"state"`
}

// NextMoveRequest is the body of a next-move request.
type NextMoveRequest struct {
	HumanMove *Move `json:"human_move,omitempty"`
}

// StrategyFile is one uploaded strategy source.
type StrategyFile struct {
	Name    string
	Content []byte
}

// StrategyBundle carries the files for a session upload. Player2 is unused in
// human-vs-ai uploads.
type StrategyBundle struct {
	Player1 StrategyFile
	Player2 StrategyFile
}
