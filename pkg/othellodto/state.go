package othellodto

// GameState is one full snapshot as returned by the move service. A new
// snapshot always replaces the previous one as a whole.
type GameState struct {
	Board         [BoardSize][BoardSize]Cell `json:"board"`
	CurrentPlayer Player                     `json:"current_player"`
	BlackScore    int                        `json:"black_score"`
	WhiteScore    int                        `json:"white_score"`
	ValidMoves    []Move                     `json:"valid_moves"`
	IsGameOver    bool                       `json:"is_game_over"`
	// Winner is nil while the game is running; NoPlayer means a draw.
	Winner      *Player `json:"winner"`
	Player1Name string  `json:"player1_name"`
	Player2Name string  `json:"player2_name"`
	MoveCount   int     `json:"move_count"`

	LastMove      *Move  `json:"last_move,omitempty"`
	FlippedStones []Move `json:"flipped_stones,omitempty"`

	IsHumanVsAI     bool   `json:"is_human_vs_ai,omitempty"`
	HumanPlayer     Player `json:"human_player,omitempty"`
	WaitingForHuman bool   `json:"waiting_for_human,omitempty"`
}

// IsLegal reports whether (row, col) is in the service-provided legal move set.
func (s *GameState) IsLegal(row, col int) bool {
	if s == nil {
		return false
	}
	for _, m := range s.ValidMoves {
		if m.Row == row && m.Col == col {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold a snapshot without sharing slices.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	cp := *s
	if s.ValidMoves != nil {
		cp.ValidMoves = append([]Move(nil), s.ValidMoves...)
	}
	if s.FlippedStones != nil {
		cp.FlippedStones = append([]Move(nil), s.FlippedStones...)
	}
	if s.LastMove != nil {
		lm := *s.LastMove
		cp.LastMove = &lm
	}
	if s.Winner != nil {
		w := *s.Winner
		cp.Winner = &w
	}
	return &cp
}

// PlayerName returns the display name for p.
func (s *GameState) PlayerName(p Player) string {
	if s == nil {
		return ""
	}
	switch p {
	case Player1:
		return s.Player1Name
	case Player2:
		return s.Player2Name
	default:
		return ""
	}
}

// Score returns the stone count for p.
func (s *GameState) Score(p Player) int {
	if s == nil {
		return 0
	}
	switch p {
	case Player1:
		return s.BlackScore
	case Player2:
		return s.WhiteScore
	default:
		return 0
	}
}

// Outcome summarises a finished game: the winning player, or NoPlayer for a draw.
func (s *GameState) Outcome() Player {
	if s == nil || s.Winner == nil {
		return NoPlayer
	}
	switch *s.Winner {
	case Player1, Player2:
		return *s.Winner
	default:
		return NoPlayer
	}
}
