package othellodto

import "fmt"

// BoardSize is the edge length of the Othello board.
const BoardSize = 8

// Player identifies a side. Player1 plays black, Player2 plays white.
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Color returns the stone colour name used by the move service ("black" / "white").
func (p Player) Color() string {
	switch p {
	case Player1:
		return "black"
	case Player2:
		return "white"
	default:
		return ""
	}
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// ParseColor maps a colour choice to its player. Accepts black/white and the
// short b/w forms.
func ParseColor(s string) (Player, error) {
	switch s {
	case "black", "b", "BLACK", "Black", "B":
		return Player1, nil
	case "white", "w", "WHITE", "White", "W":
		return Player2, nil
	default:
		return NoPlayer, fmt.Errorf("unknown color: %q", s)
	}
}

// Cell is a board square value.
type Cell int

const (
	Empty      Cell = 0
	BlackStone Cell = 1
	WhiteStone Cell = 2
)

// Owner returns which player holds the cell, NoPlayer when empty.
func (c Cell) Owner() Player {
	switch c {
	case BlackStone:
		return Player1
	case WhiteStone:
		return Player2
	default:
		return NoPlayer
	}
}
