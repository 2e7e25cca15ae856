package othellodto

import (
	"encoding/json"
	"fmt"
)

// Move is a board coordinate. It travels over the wire as a [row, col] pair.
type Move struct {
	Row int
	Col int
}

func (m Move) InBounds() bool {
	return m.Row >= 0 && m.Row < BoardSize && m.Col >= 0 && m.Col < BoardSize
}

func (m Move) String() string { return fmt.Sprintf("(%d, %d)", m.Row, m.Col) }

func (m Move) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{m.Row, m.Col})
}

func (m *Move) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decode move: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode move: want 2 coordinates, got %d", len(pair))
	}
	m.Row, m.Col = pair[0], pair[1]
	return nil
}
