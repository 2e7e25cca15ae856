package broadcast

import (
	"time"

	"github.com/google/uuid"

	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// Kind labels a spectator event.
type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindGameOver Kind = "game_over"
	KindReset    Kind = "reset"
	KindLog      Kind = "log"
	KindStatus   Kind = "status"
)

// Event is one mirrored view update. BoardPNG is base64 and only present on
// snapshot and game_over events when board images are enabled.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Kind      Kind           `json:"kind"`
	At        time.Time      `json:"at"`
	State     *dto.GameState `json:"state,omitempty"`
	Text      string         `json:"text,omitempty"`
	Level     string         `json:"level,omitempty"`
	BoardPNG  string         `json:"board_png,omitempty"`
}

func newEvent(kind Kind) *Event {
	return &Event{ID: uuid.NewString(), Kind: kind, At: time.Now().UTC()}
}
