package humaninput

import (
	"sync"

	"github.com/park285/otheller-go/internal/msgcat"
	dto "github.com/park285/otheller-go/pkg/othellodto"
	"go.uber.org/zap"
)

// TurnSource answers whose turn it is and whether a cell is playable,
// from the current snapshot.
type TurnSource interface {
	IsHumanTurn() bool
	IsLegalMove(row, col int) bool
}

// Prompter is the slice of the presenter the gate drives.
type Prompter interface {
	ShowHumanPrompt(visible bool)
	AppendLog(line string)
}

// Gate admits human moves only while one is expected. It holds at most one
// pending ticket; arming again cancels the previous one.
type Gate struct {
	mu     sync.Mutex
	turns  TurnSource
	prompt Prompter
	msgs   *msgcat.Catalog
	logger *zap.Logger
	ticket *Ticket
}

func NewGate(turns TurnSource, prompt Prompter, msgs *msgcat.Catalog, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{turns: turns, prompt: prompt, msgs: msgs, logger: logger}
}

// Arm starts waiting for a human move and shows the prompt. The returned
// ticket resolves on the next accepted AttemptMove.
func (g *Gate) Arm() *Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ticket != nil {
		g.ticket.settle(dto.Move{}, ErrTicketCancelled)
	}
	g.ticket = newTicket()
	if g.prompt != nil {
		g.prompt.ShowHumanPrompt(true)
	}
	return g.ticket
}

// Disarm stops waiting and hides the prompt. Safe to call repeatedly.
func (g *Gate) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ticket == nil {
		return
	}
	g.ticket.settle(dto.Move{}, ErrTicketCancelled)
	g.ticket = nil
	if g.prompt != nil {
		g.prompt.ShowHumanPrompt(false)
	}
}

func (g *Gate) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ticket != nil
}

// AttemptMove accepts (row, col) only while waiting and only if the cell is
// in the current legal move set. Rejections have no side effects.
func (g *Gate) AttemptMove(row, col int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ticket == nil || !g.turns.IsLegalMove(row, col) {
		return false
	}
	t := g.ticket
	g.ticket = nil

	mv := dto.Move{Row: row, Col: col}
	g.logger.Info("human_move", zap.Int("row", row), zap.Int("col", col))
	if g.prompt != nil {
		g.prompt.AppendLog(g.msgs.Text("log.human_move", map[string]any{"Row": row, "Col": col}, "Human placed at "+mv.String()))
		g.prompt.ShowHumanPrompt(false)
	}
	t.settle(mv, nil)
	return true
}

// ClickAdapter returns the board click handler. It forwards to AttemptMove
// only on the human's turn.
func (g *Gate) ClickAdapter() func(row, col int) {
	return func(row, col int) {
		if !g.turns.IsHumanTurn() {
			return
		}
		g.AttemptMove(row, col)
	}
}
