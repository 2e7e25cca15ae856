package humaninput

import (
	"context"
	"errors"
	"sync"

	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// ErrTicketCancelled is returned by Wait when the gate was disarmed or
// re-armed before a move arrived.
var ErrTicketCancelled = errors.New("human move ticket cancelled")

// Ticket is a one-shot handoff for a single human move. It settles exactly
// once: either resolved with a move or cancelled.
type Ticket struct {
	once sync.Once
	done chan struct{}
	move dto.Move
	err  error
}

func newTicket() *Ticket { return &Ticket{done: make(chan struct{})} }

func (t *Ticket) settle(m dto.Move, err error) bool {
	settled := false
	t.once.Do(func() {
		t.move, t.err = m, err
		close(t.done)
		settled = true
	})
	return settled
}

// Settled reports whether the ticket was resolved or cancelled.
func (t *Ticket) Settled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the ticket settles or ctx ends.
func (t *Ticket) Wait(ctx context.Context) (dto.Move, error) {
	select {
	case <-t.done:
		return t.move, t.err
	case <-ctx.Done():
		return dto.Move{}, ctx.Err()
	}
}
