package broadcast

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/render"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

const (
	DefaultQueueSize = 64
	publishTimeout   = 5 * time.Second
)

// Mirror is a Presenter that forwards every call to the wrapped presenter and
// queues a spectator event for each visible change. Publishing happens on a
// worker goroutine; a full queue drops the event.
type Mirror struct {
	next    orchestrator.Presenter
	egress  Egress
	logger  *zap.Logger
	images  *render.BoardRenderer
	session func() string

	queue chan *Event
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
}

type MirrorOption func(*Mirror)

func WithQueueSize(n int) MirrorOption {
	return func(m *Mirror) {
		if n > 0 {
			m.queue = make(chan *Event, n)
		}
	}
}

// WithBoardImages attaches a rendered PNG to snapshot and game_over events.
func WithBoardImages(r *render.BoardRenderer) MirrorOption {
	return func(m *Mirror) { m.images = r }
}

func WithMirrorLogger(l *zap.Logger) MirrorOption {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMirror starts the publish worker. next may be nil when there is no local view.
func NewMirror(next orchestrator.Presenter, egress Egress, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		next:   next,
		egress: egress,
		logger: zap.NewNop(),
		queue:  make(chan *Event, DefaultQueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.egress == nil {
		m.egress = nopEgress{}
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// SetSessionSource tags events with the current session id. Set it before the
// first event; the orchestrator is usually built after its presenter.
func (m *Mirror) SetSessionSource(fn func() string) { m.session = fn }

func (m *Mirror) RenderSnapshot(state *dto.GameState, onCell func(row, col int)) {
	if m.next != nil {
		m.next.RenderSnapshot(state, onCell)
	}
	ev := newEvent(KindSnapshot)
	ev.State = state.Clone()
	m.enqueue(ev)
}

func (m *Mirror) RenderEndOfGame(state *dto.GameState) {
	if m.next != nil {
		m.next.RenderEndOfGame(state)
	}
	ev := newEvent(KindGameOver)
	ev.State = state.Clone()
	if w := state.Outcome(); w.Valid() {
		ev.Text = state.PlayerName(w)
	}
	m.enqueue(ev)
}

func (m *Mirror) ResetView() {
	if m.next != nil {
		m.next.ResetView()
	}
	m.enqueue(newEvent(KindReset))
}

func (m *Mirror) SetControlEnabled(id orchestrator.ControlID, enabled bool) {
	if m.next != nil {
		m.next.SetControlEnabled(id, enabled)
	}
}

func (m *Mirror) SetAutoStepLabel(text string) {
	if m.next != nil {
		m.next.SetAutoStepLabel(text)
	}
}

func (m *Mirror) ShowHumanPrompt(visible bool) {
	if m.next != nil {
		m.next.ShowHumanPrompt(visible)
	}
}

func (m *Mirror) AppendLog(line string) {
	if m.next != nil {
		m.next.AppendLog(line)
	}
	ev := newEvent(KindLog)
	ev.Text = line
	m.enqueue(ev)
}

func (m *Mirror) ClearLog() {
	if m.next != nil {
		m.next.ClearLog()
	}
}

// Status wraps a StatusReporter so that status lines are mirrored too.
func (m *Mirror) Status(next orchestrator.StatusReporter) orchestrator.StatusReporter {
	return mirroredStatus{m: m, next: next}
}

type mirroredStatus struct {
	m    *Mirror
	next orchestrator.StatusReporter
}

func (s mirroredStatus) Report(level orchestrator.Level, message string) {
	if s.next != nil {
		s.next.Report(level, message)
	}
	ev := newEvent(KindStatus)
	ev.Level = level.String()
	ev.Text = message
	s.m.enqueue(ev)
}

func (m *Mirror) enqueue(ev *Event) {
	if m.session != nil {
		ev.SessionID = m.session()
	}
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.queue <- ev:
	default:
		m.logger.Warn("spectator_event_dropped", zap.String("kind", string(ev.Kind)), zap.String("id", ev.ID))
	}
}

func (m *Mirror) run() {
	defer m.wg.Done()
	for {
		select {
		case ev := <-m.queue:
			m.publish(ev)
		case <-m.done:
			// drain what is left in the queue
			for {
				select {
				case ev := <-m.queue:
					m.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (m *Mirror) publish(ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if m.images != nil && ev.State != nil && (ev.Kind == KindSnapshot || ev.Kind == KindGameOver) {
		png, err := m.images.RenderPNG(ctx, ev.State, render.DefaultOptions())
		if err != nil {
			m.logger.Warn("spectator_board_render_failed", zap.Error(err))
		} else {
			ev.BoardPNG = base64.StdEncoding.EncodeToString(png)
		}
	}
	if err := m.egress.Publish(ctx, ev); err != nil {
		m.logger.Warn("spectator_publish_failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return
	}
	m.logger.Debug("spectator_published", zap.String("kind", string(ev.Kind)), zap.String("id", ev.ID))
}

// Close stops accepting events and waits for queued ones to be published.
func (m *Mirror) Close(ctx context.Context) error {
	m.closeOnce.Do(func() { close(m.done) })
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ orchestrator.Presenter = (*Mirror)(nil)
