package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/render"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

func testState() *dto.GameState {
	gs := &dto.GameState{CurrentPlayer: dto.Player1, Player1Name: "a.py", Player2Name: "b.py", BlackScore: 2, WhiteScore: 2}
	gs.Board[3][3] = dto.WhiteStone
	gs.Board[4][4] = dto.WhiteStone
	gs.Board[3][4] = dto.BlackStone
	gs.Board[4][3] = dto.BlackStone
	gs.ValidMoves = []dto.Move{{Row: 2, Col: 3}}
	return gs
}

type recPresenter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recPresenter) rec(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recPresenter) RenderSnapshot(*dto.GameState, func(int, int))  { r.rec("render") }
func (r *recPresenter) RenderEndOfGame(*dto.GameState)                 { r.rec("end") }
func (r *recPresenter) ResetView()                                     { r.rec("reset") }
func (r *recPresenter) SetControlEnabled(orchestrator.ControlID, bool) { r.rec("control") }
func (r *recPresenter) SetAutoStepLabel(string)                        { r.rec("label") }
func (r *recPresenter) ShowHumanPrompt(bool)                           { r.rec("prompt") }
func (r *recPresenter) AppendLog(string)                               { r.rec("log") }
func (r *recPresenter) ClearLog()                                      { r.rec("clear") }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestMirrorPublishesToRedis(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "otheller:events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	msgs := sub.Channel()

	view := &recPresenter{}
	m := NewMirror(view, NewEgress(ModeRedis, rdb, "otheller:events", nil, nil))
	m.SetSessionSource(func() string { return "s-1" })

	m.RenderSnapshot(testState(), nil)
	m.AppendLog("Human placed at (2, 3)")
	m.SetControlEnabled(orchestrator.ControlNextMove, false)

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				t.Fatalf("decode: %v", err)
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out, got %d events", len(got))
		}
	}
	if got[0].Kind != KindSnapshot || got[0].State == nil || got[0].State.Player1Name != "a.py" {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[0].SessionID != "s-1" || got[0].ID == "" {
		t.Fatalf("missing ids: %+v", got[0])
	}
	if got[1].Kind != KindLog || got[1].Text != "Human placed at (2, 3)" {
		t.Fatalf("unexpected second event: %+v", got[1])
	}
	if err := m.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	view.mu.Lock()
	defer view.mu.Unlock()
	if strings.Join(view.calls, ",") != "render,log,control" {
		t.Fatalf("presenter calls = %v", view.calls)
	}
}

func TestMirrorAttachesBoardImage(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "boards")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	m := NewMirror(nil, NewEgress(ModeRedis, rdb, "boards", nil, nil), WithBoardImages(render.NewBoardRenderer(24)))
	defer m.Close(ctx)
	m.RenderSnapshot(testState(), nil)

	select {
	case msg := <-sub.Channel():
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.BoardPNG == "" {
			t.Fatalf("expected board image")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out")
	}
}

type blockingEgress struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (b *blockingEgress) Publish(ctx context.Context, ev *Event) error {
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}

func TestMirrorDropsWhenQueueFull(t *testing.T) {
	eg := &blockingEgress{release: make(chan struct{})}
	m := NewMirror(nil, eg, WithQueueSize(1))
	for i := 0; i < 10; i++ {
		m.AppendLog("line")
	}
	close(eg.release)
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	eg.mu.Lock()
	defer eg.mu.Unlock()
	// one in flight plus one queued
	if eg.n < 1 || eg.n > 2 {
		t.Fatalf("published %d events", eg.n)
	}
}

func TestMirrorStatusAndReset(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "ch")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m := NewMirror(nil, NewEgress(ModeRedis, rdb, "ch", nil, nil))
	defer m.Close(ctx)

	m.Status(nil).Report(orchestrator.LevelError, "Error: bad")
	m.ResetView()

	want := []Kind{KindStatus, KindReset}
	for i, k := range want {
		select {
		case msg := <-sub.Channel():
			var ev Event
			_ = json.Unmarshal([]byte(msg.Payload), &ev)
			if ev.Kind != k {
				t.Fatalf("event %d kind = %s, want %s", i, ev.Kind, k)
			}
			if k == KindStatus && (ev.Level != "error" || ev.Text != "Error: bad") {
				t.Fatalf("status event = %+v", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out on %s", k)
		}
	}
}

func TestWebSocketEgressAndAutoFallback(t *testing.T) {
	received := make(chan Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		for {
			var ev Event
			if err := wsjson.Read(r.Context(), c, &ev); err != nil {
				return
			}
			received <- ev
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0, nil)
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ws.Close(ctx)

	_, rdb := newRedis(t)
	eg := NewEgress(ModeAuto, rdb, "ch", ws, nil)
	ev := newEvent(KindLog)
	ev.Text = "hello"
	if err := eg.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case got := <-received:
		if got.Text != "hello" {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ws relay did not receive event")
	}

	// once ws is down, auto falls back to redis
	if err := ws.Close(ctx); err != nil {
		t.Fatalf("close ws: %v", err)
	}
	sub := rdb.Subscribe(ctx, "ch")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := eg.Publish(ctx, newEvent(KindReset)); err != nil {
		t.Fatalf("fallback publish: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		if !strings.Contains(msg.Payload, `"kind":"reset"`) {
			t.Fatalf("payload = %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("redis fallback did not publish")
	}
}

func TestWebSocketSendsProviderHeaders(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Session-Id")
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		_, _, _ = c.Read(r.Context())
	}))
	defer srv.Close()

	ctx := context.Background()
	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0, nil)
	ws.SetHeaderProvider(func() map[string]string {
		return map[string]string{"X-Session-Id": "s-42", "X-Empty": " "}
	})
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ws.Close(ctx)
	select {
	case id := <-got:
		if id != "s-42" {
			t.Fatalf("X-Session-Id = %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handshake never reached the server")
	}
}

func TestWebSocketCloseStopsReconnect(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx := context.Background()
	ws := NewWebSocket(url, 5, nil)
	if err := ws.Connect(ctx); err == nil {
		t.Fatalf("connect to a closed listener succeeded")
	}
	if ws.State() != WSStateReconnecting {
		t.Fatalf("state = %s, want %s", ws.State(), WSStateReconnecting)
	}
	// a second Connect leaves the running reconnect loop alone
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("connect while reconnecting: %v", err)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := ws.Close(closeCtx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ws.Connect(ctx); err != ErrWSClosed {
		t.Fatalf("connect after close: %v", err)
	}
}

func TestNopEgress(t *testing.T) {
	if err := NewEgress(ModeOff, nil, "", nil, nil).Publish(context.Background(), newEvent(KindLog)); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
	if err := NewEgress(ModeWS, nil, "", NewWebSocket("ws://127.0.0.1:1", 0, nil), nil).Publish(context.Background(), newEvent(KindLog)); err != ErrWSNotConnected {
		t.Fatalf("want ErrWSNotConnected, got %v", err)
	}
}

func TestRedisEgressKeepsLastBoard(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	eg := NewEgress(ModeRedis, rdb, "room", nil, nil)

	if ev, err := LastBoard(ctx, rdb, "room"); err != nil || ev != nil {
		t.Fatalf("empty channel: ev=%v err=%v", ev, err)
	}
	snap := newEvent(KindSnapshot)
	snap.State = testState()
	if err := eg.Publish(ctx, snap); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := eg.Publish(ctx, newEvent(KindLog)); err != nil {
		t.Fatalf("publish log: %v", err)
	}
	ev, err := LastBoard(ctx, rdb, "room")
	if err != nil || ev == nil || ev.ID != snap.ID {
		t.Fatalf("last board: ev=%+v err=%v", ev, err)
	}
	if ttl := mr.TTL("room:last"); ttl <= 0 {
		t.Fatalf("ttl=%v", ttl)
	}

	if err := eg.Publish(ctx, newEvent(KindReset)); err != nil {
		t.Fatalf("publish reset: %v", err)
	}
	if mr.Exists("room:last") {
		t.Fatalf("reset must drop the catch-up board")
	}
}
