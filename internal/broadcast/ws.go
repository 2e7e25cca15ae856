package broadcast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type WSState string

const (
	WSStateDisconnected WSState = "disconnected"
	WSStateConnecting   WSState = "connecting"
	WSStateConnected    WSState = "connected"
	WSStateReconnecting WSState = "reconnecting"
	WSStateFailed       WSState = "failed"
)

var (
	ErrWSNotConnected = errors.New("ws not connected")
	ErrWSClosed       = errors.New("ws closed")
)

// HeaderProvider injects headers into the handshake.
type HeaderProvider func() map[string]string

// WebSocket is a reconnecting spectator relay connection. Incoming frames
// are handed to OnMessage callbacks; writes are serialized.
type WebSocket struct {
	url    string
	logger *zap.Logger

	conn   *websocket.Conn
	state  WSState
	stateM sync.RWMutex
	writeM sync.Mutex

	msgCbs   []func([]byte)
	stateCbs []func(WSState)
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	headers              HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	lifeM    sync.Mutex
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewWebSocket(url string, maxReconnectAttempts int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		url:                  url,
		logger:               logger,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) OnMessage(cb func([]byte)) {
	ws.cbM.Lock()
	ws.msgCbs = append(ws.msgCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) OnStateChange(cb func(WSState)) {
	ws.cbM.Lock()
	ws.stateCbs = append(ws.stateCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) State() WSState {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool { return ws.State() == WSStateConnected }

// Connect dials once. On failure a background reconnect is scheduled and the
// dial error is returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if ws.isStopping() {
		return ErrWSClosed
	}
	switch ws.State() {
	case WSStateConnected, WSStateConnecting, WSStateReconnecting:
		return nil
	}
	ws.setState(WSStateConnecting)
	if err := ws.dial(ctx); err != nil {
		ws.setState(WSStateFailed)
		ws.logger.Warn("spectator_ws_dial_failed", zap.String("url", ws.url), zap.Error(err))
		ws.scheduleReconnect()
		return err
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return err
	}
	if !ws.track(2) {
		_ = conn.Close(websocket.StatusGoingAway, "closing")
		return ErrWSClosed
	}
	ws.stateM.Lock()
	ws.conn = conn
	ws.stateM.Unlock()
	ws.setState(WSStateConnected)

	go ws.listen(conn)
	go ws.pingLoop(conn)
	return nil
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		_, data, err := conn.Read(ws.rootCtx)
		if err != nil {
			if ws.isStopping() {
				return
			}
			ws.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			ws.scheduleReconnect()
			return
		}
		ws.cbM.RLock()
		cbs := make([]func([]byte), len(ws.msgCbs))
		copy(cbs, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, cb := range cbs {
			cb(data)
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
			if ws.currentConn() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if ws.isStopping() {
					return
				}
				// listen observes the close and reconnects
				ws.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || !ws.track(1) {
		return
	}
	ws.setState(WSStateReconnecting)
	go func() {
		defer ws.wg.Done()
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := ws.dial(ws.rootCtx); err != nil {
				if errors.Is(err, ErrWSClosed) {
					return
				}
				ws.logger.Debug("spectator_ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.logger.Info("spectator_ws_reconnected", zap.Int("attempt", attempt))
			return
		}
		if !ws.isStopping() {
			ws.setState(WSStateFailed)
		}
	}()
}

// track registers n goroutines unless Close has begun.
func (ws *WebSocket) track(n int) bool {
	ws.lifeM.Lock()
	defer ws.lifeM.Unlock()
	if ws.isStopping() {
		return false
	}
	ws.wg.Add(n)
	return true
}

// WriteJSON sends v as one text frame. A deadline of 5s applies when ctx has none.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	conn := ws.currentConn()
	if conn == nil || !ws.Connected() {
		return ErrWSNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(ctx, conn, v)
}

// Close stops the reconnect loop and the connection goroutines and waits for
// them to exit.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.lifeM.Lock()
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.lifeM.Unlock()
	// aborts an in-flight dial or read
	ws.rootCancel()
	if conn := ws.currentConn(); conn != nil {
		ws.dropConn(conn, websocket.StatusNormalClosure, "close")
	}
	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (ws *WebSocket) currentConn() *websocket.Conn {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.conn
}

func (ws *WebSocket) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	ws.stateM.Lock()
	if ws.conn == conn {
		ws.conn = nil
	}
	ws.stateM.Unlock()
	ws.setState(WSStateDisconnected)
	_ = conn.Close(code, reason)
}

func (ws *WebSocket) setState(s WSState) {
	ws.stateM.Lock()
	ws.state = s
	ws.stateM.Unlock()

	ws.cbM.RLock()
	cbs := make([]func(WSState), len(ws.stateCbs))
	copy(cbs, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
