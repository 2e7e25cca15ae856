package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Egress delivers spectator events to a relay.
type Egress interface {
	Publish(ctx context.Context, ev *Event) error
}

const (
	ModeOff   = "off"
	ModeRedis = "redis"
	ModeWS    = "ws"
	ModeAuto  = "auto"
)

// NewEgress picks an egress for mode. auto prefers the WebSocket while it is
// connected and falls back to Redis once per event.
func NewEgress(mode string, rdb *redis.Client, channel string, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeRedis:
		return &redisEgress{rdb: rdb, channel: channel}
	case ModeWS:
		return &wsEgress{ws: ws}
	case ModeAuto:
		return &autoEgress{
			ws:     &wsEgress{ws: ws},
			redis:  &redisEgress{rdb: rdb, channel: channel},
			logger: logger,
		}
	default:
		return nopEgress{}
	}
}

// NewRedisClient parses a redis:// or rediss:// URL and pings the server.
func NewRedisClient(ctx context.Context, raw string) (*redis.Client, error) {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// lastTTL bounds how long the catch-up board survives an idle client.
const lastTTL = 24 * time.Hour

type redisEgress struct {
	rdb     *redis.Client
	channel string
}

func lastKey(channel string) string { return channel + ":last" }

// Publish sends ev on the channel. Board-changing events are also stored
// under <channel>:last so a late spectator can catch up.
func (r *redisEgress) Publish(ctx context.Context, ev *Event) error {
	if r == nil || r.rdb == nil {
		return errors.New("redis egress not available")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	switch ev.Kind {
	case KindSnapshot, KindGameOver:
		pipe := r.rdb.TxPipeline()
		pipe.Set(ctx, lastKey(r.channel), payload, lastTTL)
		pipe.Publish(ctx, r.channel, payload)
		_, err = pipe.Exec(ctx)
		return err
	case KindReset:
		pipe := r.rdb.TxPipeline()
		pipe.Del(ctx, lastKey(r.channel))
		pipe.Publish(ctx, r.channel, payload)
		_, err = pipe.Exec(ctx)
		return err
	default:
		return r.rdb.Publish(ctx, r.channel, payload).Err()
	}
}

// LastBoard returns the most recent snapshot or game_over event stored for
// channel, or nil when there is none.
func LastBoard(ctx context.Context, rdb *redis.Client, channel string) (*Event, error) {
	raw, err := rdb.Get(ctx, lastKey(channel)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode last event: %w", err)
	}
	return &ev, nil
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) Publish(ctx context.Context, ev *Event) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	return w.ws.WriteJSON(ctx, ev)
}

type autoEgress struct {
	ws     *wsEgress
	redis  *redisEgress
	logger *zap.Logger
}

func (a *autoEgress) Publish(ctx context.Context, ev *Event) error {
	if a.ws != nil && a.ws.ws != nil && a.ws.ws.Connected() {
		err := a.ws.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		a.logger.Warn("spectator_egress_fallback", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
	return a.redis.Publish(ctx, ev)
}

type nopEgress struct{}

func (nopEgress) Publish(context.Context, *Event) error { return nil }
