package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/park285/otheller-go/internal/broadcast"
	appcfg "github.com/park285/otheller-go/internal/config"
	"github.com/park285/otheller-go/internal/moveservice"
)

// othellocheck probes the move service state endpoint and, when configured,
// the spectator relay.
func main() {
	flagConfig := flag.String("config", "", "path to config.yaml")
	flagWatch := flag.Duration("watch", 10*time.Second, "how long to observe the spectator websocket")
	flagEnv := flag.Bool("env", false, "read configuration from the environment only")
	flag.Parse()

	load := func() (*appcfg.Config, error) { return appcfg.Load(*flagConfig) }
	if *flagEnv {
		load = appcfg.LoadEnv
	}
	cfg, err := load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	client := moveservice.NewClient(cfg.MoveService.URL,
		moveservice.WithTimeout(8*time.Second),
		moveservice.WithRetry(1),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gs, err := client.CurrentState(ctx)
	switch {
	case err != nil:
		log.Printf("/get_state error: %v", err)
	case gs == nil:
		log.Println("/get_state ok: no game loaded")
	default:
		log.Printf("/get_state ok: move=%d to_play=%s black=%d white=%d legal=%d over=%t",
			gs.MoveCount, gs.CurrentPlayer, gs.BlackScore, gs.WhiteScore, len(gs.ValidMoves), gs.IsGameOver)
	}

	if cfg.Spectator.RedisURL != "" {
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := broadcast.NewRedisClient(rctx, cfg.Spectator.RedisURL)
		rcancel()
		if err != nil {
			log.Printf("redis error: %v", err)
		} else {
			log.Printf("redis ok: channel=%s", cfg.Spectator.Channel)
			lctx, lcancel := context.WithTimeout(context.Background(), 3*time.Second)
			last, err := broadcast.LastBoard(lctx, rdb, cfg.Spectator.Channel)
			lcancel()
			switch {
			case err != nil:
				log.Printf("last board error: %v", err)
			case last == nil:
				log.Println("last board: none")
			default:
				log.Printf("last board: session=%s kind=%s at=%s", last.SessionID, last.Kind, last.At.Format(time.RFC3339))
			}
			_ = rdb.Close()
		}
	}

	if cfg.Spectator.WSURL == "" {
		log.Println("SPECTATOR_WS_URL not set; skipping WS check")
		return
	}

	ws := broadcast.NewWebSocket(cfg.Spectator.WSURL, 0, nil)
	ws.OnStateChange(func(state broadcast.WSState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(raw []byte) {
		fmt.Printf("WS msg %s\n", raw)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	t := time.NewTimer(*flagWatch)
	<-t.C

	_ = ws.Close(context.Background())
}
