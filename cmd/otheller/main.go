package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/otheller-go/internal/broadcast"
	appcfg "github.com/park285/otheller-go/internal/config"
	"github.com/park285/otheller-go/internal/moveservice"
	"github.com/park285/otheller-go/internal/msgcat"
	"github.com/park285/otheller-go/internal/obslog"
	"github.com/park285/otheller-go/internal/orchestrator"
	"github.com/park285/otheller-go/internal/render"
	"github.com/park285/otheller-go/internal/session"
	"github.com/park285/otheller-go/internal/tui"
	"github.com/park285/otheller-go/internal/upload"
)

var _ orchestrator.MoveService = (*moveservice.Client)(nil)

func main() {
	var (
		flagConfig   = flag.String("config", "", "path to config.yaml")
		flagP1       = flag.String("p1", "", "player 1 (black) strategy file")
		flagP2       = flag.String("p2", "", "player 2 (white) strategy file")
		flagAI       = flag.String("ai", "", "AI strategy file for human vs AI")
		flagHuman    = flag.String("human", "black", "your colour in human vs AI (black|white)")
		flagMode     = flag.String("mode", "", "ai-vs-ai or human-vs-ai (default: inferred from files)")
		flagHeadless = flag.Bool("headless", false, "play ai-vs-ai without the terminal UI and exit at game over")
	)
	flag.Parse()

	cfg, err := appcfg.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logOpts := cfg.TerminalLogOptions()
	if *flagHeadless {
		logOpts = cfg.Log.Options()
	}
	logger, err := obslog.Init(logOpts)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_load_failed", zap.Error(err))
	}

	form := upload.NewForm()
	if err := fillForm(form, *flagP1, *flagP2, *flagAI, *flagHuman, *flagMode); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// set once the orchestrator exists
	var sessionID func() string
	sessionHeaders := func() map[string]string {
		if sessionID == nil {
			return nil
		}
		if id := sessionID(); id != "" {
			return map[string]string{"X-Session-Id": id}
		}
		return nil
	}

	// spectator relay
	egress, closeEgress, err := buildEgress(ctx, cfg.Spectator, sessionHeaders, logger)
	if err != nil {
		logger.Fatal("spectator_init_failed", zap.Error(err))
	}
	defer closeEgress()

	client := moveservice.NewClient(cfg.MoveService.URL,
		moveservice.WithTimeout(cfg.MoveService.Timeout),
		moveservice.WithRetry(cfg.MoveService.Retry),
		moveservice.WithMaxConnsPerHost(cfg.MoveService.MaxConns),
		moveservice.WithLogger(logger.Named("moveservice")),
		moveservice.WithHeaderProvider(sessionHeaders),
	)

	if *flagHeadless {
		if err := runHeadless(ctx, cfg, client, form, msgs, egress, logger, &sessionID); err != nil {
			logger.Error("headless_run_failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	app := tui.NewApp(form, &tui.Exporter{Dir: cfg.ExportDir, Renderer: render.NewBoardRenderer(64)}, msgs, logger.Named("tui"))
	mirror := newMirror(app.View(), egress, cfg.Spectator, logger)
	defer closeMirror(mirror)

	orch := orchestrator.New(client, mirror, mirror.Status(app.View()),
		orchestrator.WithControls(form),
		orchestrator.WithCatalog(msgs),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithAutoStepInterval(cfg.Play.AutoStepInterval),
		orchestrator.WithMoveDelay(cfg.Play.MoveDelay),
	)
	defer orch.Close()
	sessionID = orch.SessionID
	mirror.SetSessionSource(orch.SessionID)
	app.Bind(orch)

	if form.StrategiesReady() || form.HumanVsAIReady() {
		go func() {
			if err := orch.Load(ctx); err != nil {
				logger.Debug("initial_load_failed", zap.Error(err))
			}
		}()
	}

	logger.Info("otheller_start", zap.String("move_service", cfg.MoveService.URL), zap.String("spectator", cfg.Spectator.Mode))
	if err := app.Run(ctx); err != nil {
		logger.Error("tui_run_failed", zap.Error(err))
	}
}

func fillForm(form *upload.Form, p1, p2, ai, human, mode string) error {
	form.SetStrategyPaths(p1, p2)
	form.SetAIPath(ai)
	if err := form.SetHumanColor(human); err != nil {
		return fmt.Errorf("-human: %w", err)
	}
	switch mode {
	case "ai-vs-ai":
		form.SetMode(session.ModeAIvsAI)
	case "human-vs-ai":
		form.SetMode(session.ModeHumanVsAI)
	case "":
		if ai != "" && (p1 == "" || p2 == "") {
			form.SetMode(session.ModeHumanVsAI)
		}
	default:
		return fmt.Errorf("-mode must be ai-vs-ai or human-vs-ai, got %q", mode)
	}
	return nil
}

func buildEgress(ctx context.Context, sc appcfg.Spectator, headers func() map[string]string, logger *zap.Logger) (broadcast.Egress, func(), error) {
	var (
		rdb *redis.Client
		ws  *broadcast.WebSocket
		err error
	)
	closeAll := func() {
		if ws != nil {
			cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = ws.Close(cctx)
			cancel()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	switch sc.Mode {
	case broadcast.ModeRedis, broadcast.ModeAuto:
		if rdb, err = broadcast.NewRedisClient(ctx, sc.RedisURL); err != nil {
			return nil, closeAll, err
		}
	}
	switch sc.Mode {
	case broadcast.ModeWS, broadcast.ModeAuto:
		ws = broadcast.NewWebSocket(sc.WSURL, 5, logger.Named("spectator"))
		// reconnects after the first session carry its id
		ws.SetHeaderProvider(headers)
		ws.OnStateChange(func(s broadcast.WSState) {
			logger.Debug("spectator_ws_state", zap.String("state", string(s)))
		})
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = ws.Connect(cctx)
		cancel()
		// auto falls back to redis; ws-only waits for the reconnect loop
		if err != nil && sc.Mode == broadcast.ModeWS {
			logger.Warn("spectator_ws_unavailable", zap.Error(err))
		}
	}
	return broadcast.NewEgress(sc.Mode, rdb, sc.Channel, ws, logger.Named("spectator")), closeAll, nil
}

func newMirror(view orchestrator.Presenter, egress broadcast.Egress, sc appcfg.Spectator, logger *zap.Logger) *broadcast.Mirror {
	opts := []broadcast.MirrorOption{
		broadcast.WithQueueSize(sc.QueueSize),
		broadcast.WithMirrorLogger(logger.Named("spectator")),
	}
	if sc.BoardImage {
		opts = append(opts, broadcast.WithBoardImages(render.NewBoardRenderer(48)))
	}
	return broadcast.NewMirror(view, egress, opts...)
}

func closeMirror(m *broadcast.Mirror) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.Close(ctx)
}
