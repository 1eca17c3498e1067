// Package app provides the top-level application lifecycle: it wires stores,
// caches, alerting, the settlement engine, and the API server, and runs them
// until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luckypick/wingo/internal/config"
	"github.com/luckypick/wingo/internal/engine"
	"github.com/luckypick/wingo/internal/server"
	"github.com/luckypick/wingo/internal/server/handler"
	"github.com/luckypick/wingo/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the round
// clock, the WebSocket hub, and the HTTP server, and blocks until the context
// is cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.Int("round_seconds", a.cfg.Game.RoundSeconds),
		slog.Int("window_seconds", a.cfg.Game.WindowSeconds),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Engine assembly.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	settler := engine.NewSettler(
		deps.WagerStore,
		deps.SettlementStore,
		deps.ResultStore,
		rng,
		engine.SettlerConfig{
			Attempts: a.cfg.Game.SettleAttempts,
			Backoff:  a.cfg.Game.SettleBackoff(),
		},
		a.logger,
	)
	coord := engine.NewCoordinator(settler, a.logger,
		engine.WithResultCache(deps.ResultCache),
		engine.WithEventBus(deps.EventBus),
		engine.WithAlerter(deps.Notifier),
		engine.WithSettleTimeout(a.cfg.Game.SettleTimeout()),
	)
	coord.Bind(ctx)

	clock, err := engine.NewClock(
		a.cfg.Game.RoundDuration(),
		a.cfg.Game.WindowDuration(),
		coord,
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("app: clock: %w", err)
	}

	intake := engine.NewIntake(coord, deps.WagerStore, a.logger)

	// API assembly.
	hub := ws.NewHub(deps.EventBus, a.logger)
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": deps.Postgres,
			"redis":    deps.Redis,
		}),
		Wagers:  handler.NewWagerHandler(intake, a.logger),
		Rounds:  handler.NewRoundHandler(coord),
		Results: handler.NewResultHandler(deps.ResultCache, deps.ResultStore, a.logger),
		Users:   handler.NewUserHandler(deps.UserStore, deps.WagerStore, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow(),
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return clock.Run(gctx)
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
