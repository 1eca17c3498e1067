// Package server exposes the HTTP and WebSocket API around the engine: wager
// intake, round/result reads, and the round-event push channel.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/luckypick/wingo/internal/domain"
	"github.com/luckypick/wingo/internal/server/handler"
	"github.com/luckypick/wingo/internal/server/middleware"
	"github.com/luckypick/wingo/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // wager submissions per client per window; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Wagers  *handler.WagerHandler
	Rounds  *handler.RoundHandler
	Results *handler.ResultHandler
	Users   *handler.UserHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine host.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered, wiring up the
// logging, CORS, and auth middleware and attaching the WebSocket hub. The
// rate limiter, when provided, guards only the wager submission route.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Wager intake, rate-limited per client.
	var placeWager http.Handler = http.HandlerFunc(handlers.Wagers.PlaceWager)
	if limiter != nil && cfg.RateLimit > 0 {
		placeWager = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(placeWager)
	}
	mux.Handle("POST /api/wagers", placeWager)

	// Round and result reads.
	mux.HandleFunc("GET /api/round", handlers.Rounds.GetCurrent)
	mux.HandleFunc("GET /api/results", handlers.Results.ListRecent)
	mux.HandleFunc("GET /api/results/{id}", handlers.Results.GetByRound)

	// Per-user reads.
	mux.HandleFunc("GET /api/users/{id}/balance", handlers.Users.GetBalance)
	mux.HandleFunc("GET /api/users/{id}/wagers", handlers.Users.ListWagers)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
