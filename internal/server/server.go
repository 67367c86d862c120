package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ButyrinIA/postboard/internal/config"
	"github.com/ButyrinIA/postboard/internal/posts"
)

type Server struct {
	cfg        *config.Config
	posts      *posts.Service
	hub        *Hub
	logger     *slog.Logger
	metrics    *metrics
	handler    http.Handler
	httpServer *http.Server
}

// New wires the REST routes for svc. hub may be nil, in which case the
// events stream is not served.
func New(cfg *config.Config, svc *posts.Service, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		posts:   svc,
		hub:     hub,
		logger:  logger,
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", s.handleListPosts)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("PUT /posts/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /posts/{id}", s.handleDeletePost)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.handler())
	if hub != nil {
		mux.Handle("GET /posts/events", hub)
		s.metrics.watchSubscribers(hub)
	}
	if cfg.Dev.Enabled {
		mux.HandleFunc("DELETE /dev/clear", s.handleClearPosts)
		mux.HandleFunc("POST /dev/seed", s.handleSeed)
	}

	s.handler = withLogging(logger, withMetrics(s.metrics, mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured port until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr, "dev", s.cfg.Dev.Enabled)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and disconnects event subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
