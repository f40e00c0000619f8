// Package server provides the HTTP API for Kiban.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/engine"
	"github.com/hyperjump/kiban/internal/history"
)

// maxUploadBytes caps multipart uploads; manuals larger than this are
// rejected before extraction.
const maxUploadBytes = 50 << 20

// Server is the HTTP server for the Kiban API.
type Server struct {
	engine  *engine.Engine
	history *history.Store // nil disables chat endpoints
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. history may be
// nil; chat endpoints then answer without recording sessions.
func NewServer(eng *engine.Engine, hist *history.Store, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		engine:  eng,
		history: hist,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Post("/api/v1/documents/upload", s.handleUploadDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Delete("/api/v1/documents", s.handleClearDocuments)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/api/v1/chat/{sessionID}", s.handleChatHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
