// Package server provides the HTTP API for textsim.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/batch"
	"github.com/hyperjump/textsim/internal/config"
	"github.com/hyperjump/textsim/internal/extract"
	"github.com/hyperjump/textsim/internal/history"
	"github.com/hyperjump/textsim/internal/similarity"
)

// SessionHeader carries the history session id in requests and responses.
const SessionHeader = "X-Session-ID"

// EmbeddingCounter reports how many embeddings are persisted.
type EmbeddingCounter interface {
	CountEmbeddings(ctx context.Context) (int, error)
}

// WatchService lists the batch inbox directories.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the textsim API.
type Server struct {
	engine    *similarity.Engine
	runner    *batch.Runner
	sessions  *history.Sessions
	extractor *extract.Extractor
	store     EmbeddingCounter
	watch     WatchService
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. store and watch may be nil.
func NewServer(
	engine *similarity.Engine,
	runner *batch.Runner,
	sessions *history.Sessions,
	store EmbeddingCounter,
	watch WatchService,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:    engine,
		runner:    runner,
		sessions:  sessions,
		extractor: extract.NewExtractor(),
		store:     store,
		watch:     watch,
		config:    cfg,
		logger:    logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Get("/examples", s.handleExamples)
		r.Post("/compare", s.handleCompare)
		r.Post("/report", s.handleReport)
		r.Post("/batch", s.handleBatch)
		r.Post("/extract", s.handleExtract)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
