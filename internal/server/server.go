// Package server exposes the normalized tables, map points and the chat agent over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Asker answers chat questions
type Asker interface {
	Ask(ctx context.Context, conversationID, question string) (*chat.Answer, error)
}

// Server serves one dataset at a time. The dataset can be swapped while serving.
type Server struct {
	config     config.ServerConfig
	logger     *util.Logger
	middleware *Middleware
	asker      Asker

	mu      sync.RWMutex
	dataset *analyzer.Dataset
}

// New creates a server. asker may be nil, in which case the chat endpoint reports 503.
func New(cfg config.ServerConfig, ds *analyzer.Dataset, asker Asker) *Server {
	logger := util.Named("server")
	return &Server{
		config:     cfg,
		logger:     logger,
		middleware: NewMiddleware(logger),
		asker:      asker,
		dataset:    ds,
	}
}

// SetDataset replaces the served dataset
func (s *Server) SetDataset(ds *analyzer.Dataset) {
	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()
	s.logger.Info("Dataset replaced", util.String("fingerprint", ds.Fingerprint))
}

func (s *Server) current() *analyzer.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(s.middleware.RequestID)
	router.Use(s.middleware.Logger)
	router.Use(s.middleware.Recoverer)
	router.Use(s.middleware.CORS(s.config.CORSOrigins))

	router.Get("/health", s.getHealth)

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/visits", s.getVisits)
		router.Get("/journeys", s.getJourneys)
		router.Get("/years", s.getYears)
		router.Get("/map", s.getMap)
		router.Get("/summary", s.getSummary)
		router.Post("/chat", s.postChat)
	})

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", util.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
