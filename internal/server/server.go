// Package server exposes the HTTP API: account signup and login, design
// submission and retrieval, search, health, and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"design-assistant/internal/auth"
	"design-assistant/internal/common/config"
	"design-assistant/internal/common/logger"
	"design-assistant/internal/design"
	"design-assistant/internal/search"
)

type Server struct {
	auth    *auth.Service
	designs *design.Service
	indexer *search.Indexer
	httpSrv *http.Server
	logger  logger.Logger
}

func New(cfg config.ServerConfig, authSvc *auth.Service, designs *design.Service, indexer *search.Indexer, log logger.Logger) *Server {
	s := &Server{
		auth:    authSvc,
		designs: designs,
		indexer: indexer,
		logger:  log.WithFields(map[string]interface{}{"component": "http-server"}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/designs", s.handleCreateDesign)
			r.Get("/designs", s.handleListDesigns)
			r.Get("/designs/search", s.handleSearchDesigns)
			r.Get("/designs/{id}", s.handleGetDesign)
			r.Get("/designs/user/{userId}", s.handleListDesignsByUser)
		})
	})

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Millisecond
	if writeTimeout <= 0 {
		// The synchronous path holds the connection for the whole backend
		// call, so the write timeout must exceed the generation timeout.
		writeTimeout = 90 * time.Second
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
