// Package server exposes the health/readiness HTTP surface over the
// enrichment pipeline's internal state. It is intentionally thin: the spec
// scopes out a dashboard API (spec §1), so this only answers operational
// probes, not UI or control-plane requests. Middleware stack and the
// chi.Router/http.Server split are grounded on the teacher's
// internal/server/server.go.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"solsentinel/internal/reliability"
)

// Server serves /healthz and /readyz over the configured port.
type Server struct {
	router *chi.Mux
	http   *http.Server
	health *reliability.HealthService
	log    zerolog.Logger
}

func New(port int, health *reliability.HealthService, devMode bool, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		health: health,
		log:    log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(15 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.health.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if !st.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}

// handleReady is a shallow liveness check distinct from /healthz's full
// resource sample, for load balancers that poll far more often than the
// dashboard-facing health check should run.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("starting health server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down health server")
	return s.http.Shutdown(ctx)
}
