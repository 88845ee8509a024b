// Package server exposes the daemon's HTTP observability surface
// (/health, /ready, /live, /metrics), adapted from the teacher's
// pkg/api/health.go.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/metrics"
)

// Server serves the health/readiness/liveness/metrics endpoints.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to addr.
func New(addr string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	mux.Handle("/metrics", metrics.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the server in a background goroutine, delivering a non-nil
// error (other than http.ErrServerClosed) onto errCh.
func (s *Server) Start(errCh chan<- error) {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
