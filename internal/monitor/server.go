// Package monitor serves health and metrics endpoints and periodically
// probes the configured servers.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is a lightweight HTTP server for /health and /metrics.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
	ready  atomic.Bool // true once the bot is polling for updates
}

func NewServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default().With("component", "monitor")
	}
	s := &Server{logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetReady makes /health return 200.
func (s *Server) SetReady() { s.ready.Store(true) }

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe blocks until Shutdown; a clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("monitor listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleHealth is used by the container health check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting")) //nolint:errcheck
	}
}
