package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusFunc reports the engine state served on /healthz.
type StatusFunc func() (status interface{}, healthy bool)

// Server exposes /metrics and /healthz over HTTP.
type Server struct {
	logger   zerolog.Logger
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewHandler builds the HTTP handler without binding a listener.
func NewHandler(gatherer prometheus.Gatherer, status StatusFunc) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		payload, healthy := status()
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
	return mux
}

// Start binds addr and serves the telemetry handler in the background.
func Start(addr string, gatherer prometheus.Gatherer, status StatusFunc, logger zerolog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen telemetry on %s: %w", addr, err)
	}
	srv := &Server{
		logger:   logger,
		server:   &http.Server{Handler: NewHandler(gatherer, status), ReadHeaderTimeout: 5 * time.Second},
		listener: listener,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(srv.done)
		if err := srv.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("telemetry server stopped")
		}
	}()
	logger.Info().Str("listen", listener.Addr().String()).Msg("telemetry server started")
	return srv, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close() error {
	if s == nil || s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	<-s.done
	return err
}
