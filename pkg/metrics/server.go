package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/pldmfs/internal/logger"
)

// Server exposes the registry over HTTP.
//
// Endpoints:
//   - GET /metrics: Prometheus exposition format (503 when metrics are disabled)
//   - GET /healthz: liveness probe
type Server struct {
	server       *http.Server
	addr         string
	timeout      time.Duration
	listener     net.Listener
	ready        chan struct{}
	shutdownOnce sync.Once
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on. 0 picks the default (9090).
	Port int

	// ShutdownTimeout bounds graceful shutdown when the Start context ends.
	ShutdownTimeout time.Duration
}

func (c *ServerConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 9090
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// NewServer builds a stopped server. Call Start to serve.
func NewServer(config ServerConfig) *Server {
	config.applyDefaults()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintln(w, "ok")
	})

	return &Server{
		server: &http.Server{
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		addr:    fmt.Sprintf(":%d", config.Port),
		timeout: config.ShutdownTimeout,
		ready:   make(chan struct{}),
	}
}

func metricsHandler() http.Handler {
	if !IsEnabled() {
		logger.Debug("Metrics collection disabled")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintln(w, "Metrics collection is disabled")
		})
	}
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully. A nil return means a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	close(s.ready)

	logger.Info("Metrics server listening on %s", ln.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Error("Metrics server shutdown error: %v", err)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return shutdownErr
}

// Addr returns the bound address once Start is listening, or nil.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.listener.Addr()
	default:
		return nil
	}
}
