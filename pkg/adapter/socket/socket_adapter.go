// Package socket implements the local unix-socket endpoint of the PLDM file
// I/O responder.
//
// Every message on the socket is framed as a little-endian u32 length
// followed by that many bytes of PLDM message (header included). Responses
// use the same framing. Requests on a connection are handled strictly in
// order; concurrency comes from multiple connections.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/metrics"
)

// MessageHandler answers one PLDM request message. A nil response with a
// nil error means no reply is sent. A non-nil error marks the message as
// unanswerable and it is dropped.
type MessageHandler interface {
	Handle(ctx context.Context, msg []byte) ([]byte, error)
}

// Config controls the unix-socket listener.
type Config struct {
	// SocketPath is the filesystem path of the listening socket. A stale
	// socket file at this path is removed before binding.
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path" validate:"required"`

	// MaxConnections caps concurrent connections. 0 means unlimited.
	// Connections beyond the cap are closed immediately after accept.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// MaxMessageSize bounds a single framed message.
	MaxMessageSize uint32 `mapstructure:"max_message_size" yaml:"max_message_size" validate:"min=0"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// RateLimit throttles requests per connection. Requests over the limit
	// are answered with ERROR_NOT_READY without reaching the handler.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// MetricsLogInterval controls periodic connection-count logging.
	// 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// RateLimitConfig is the per-connection token bucket. RequestsPerSecond == 0
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             uint `mapstructure:"burst" yaml:"burst"`
}

// Default values applied by ApplyDefaults.
const (
	DefaultSocketPath      = "/run/pldmfs/pldmfs.sock"
	DefaultMaxMessageSize  = 1 << 20
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the values ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return errors.New("socket path is required")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max connections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.MaxMessageSize < frameMinimum {
		return fmt.Errorf("invalid max message size %d: must be >= %d", c.MaxMessageSize, frameMinimum)
	}
	return nil
}

// Adapter serves PLDM messages over a unix socket.
//
// Shutdown follows the same sequence as every adapter in this module:
//  1. initiateShutdown closes the listener and cancels the request context
//     exactly once
//  2. the accept loop notices and waits for active connections
//  3. connections still open after ShutdownTimeout are force-closed
type Adapter struct {
	config  Config
	handler MessageHandler
	metrics metrics.ConnectionMetrics

	mu       sync.Mutex
	listener net.Listener
	addr     atomic.Value
	ready    chan struct{}

	activeConns  sync.WaitGroup
	shutdownOnce sync.Once
	shutdown     chan struct{}
	connCount    atomic.Int32

	// shutdownCtx is handed to every connection; cancelling it aborts
	// in-flight requests at their next context check.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps connection id to net.Conn for force-close.
	activeConnections sync.Map
}

// New validates cfg and builds an adapter. A nil m records nothing.
func New(cfg Config, handler MessageHandler, m metrics.ConnectionMetrics) (*Adapter, error) {
	if handler == nil {
		return nil, errors.New("socket adapter: message handler is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("socket adapter: %w", err)
	}
	if m == nil {
		m = metrics.NewNoopConnectionMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Adapter{
		config:         cfg,
		handler:        handler,
		metrics:        m,
		ready:          make(chan struct{}),
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}, nil
}

// Protocol implements adapter.Adapter.
func (a *Adapter) Protocol() string { return "unix" }

// Addr implements adapter.Adapter.
func (a *Adapter) Addr() string {
	if v, ok := a.addr.Load().(string); ok {
		return v
	}
	return ""
}

// Ready is closed once the listener is bound.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// ActiveConnections returns the number of open connections.
func (a *Adapter) ActiveConnections() int32 {
	return a.connCount.Load()
}

// Serve binds the socket and runs the accept loop until ctx is cancelled or
// Stop is called.
func (a *Adapter) Serve(ctx context.Context) error {
	if err := os.Remove(a.config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", a.config.SocketPath, err)
	}

	listener, err := net.Listen("unix", a.config.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.config.SocketPath, err)
	}
	a.mu.Lock()
	select {
	case <-a.shutdown:
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	default:
	}
	a.listener = listener
	a.mu.Unlock()
	a.addr.Store(listener.Addr().String())
	close(a.ready)

	logger.Info("PLDM socket listening on %s", a.config.SocketPath)
	logger.Debug("Socket config: max_connections=%d max_message=%d read_timeout=%v write_timeout=%v idle_timeout=%v rate=%d/%d",
		a.config.MaxConnections, a.config.MaxMessageSize, a.config.ReadTimeout,
		a.config.WriteTimeout, a.config.IdleTimeout,
		a.config.RateLimit.RequestsPerSecond, a.config.RateLimit.Burst)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Socket shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()

	if a.config.MetricsLogInterval > 0 {
		go a.logMetrics(ctx)
	}

	for {
		netConn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.shutdown:
				return a.gracefulShutdown()
			default:
				logger.Debug("Error accepting socket connection: %v", err)
				continue
			}
		}

		if a.config.MaxConnections > 0 && int(a.connCount.Load()) >= a.config.MaxConnections {
			a.metrics.RecordConnectionRejected("limit")
			logger.Warn("Socket connection rejected: limit=%d reached", a.config.MaxConnections)
			_ = netConn.Close()
			continue
		}

		id := uuid.NewString()
		a.activeConns.Add(1)
		current := a.connCount.Add(1)
		a.activeConnections.Store(id, netConn)

		a.metrics.RecordConnectionAccepted()
		a.metrics.SetActiveConnections(current)
		logger.Debug("Socket connection accepted: id=%s active=%d", id, current)

		conn := newConnection(a, id, netConn)
		go func() {
			defer func() {
				a.activeConnections.Delete(id)
				remaining := a.connCount.Add(-1)
				a.activeConns.Done()

				a.metrics.RecordConnectionClosed()
				a.metrics.SetActiveConnections(remaining)
				logger.Debug("Socket connection closed: id=%s active=%d", id, remaining)
			}()

			conn.Serve(a.shutdownCtx)
		}()
	}
}

// initiateShutdown closes the listener and cancels in-flight requests.
// Safe to call multiple times.
func (a *Adapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("Socket shutdown initiated")
		a.mu.Lock()
		close(a.shutdown)
		if a.listener != nil {
			if err := a.listener.Close(); err != nil {
				logger.Debug("Error closing socket listener: %v", err)
			}
		}
		a.mu.Unlock()

		a.cancelRequests()
	})
}

func (a *Adapter) waitConnections() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()
	return done
}

func (a *Adapter) gracefulShutdown() error {
	logger.Info("Socket graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		a.connCount.Load(), a.config.ShutdownTimeout)

	select {
	case <-a.waitConnections():
		logger.Info("Socket graceful shutdown complete")
		return nil

	case <-time.After(a.config.ShutdownTimeout):
		remaining := a.connCount.Load()
		logger.Warn("Socket shutdown timeout exceeded: %d connection(s) still active after %v, forcing closure",
			remaining, a.config.ShutdownTimeout)
		a.forceCloseConnections()
		return fmt.Errorf("socket shutdown timeout: %d connections force-closed", remaining)
	}
}

func (a *Adapter) forceCloseConnections() {
	closed := 0
	a.activeConnections.Range(func(key, value any) bool {
		id := key.(string)
		if err := value.(net.Conn).Close(); err != nil {
			logger.Debug("Error force-closing connection %s: %v", id, err)
		} else {
			closed++
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed %d connection(s)", closed)
	}
}

// Stop initiates shutdown and waits for active connections until ctx is
// done. The socket file is removed.
func (a *Adapter) Stop(ctx context.Context) error {
	a.initiateShutdown()
	defer func() {
		if err := os.Remove(a.config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("Error removing socket %s: %v", a.config.SocketPath, err)
		}
	}()

	if ctx == nil {
		return a.gracefulShutdown()
	}

	select {
	case <-a.waitConnections():
		return nil
	case <-ctx.Done():
		logger.Warn("Socket shutdown context cancelled: %d connection(s) still active: %v",
			a.connCount.Load(), ctx.Err())
		a.forceCloseConnections()
		return ctx.Err()
	}
}

func (a *Adapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(a.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case <-ticker.C:
			logger.Info("Socket metrics: active_connections=%d", a.connCount.Load())
		}
	}
}
