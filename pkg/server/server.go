// Package server runs the adapters of a pldmfs responder and coordinates
// their shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/adapter"
)

// ErrAlreadyServed is returned by Serve on a second call and by AddAdapter
// once Serve has started.
var ErrAlreadyServed = errors.New("server already served")

// ErrNoAdapters is returned by Serve when nothing was registered.
var ErrNoAdapters = errors.New("no adapters registered")

// Server owns a set of adapters sharing one responder.
//
// Lifecycle:
//  1. New
//  2. AddAdapter for each endpoint
//  3. Serve(ctx) blocks until ctx is cancelled or an adapter fails
//
// When one adapter fails the others are stopped, so the process never keeps
// serving half of its endpoints.
type Server struct {
	stopTimeout time.Duration

	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a server. stopTimeout bounds how long Serve waits for adapters
// during shutdown; 0 selects 30 seconds.
func New(stopTimeout time.Duration) *Server {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &Server{stopTimeout: stopTimeout}
}

// AddAdapter registers a. The same adapter cannot be registered twice.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		return errors.New("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return ErrAlreadyServed
	}

	for _, existing := range s.adapters {
		if existing == a {
			return fmt.Errorf("%s adapter already registered", a.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter", a.Protocol())
	return nil
}

// Adapters returns a copy of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]adapter.Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

type adapterError struct {
	protocol string
	err      error
}

// Serve starts every adapter and blocks. It returns nil after a shutdown
// triggered by ctx, and the first adapter error otherwise.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return ErrNoAdapters
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting pldmfs with %d adapter(s)", len(adapters))

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			if err := a.Serve(ctx); err != nil {
				if ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
					return
				}
				logger.Debug("%s adapter stopped with: %v", protocol, err)
				return
			}
			logger.Info("%s adapter stopped", protocol)
		}(a)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case ae := <-errChan:
		serveErr = fmt.Errorf("%s adapter error: %w", ae.protocol, ae.err)
	}

	s.stopAll(adapters)
	wg.Wait()

	logger.Info("pldmfs stopped")
	return serveErr
}

// stopAll stops adapters in reverse registration order.
func (s *Server) stopAll(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Protocol(), err)
		}
	}
}
