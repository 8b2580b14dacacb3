// Package adapter defines the lifecycle contract shared by the endpoints that
// carry PLDM messages into the file I/O responder.
package adapter

import "context"

// Adapter is a transport endpoint that frames PLDM messages, hands them to a
// responder and writes the responses back.
//
// Lifecycle:
//  1. Construction (adapter specific New)
//  2. Serve(ctx) blocks until ctx is cancelled or Stop is called
//  3. Stop(ctx) initiates graceful shutdown and waits for in-flight
//     connections, honouring the context deadline
//
// Implementations must be safe to Stop concurrently with Serve and Stop must
// be idempotent.
type Adapter interface {
	// Serve starts accepting connections. It returns nil after a clean
	// shutdown and an error when the listener cannot be created or the
	// shutdown timed out.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown.
	Stop(ctx context.Context) error

	// Protocol returns a short name for logging ("unix", ...).
	Protocol() string

	// Addr returns the address the adapter listens on, or "" before Serve
	// has bound it.
	Addr() string
}
