// Package transport defines the interface for the network listeners that
// expose the assistant backend.
//
// Each transport (HTTP for the desktop frontend, gRPC for health probing)
// implements this interface. main starts every enabled transport and closes
// them all on shutdown; none of them know about each other.
package transport

import "context"

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting requests. It blocks until the context is
	// cancelled or the listener fails.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
