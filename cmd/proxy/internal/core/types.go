package core

import (
	"context"
	"net"
)

// RoutingMetadata contains information extracted from the WebSocket handshake
// used to determine the destination backend (e.g., "path": "/test").
type RoutingMetadata map[string]string

// Routing metadata keys filled in by the front handshake.
const (
	MetadataPath       = "path"
	MetadataBackend    = "backend"
	MetadataRemoteAddr = "remote_addr"
)

// DefaultBackend is the backend name used when the request names none.
const DefaultBackend = "default"

// ConnectionHandler takes full ownership of an accepted connection.
type ConnectionHandler interface {
	HandleConnection(ctx context.Context, conn net.Conn)
}

// BackendResolver defines how to find a backend address based on metadata.
// It is purely a lookup mechanism and knows nothing about the network.
type BackendResolver interface {
	Resolve(ctx context.Context, metadata RoutingMetadata) (string, error)
}
