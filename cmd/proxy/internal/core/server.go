package core

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server is the generic TCP accept loop.
// It depends ONLY on interfaces, not concrete implementations.
type Server struct {
	Listener          net.Listener
	ConnectionHandler ConnectionHandler

	closed atomic.Bool
}

// Serve accepts connections until the listener is closed. Every connection is
// handled on its own goroutine so a slow handshake never delays the next
// accept. Temporary accept errors are retried with backoff.
func (s *Server) Serve(ctx context.Context) error {
	var delay time.Duration
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return net.ErrClosed
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				delay = nextAcceptDelay(delay)
				logger.Warn("Accept failed, retrying", "error", err, "delay", delay)
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		delay = 0

		go s.handleConnection(ctx, conn)
	}
}

// Close stops accepting connections. Bridges already running are not drained.
func (s *Server) Close() error {
	s.closed.Store(true)
	return s.Listener.Close()
}

func (s *Server) handleConnection(ctx context.Context, clientConn net.Conn) {
	// Delegate the entire lifecycle to the handler
	s.ConnectionHandler.HandleConnection(ctx, clientConn)
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	delay *= 2
	if delay > maxAcceptDelay {
		return maxAcceptDelay
	}
	return delay
}
