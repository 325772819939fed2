package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/metrics"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/protocol/eo"
)

const (
	// Time allowed to write a message to either peer.
	writeWait = 10 * time.Second

	// Time allowed to deliver the close frame during teardown.
	closeWait = time.Second
)

// clientStream is the upgraded client connection. Writes are serialized
// because pong and close replies are written by the reader goroutine while
// the bridge loop writes data frames.
type clientStream struct {
	net.Conn
	mu sync.Mutex
}

func (s *clientStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return 0, err
	}
	return s.Conn.Write(p)
}

// writeFrame writes f with a single Write so frames never interleave.
func (s *clientStream) writeFrame(f ws.Frame) error {
	frame, err := ws.CompileFrame(f)
	if err != nil {
		return err
	}
	_, err = s.Write(frame)
	return err
}

// writeClose sends a close frame with an empty reason. Failures are ignored:
// the connection is being torn down anyway.
func (s *clientStream) writeClose(status ws.StatusCode) {
	frame, err := ws.CompileFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(status, "")))
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.Conn.SetWriteDeadline(time.Now().Add(closeWait))
	_, _ = s.Conn.Write(frame)
}

// Bridge routes data between one WebSocket client and one game server
// connection until either side fails.
//
// Full data flow: Client <--WebSocket--> Bridge <--EO packets over TCP--> Game server
type Bridge struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	client  *clientStream
	backend net.Conn
	queue   *OutboundQueue

	closeOnce sync.Once
}

// NewBridge takes ownership of both connections. maxDepth bounds the
// outbound queue; zero keeps it unbounded.
func NewBridge(logger *slog.Logger, m *metrics.Metrics, client net.Conn, backend net.Conn, maxDepth int) *Bridge {
	stream, ok := client.(*clientStream)
	if !ok {
		stream = &clientStream{Conn: client}
	}

	return &Bridge{
		logger:  logger,
		metrics: m,
		client:  stream,
		backend: backend,
		queue:   NewOutboundQueue(maxDepth),
	}
}

// Run pumps data in both directions until a connection closes, a write
// fails, the backend stream ends or ctx is cancelled. Both connections are
// closed when Run returns. The returned error tells why the bridge ended.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clientMessages := make(chan []byte)
	// Each reader sends at most one error.
	errc := make(chan error, 2)

	go b.readClient(ctx, clientMessages, errc)
	go b.readBackend(errc)

	err := b.pump(ctx, clientMessages, errc)

	if errors.Is(err, ErrBackendClosed) {
		// Deliver what the backend sent before it went away.
		b.flush()
	}
	if status, ok := closeStatus(err); ok {
		b.client.writeClose(status)
	}
	b.Close()

	return err
}

// Close closes both connections. It is safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		if err := b.client.Close(); err != nil {
			b.logger.Debug("Closing client connection", "error", err)
		}
		if err := b.backend.Close(); err != nil {
			b.logger.Debug("Closing backend connection", "error", err)
		}
	})
}

// pump races the three event sources. select picks uniformly among ready
// cases, so no source starves another.
func (b *Bridge) pump(ctx context.Context, clientMessages <-chan []byte, errc <-chan error) error {
	for {
		select {
		case payload := <-clientMessages:
			if err := b.writeBackend(payload); err != nil {
				return err
			}

		case <-b.queue.Ready():
			payload, ok := b.queue.Pop()
			if !ok {
				continue
			}
			if err := b.writeClient(payload); err != nil {
				return err
			}

		case err := <-errc:
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readClient forwards binary messages from the client. Other data frames are
// discarded unread, so text payloads are not UTF-8 checked. Ping and close
// frames are answered by the wsutil control handler.
func (b *Bridge) readClient(ctx context.Context, out chan<- []byte, errc chan<- error) {
	controlHandler := wsutil.ControlFrameHandler(b.client, ws.StateServerSide)
	rd := &wsutil.Reader{
		Source:         b.client,
		State:          ws.StateServerSide,
		CheckUTF8:      false,
		OnIntermediate: controlHandler,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			errc <- fmt.Errorf("%w: %w", ErrClientClosed, err)
			return
		}

		if hdr.OpCode.IsControl() {
			if err := controlHandler(hdr, rd); err != nil {
				errc <- fmt.Errorf("%w: %w", ErrClientClosed, err)
				return
			}
			continue
		}

		if hdr.OpCode != ws.OpBinary {
			b.logger.Debug("Ignoring non-binary message from client", "opcode", hdr.OpCode)
			if err := rd.Discard(); err != nil {
				errc <- fmt.Errorf("%w: %w", ErrClientClosed, err)
				return
			}
			continue
		}

		payload, err := io.ReadAll(rd)
		if err != nil {
			errc <- fmt.Errorf("%w: %w", ErrClientClosed, err)
			return
		}

		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

// readBackend decodes packets from the game server and queues their payloads
// for the client. Zero-length packets are skipped.
func (b *Bridge) readBackend(errc chan<- error) {
	reader := eo.NewPacketReader(b.backend)
	for {
		payload, err := reader.ReadPacket()
		if err != nil {
			errc <- fmt.Errorf("%w: %w", ErrBackendClosed, err)
			return
		}

		if len(payload) == 0 {
			continue
		}

		if err := b.queue.Push(payload); err != nil {
			errc <- err
			return
		}
	}
}

func (b *Bridge) writeBackend(payload []byte) error {
	if err := b.backend.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendWriteFailed, err)
	}
	if _, err := b.backend.Write(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendWriteFailed, err)
	}

	b.metrics.Forwarded(metrics.DirectionClientToBackend, len(payload))
	return nil
}

func (b *Bridge) writeClient(payload []byte) error {
	if err := b.client.writeFrame(ws.NewBinaryFrame(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrClientWriteFailed, err)
	}

	b.metrics.Forwarded(metrics.DirectionBackendToClient, len(payload))
	return nil
}

// flush writes every queued payload to the client, stopping at the first
// write error.
func (b *Bridge) flush() {
	for {
		payload, ok := b.queue.Pop()
		if !ok {
			return
		}
		if err := b.writeClient(payload); err != nil {
			b.logger.Debug("Dropping queued payloads", "error", err, "pending", b.queue.Len())
			return
		}
	}
}
