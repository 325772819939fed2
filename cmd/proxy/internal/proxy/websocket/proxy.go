package websocket

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/metrics"
)

// Dialer opens backend connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Proxy upgrades accepted connections to WebSocket and bridges each one to a
// freshly dialed game server connection. It implements core.ConnectionHandler.
type Proxy struct {
	Resolver core.BackendResolver
	Dialer   Dialer
	Metrics  *metrics.Metrics

	HandshakeTimeout   time.Duration
	BackendDialTimeout time.Duration
	QueueMaxDepth      int

	nextID atomic.Uint64
}

// HandleConnection implements core.ConnectionHandler.
// It takes full ownership of the connection lifecycle.
func (p *Proxy) HandleConnection(ctx context.Context, clientConn net.Conn) {
	defer clientConn.Close()

	remoteAddr := clientConn.RemoteAddr().String()

	// 1. WebSocket upgrade
	metadata, err := p.handshake(clientConn)
	if err != nil {
		logger.Debug("WebSocket handshake failed", "error", err, "remote_addr", remoteAddr)
		p.Metrics.Connection(metrics.ResultHandshakeFailed)
		return
	}

	client := &clientStream{Conn: clientConn}

	// 2. Resolve and dial the backend
	backendAddr, backendConn, err := p.connectBackend(ctx, metadata)
	if err != nil {
		logger.Warn("Backend unavailable", "error", err, "remote_addr", remoteAddr, "path", metadata[core.MetadataPath])
		p.Metrics.Connection(metrics.ResultBackendUnavailable)
		status, _ := closeStatus(err)
		client.writeClose(status)
		return
	}
	p.Metrics.Connection(metrics.ResultAccepted)

	// 3. Pump data
	id := p.nextID.Add(1)
	log := logger.With(
		"component", "bridge",
		"conn_id", id,
		"remote_addr", remoteAddr,
		"backend_addr", backendAddr,
	)
	log.Info("Websocket connection accepted", "backend", metadata[core.MetadataBackend])

	done := p.Metrics.BridgeStarted()
	defer done()

	bridge := NewBridge(log, p.Metrics, client, backendConn, p.QueueMaxDepth)
	err = bridge.Run(ctx)

	if expectedClosure(err) {
		log.Info("Websocket connection dropped", "reason", err)
	} else {
		log.Warn("Websocket connection dropped", "reason", err)
	}
}

// handshake performs the WebSocket upgrade and returns the routing metadata
// taken from the request.
func (p *Proxy) handshake(conn net.Conn) (core.RoutingMetadata, error) {
	var requestURI string
	upgrader := ws.Upgrader{
		OnRequest: func(uri []byte) error {
			requestURI = string(uri)
			return nil
		},
	}

	if p.HandshakeTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(p.HandshakeTimeout)); err != nil {
			return nil, err
		}
	}

	if _, err := upgrader.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("upgrade failed: %w", err)
	}

	// Bridged sessions are long lived; the bridge sets its own write deadlines.
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}

	path := requestPath(requestURI)
	return core.RoutingMetadata{
		core.MetadataPath:       path,
		core.MetadataBackend:    backendName(path),
		core.MetadataRemoteAddr: conn.RemoteAddr().String(),
	}, nil
}

func (p *Proxy) connectBackend(ctx context.Context, metadata core.RoutingMetadata) (string, net.Conn, error) {
	timeout := p.BackendDialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backendAddr, err := p.Resolver.Resolve(ctx, metadata)
	if err != nil {
		return "", nil, fmt.Errorf("%w: resolution failed: %w", ErrBackendUnavailable, err)
	}

	conn, err := p.dialer().DialContext(ctx, "tcp", backendAddr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to connect to backend %s: %w", ErrBackendUnavailable, backendAddr, err)
	}

	return backendAddr, conn, nil
}

func (p *Proxy) dialer() Dialer {
	if p.Dialer != nil {
		return p.Dialer
	}
	return &net.Dialer{}
}

// requestPath strips the query from a request URI.
func requestPath(uri string) string {
	u, err := url.ParseRequestURI(uri)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// backendName returns the first path segment, or an empty string for "/".
func backendName(path string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return name
}

var _ core.ConnectionHandler = (*Proxy)(nil)
