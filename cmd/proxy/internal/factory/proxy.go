package factory

import (
	"net"
	"time"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/config"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/metrics"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/proxy/websocket"
)

// ProxyFactory creates the WebSocket bridge handler
type ProxyFactory struct {
	cfg *config.Config
}

// NewProxyFactory creates a new proxy factory
func NewProxyFactory(cfg *config.Config) *ProxyFactory {
	return &ProxyFactory{cfg: cfg}
}

// Create wires the resolver and metrics into a WebSocket proxy.
// m may be nil when metrics are disabled.
func (f *ProxyFactory) Create(resolver core.BackendResolver, m *metrics.Metrics) core.ConnectionHandler {
	logger.Info("Creating WebSocket Proxy Handler",
		"handshake_timeout", f.cfg.HandshakeTimeout,
		"backend_dial_timeout", f.cfg.BackendDialTimeout,
		"queue_max_depth", f.cfg.QueueMaxDepth)

	if f.cfg.QueueMaxDepth == 0 {
		logger.Debug("Outbound queues are unbounded")
	}

	return &websocket.Proxy{
		Resolver:           resolver,
		Dialer:             &net.Dialer{KeepAlive: 30 * time.Second},
		Metrics:            m,
		HandshakeTimeout:   f.cfg.HandshakeTimeout,
		BackendDialTimeout: f.cfg.BackendDialTimeout,
		QueueMaxDepth:      f.cfg.QueueMaxDepth,
	}
}
