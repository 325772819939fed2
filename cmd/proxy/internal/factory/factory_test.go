package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/config"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/metrics"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/proxy/websocket"
)

func Test_ResolverFactory_Static(t *testing.T) {
	c := require.New(t)

	cfg := &config.Config{
		DiscoveryMode:  config.DiscoveryStatic,
		BackendAddr:    "127.0.0.1:8078",
		StaticBackends: "test=10.0.0.2:8078",
	}

	resolver, err := NewResolverFactory(cfg).Create(context.Background())
	c.NoError(err)

	addr, err := resolver.Resolve(context.Background(), core.RoutingMetadata{})
	c.NoError(err)
	c.Equal("127.0.0.1:8078", addr)

	addr, err = resolver.Resolve(context.Background(), core.RoutingMetadata{core.MetadataBackend: "test"})
	c.NoError(err)
	c.Equal("10.0.0.2:8078", addr)
}

func Test_ResolverFactory_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "unknown discovery mode", cfg: &config.Config{DiscoveryMode: "consul"}},
		{name: "invalid static mapping", cfg: &config.Config{DiscoveryMode: config.DiscoveryStatic, StaticBackends: "broken"}},
		{name: "no backends", cfg: &config.Config{DiscoveryMode: config.DiscoveryStatic}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewResolverFactory(test.cfg).Create(context.Background())
			require.Error(t, err)
		})
	}
}

func Test_ResolverFactory_WatchNamespace(t *testing.T) {
	c := require.New(t)

	c.Equal("games", NewResolverFactory(&config.Config{Namespace: "games"}).watchNamespace())
	c.Equal("", NewResolverFactory(&config.Config{Namespace: config.AllNamespaces}).watchNamespace())
}

func Test_ProxyFactory_Create(t *testing.T) {
	c := require.New(t)

	cfg := &config.Config{
		HandshakeTimeout:   3 * time.Second,
		BackendDialTimeout: 2 * time.Second,
		QueueMaxDepth:      64,
	}
	m := metrics.New()

	handler := NewProxyFactory(cfg).Create(nil, m)

	p, ok := handler.(*websocket.Proxy)
	c.True(ok)
	c.Equal(3*time.Second, p.HandshakeTimeout)
	c.Equal(2*time.Second, p.BackendDialTimeout)
	c.Equal(64, p.QueueMaxDepth)
	c.Same(m, p.Metrics)
	c.NotNil(p.Dialer)
}
