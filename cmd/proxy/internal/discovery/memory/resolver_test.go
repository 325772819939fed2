package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
)

func Test_NewResolver(t *testing.T) {
	tests := []struct {
		name        string
		defaultAddr string
		mapping     string
		shouldFail  bool
	}{
		{name: "default address only", defaultAddr: "127.0.0.1:8078"},
		{name: "mapping only", mapping: "main=reoserv.net:8078, test=127.0.0.1:8078"},
		{name: "nothing configured", shouldFail: true},
		{name: "pair without separator", mapping: "main", shouldFail: true},
		{name: "empty backend name", mapping: "=127.0.0.1:8078", shouldFail: true},
		{name: "address without port", mapping: "main=reoserv.net", shouldFail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := require.New(t)

			resolver, err := NewResolver(test.defaultAddr, test.mapping)
			if test.shouldFail {
				c.Error(err)
				c.Nil(resolver)
				return
			}
			c.NoError(err)
			c.NotNil(resolver)
		})
	}
}

func Test_Resolver_Resolve(t *testing.T) {
	resolver, err := NewResolver("127.0.0.1:8078", "main=reoserv.net:8078,test=10.0.0.5:8078")
	require.NoError(t, err)

	tests := []struct {
		name       string
		metadata   core.RoutingMetadata
		expected   string
		shouldFail bool
	}{
		{name: "no backend name falls back to default", metadata: core.RoutingMetadata{}, expected: "127.0.0.1:8078"},
		{name: "explicit default", metadata: core.RoutingMetadata{core.MetadataBackend: "default"}, expected: "127.0.0.1:8078"},
		{name: "named backend", metadata: core.RoutingMetadata{core.MetadataBackend: "main"}, expected: "reoserv.net:8078"},
		{name: "unknown backend", metadata: core.RoutingMetadata{core.MetadataBackend: "missing"}, shouldFail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := require.New(t)

			addr, err := resolver.Resolve(context.Background(), test.metadata)
			if test.shouldFail {
				c.Error(err)
				return
			}
			c.NoError(err)
			c.Equal(test.expected, addr)
		})
	}
}

func Test_Resolver_MappedDefaultWins(t *testing.T) {
	c := require.New(t)

	resolver, err := NewResolver("127.0.0.1:8078", "default=10.0.0.9:8078")
	c.NoError(err)

	addr, err := resolver.Resolve(context.Background(), core.RoutingMetadata{})
	c.NoError(err)
	c.Equal("10.0.0.9:8078", addr)
}
