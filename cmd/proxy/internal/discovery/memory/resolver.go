package memory

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"
)

type Resolver struct {
	backends map[string]string
	mu       sync.RWMutex
}

// NewResolver creates a static resolver. defaultAddr serves clients that do
// not name a backend; mappingStr adds named backends.
// Format: "name=host:port,..."
// Example: "main=reoserv.net:8078,test=127.0.0.1:8078"
// A "default" entry in mappingStr takes precedence over defaultAddr.
func NewResolver(defaultAddr, mappingStr string) (*Resolver, error) {
	backends := make(map[string]string)

	if mappingStr != "" {
		pairs := strings.Split(mappingStr, ",")
		for _, pair := range pairs {
			parts := strings.Split(strings.TrimSpace(pair), "=")
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid mapping format: %s", pair)
			}
			key := strings.TrimSpace(parts[0])
			addr := strings.TrimSpace(parts[1])
			if key == "" {
				return nil, fmt.Errorf("invalid mapping format: %s (empty backend name)", pair)
			}
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return nil, fmt.Errorf("invalid backend address for %s: %w", key, err)
			}
			backends[key] = addr
		}
	}

	if _, ok := backends[core.DefaultBackend]; !ok && defaultAddr != "" {
		backends[core.DefaultBackend] = defaultAddr
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}

	return &Resolver{backends: backends}, nil
}

func (r *Resolver) Resolve(ctx context.Context, metadata core.RoutingMetadata) (string, error) {
	key := metadata[core.MetadataBackend]
	if key == "" {
		key = core.DefaultBackend
	}

	r.mu.RLock()
	addr, ok := r.backends[key]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("backend not found for key: %s", key)
	}

	logger.Debug("Static resolver routing", "backend", key, "addr", addr, "remote_addr", metadata[core.MetadataRemoteAddr])
	return addr, nil
}
