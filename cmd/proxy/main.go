package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/api"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/config"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/factory"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var flags config.Flags
	flagSet := pflag.NewFlagSet("eo-websocket-proxy", pflag.ExitOnError)
	flags.AddFlags(flagSet)
	_ = flagSet.Parse(os.Args[1:])

	// Load configuration from file, environment and flags
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Setup(logger.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
	logger.Info("Starting eo-websocket-proxy...",
		"runtime", cfg.Runtime,
		"discovery", cfg.DiscoveryMode,
		"listen_addr", cfg.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics are optional
	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m = metrics.New()
		metricsHandler = m.Handler()
	}

	// Start health server
	healthServer := api.NewHealthServer(":"+cfg.HealthServerPort, metricsHandler)
	healthServer.Start()

	// Create backend resolver
	resolver, err := factory.NewResolverFactory(cfg).Create(ctx)
	if err != nil {
		logger.Fatal("Failed to create backend resolver", "error", err)
	}

	// Create the WebSocket bridge handler
	connectionHandler := factory.NewProxyFactory(cfg).Create(resolver, m)

	// Start TCP listener
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal("Failed to start listener", "addr", cfg.ListenAddr, "error", err)
	}
	logger.Info("Proxy listening", "addr", listener.Addr().String())

	server := &core.Server{
		Listener:          listener,
		ConnectionHandler: connectionHandler,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		healthServer.SetReady(false)
		if err := server.Close(); err != nil {
			logger.Warn("Failed to close listener", "error", err)
		}
	}()

	// Mark as ready
	healthServer.SetReady(true)
	logger.Info("Proxy is ready to accept connections")

	// Start serving (blocking)
	if err := server.Serve(ctx); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		logger.Fatal("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Warn("Failed to stop health server", "error", err)
	}
}
