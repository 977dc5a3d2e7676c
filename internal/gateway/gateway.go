// Package gateway assembles the engine: server registry, subprocess pool,
// capability index, router, and HTTP front end, behind a single Run call
// that owns the initialize, serve, and shutdown lifecycle.
package gateway

import (
	"context"
	"time"

	"github.com/stacklok/mcp-vgateway/internal/capability"
	"github.com/stacklok/mcp-vgateway/internal/configloader"
	"github.com/stacklok/mcp-vgateway/internal/httpapi"
	"github.com/stacklok/mcp-vgateway/internal/metrics"
	"github.com/stacklok/mcp-vgateway/internal/ratelimit"
	"github.com/stacklok/mcp-vgateway/internal/router"
	"github.com/stacklok/mcp-vgateway/internal/servermanager"
	"github.com/stacklok/mcp-vgateway/internal/transport"
	"github.com/stacklok/mcp-vgateway/pkg/config"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// shutdownGrace bounds how long Run waits for the subprocess pool to
// terminate after the HTTP server has drained.
const shutdownGrace = 10 * time.Second

// Options collects everything needed to assemble a Gateway. Config and
// Servers are required; the rest default to the production implementations.
type Options struct {
	Config  config.GatewayConfig
	Servers config.ServerConfigs

	// Loader resolves org-scoped prompt/resource overrides. Nil disables
	// override resolution entirely.
	Loader configloader.ConfigLoader

	// Spawner creates child processes. Nil selects the exec-based spawner.
	Spawner servermanager.Spawner

	// Metrics may be nil to skip metric recording.
	Metrics *metrics.Metrics

	// CallTimeout bounds each forwarded call. Zero selects the default.
	CallTimeout time.Duration
}

// Gateway is the fully wired engine.
type Gateway struct {
	manager *servermanager.Manager
	server  *httpapi.Server
}

// New wires a Gateway from opts. The capability index is built here, so a
// registry that failed validation never reaches New.
func New(opts Options) *Gateway {
	spawner := opts.Spawner
	if spawner == nil {
		spawner = servermanager.NewExecSpawner()
	}

	idx := capability.Build(opts.Servers)
	mgr := servermanager.NewManager(opts.Servers, spawner, opts.Config.Security.MCPHandshakeTimeout)

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = transport.DefaultCallTimeout
	}
	rtr := router.New(idx, mgr, opts.Loader, callTimeout)

	limiter := ratelimit.New(opts.Config.Security.RateLimitPerMinute)
	srv := httpapi.New(opts.Config, rtr, mgr, idx, limiter, opts.Metrics)

	return &Gateway{manager: mgr, server: srv}
}

// Run spawns the subprocess pool, serves HTTP until ctx is cancelled, then
// drains the front end and terminates every child. The error from serving
// wins over any shutdown error.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.manager.Initialize(ctx); err != nil {
		return err
	}

	serveErr := g.server.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := g.manager.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error shutting down server pool: %v", err)
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
