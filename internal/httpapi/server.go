// Package httpapi is the gateway's HTTP/WebSocket front end: a chi router
// exposing /health, POST /mcp, GET /mcp/ws, and OPTIONS preflight, wired
// through security headers, body limits, rate limiting, auth, and JSON-RPC
// validation in that order.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stacklok/mcp-vgateway/internal/capability"
	"github.com/stacklok/mcp-vgateway/internal/metrics"
	"github.com/stacklok/mcp-vgateway/internal/ratelimit"
	"github.com/stacklok/mcp-vgateway/internal/router"
	"github.com/stacklok/mcp-vgateway/internal/servermanager"
	"github.com/stacklok/mcp-vgateway/pkg/config"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// poolSnapshotter is the subset of *servermanager.Manager the /health
// handler and metrics loop need.
type poolSnapshotter interface {
	Snapshot() map[string]servermanager.HealthSnapshot
}

// Server is the gateway's HTTP/WS front end.
type Server struct {
	cfg     config.GatewayConfig
	rtr     *router.Router
	pool    poolSnapshotter
	index   *capability.Index
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics

	httpServer *http.Server
}

// New builds a Server. metrics may be nil to disable metric recording.
func New(
	cfg config.GatewayConfig,
	rtr *router.Router,
	pool poolSnapshotter,
	index *capability.Index,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
) *Server {
	return &Server{cfg: cfg, rtr: rtr, pool: pool, index: index, limiter: limiter, metrics: m}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Timeout(middlewareTimeout),
		s.securityHeadersMiddleware,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/mcp", s.handleMCP)
	r.Get("/mcp/ws", s.handleMCPWebSocket)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	return r
}

// Serve starts the HTTP server and blocks until ctx is cancelled, then
// drains in-flight requests for up to 10s before returning.
func (s *Server) Serve(ctx context.Context) error {
	s.httpServer = &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              s.cfg.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting http server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Infof("http server stopped")
	return nil
}
