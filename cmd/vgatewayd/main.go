// Package main is the entry point for the MCP virtual gateway daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/stacklok/mcp-vgateway/cmd/vgatewayd/app"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

func main() {
	logger.Initialize()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var interrupted atomic.Bool
	go func() {
		sig := <-sigCh
		if sig == os.Interrupt {
			interrupted.Store(true)
		}
		cancel()
	}()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("error executing command: %v", err)
		os.Exit(1)
	}
	if interrupted.Load() {
		os.Exit(130)
	}
}
