// Package app provides the entry point for the vgatewayd command-line
// application.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/mcp-vgateway/internal/configloader"
	"github.com/stacklok/mcp-vgateway/internal/gateway"
	"github.com/stacklok/mcp-vgateway/internal/metrics"
	"github.com/stacklok/mcp-vgateway/pkg/config"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "vgatewayd",
	DisableAutoGenTag: true,
	Short:             "MCP gateway daemon - multiplex clients onto a pool of stdio MCP servers",
	Long: `vgatewayd multiplexes HTTP/JSON-RPC and WebSocket clients onto a pool of
long-running MCP (Model Context Protocol) subprocess servers, each addressed
over its own stdio pipe. Incoming calls are routed by capability to a healthy
instance, forwarded as newline-delimited JSON-RPC, and correlated back by id.

The subprocess pool is kept healthy and at a configured minimum size; clients
authenticate with an API key and are rate limited per key or client IP.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the vgatewayd CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// newServeCmd creates the serve command for starting the gateway.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Start the gateway: load the server registry, spawn the minimum number of
instances per configured MCP server, and listen for client connections.

Listen address, API key, rate limits, and handshake timeout come from the
environment (GATEWAY_HOST, GATEWAY_PORT, MCP_API_KEY, MCP_HANDSHAKE_TIMEOUT,
and friends); server definitions come from the JSON registry file.`,
		RunE: runServe,
	}

	cmd.Flags().String("servers", "", "Path to the server registry JSON file (defaults to MCP_SERVER_CONFIG)")
	cmd.Flags().String("org-config-dir", "", "Directory of per-organisation prompt/resource override catalogs")

	return cmd
}

// runServe implements the serve command logic.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg := config.LoadGatewayConfig()
	if path, _ := cmd.Flags().GetString("servers"); path != "" {
		cfg.ServerConfigPath = path
	}

	servers, err := config.LoadServerConfigs(cfg.ServerConfigPath)
	if err != nil {
		return fmt.Errorf("loading server registry: %w", err)
	}
	if len(servers) == 0 {
		return fmt.Errorf("server registry %s defines no servers", cfg.ServerConfigPath)
	}

	var loader configloader.ConfigLoader
	if dir, _ := cmd.Flags().GetString("org-config-dir"); dir != "" {
		loader = configloader.NewFileLoader(dir)
	}

	logger.Infof("starting gateway with %d configured servers on %s", len(servers), cfg.Addr())
	g := gateway.New(gateway.Options{
		Config:  cfg,
		Servers: servers,
		Loader:  loader,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	})
	return g.Run(ctx)
}

// newValidateCmd creates the validate command for checking the registry file.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [registry-file]",
		Short: "Validate a server registry file",
		Long: `Validate a server registry JSON file for syntax and semantic errors:
required fields, instance bounds, and global uniqueness of capability names.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.LoadGatewayConfig().ServerConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			servers, err := config.LoadServerConfigs(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			logger.Infof("registry is valid: %d servers", len(servers))
			for id, sc := range servers {
				logger.Infof("  %s: %s (max %d instances, %d capabilities)",
					id, sc.Command, sc.MaxInstances, len(sc.Capabilities))
			}
			return nil
		},
	}
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			logger.Infof("vgatewayd version: %s", getVersion())
		},
	}
}

// getVersion returns the version string (set at build time via ldflags).
func getVersion() string {
	return version
}

var version = "dev"
