package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SecurityConfig enumerates the front end's gatekeeping options.
type SecurityConfig struct {
	EnableRateLimit     bool
	RateLimitPerMinute  int
	RequireAPIKey       bool
	APIKey              string
	MaxRequestBytes     int64
	AllowedOrigins      []string
	CORSCredentials     bool
	SecurityHeaders     bool
	MCPHandshakeTimeout time.Duration
}

// GatewayConfig is the process-wide configuration assembled from
// environment variables.
type GatewayConfig struct {
	GatewayPort      string
	GatewayHost      string
	NodeEnv          string
	LogLevel         string
	ServerConfigPath string
	Security         SecurityConfig
}

// IsProduction reports whether NODE_ENV selects production behaviour.
func (c GatewayConfig) IsProduction() bool {
	return strings.EqualFold(c.NodeEnv, "production")
}

// LoadGatewayConfig reads GatewayConfig from the environment using viper.
func LoadGatewayConfig() GatewayConfig {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("GATEWAY_PORT", "8080")
	v.SetDefault("GATEWAY_HOST", "0.0.0.0")
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MCP_HANDSHAKE_TIMEOUT", 30000)
	v.SetDefault("MCP_SERVER_CONFIG", "servers.json")
	v.SetDefault("ENABLE_RATE_LIMIT", true)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("REQUIRE_API_KEY", true)
	v.SetDefault("MAX_REQUEST_BYTES", int64(1<<20))
	v.SetDefault("CORS_CREDENTIALS", false)
	v.SetDefault("SECURITY_HEADERS", true)

	origins := v.GetString("ALLOWED_ORIGINS")
	var allowedOrigins []string
	if origins != "" {
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	return GatewayConfig{
		GatewayPort:      v.GetString("GATEWAY_PORT"),
		GatewayHost:      v.GetString("GATEWAY_HOST"),
		NodeEnv:          v.GetString("NODE_ENV"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		ServerConfigPath: v.GetString("MCP_SERVER_CONFIG"),
		Security: SecurityConfig{
			EnableRateLimit:     v.GetBool("ENABLE_RATE_LIMIT"),
			RateLimitPerMinute:  v.GetInt("RATE_LIMIT_PER_MINUTE"),
			RequireAPIKey:       v.GetBool("REQUIRE_API_KEY"),
			APIKey:              v.GetString("MCP_API_KEY"),
			MaxRequestBytes:     v.GetInt64("MAX_REQUEST_BYTES"),
			AllowedOrigins:      allowedOrigins,
			CORSCredentials:     v.GetBool("CORS_CREDENTIALS"),
			SecurityHeaders:     v.GetBool("SECURITY_HEADERS"),
			MCPHandshakeTimeout: time.Duration(v.GetInt("MCP_HANDSHAKE_TIMEOUT")) * time.Millisecond,
		},
	}
}

// Addr returns the host:port pair to bind as an HTTP listener address.
func (c GatewayConfig) Addr() string {
	return c.GatewayHost + ":" + c.GatewayPort
}
