// Package config holds the gateway's two configuration layers: the
// env-driven GatewayConfig and the declarative ServerConfig registry
// loaded from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerConfig is one declared MCP server. Immutable after load.
type ServerConfig struct {
	ServerID              string            `json:"serverId"`
	Command               string            `json:"command"`
	Args                  []string          `json:"args"`
	WorkingDir            string            `json:"workingDir"`
	AllowlistedEnv        map[string]string `json:"allowlistedEnv"`
	Capabilities          []string          `json:"capabilities"`
	MaxInstances          int               `json:"maxInstances"`
	HealthCheckIntervalMs int               `json:"healthCheckIntervalMs"`
}

// MinInstances is the floor the pool is kept at: max(1, maxInstances/2).
func (s ServerConfig) MinInstances() int {
	m := s.MaxInstances / 2
	if m < 1 {
		m = 1
	}
	return m
}

// ServerConfigs is the full registry, keyed by serverId.
type ServerConfigs map[string]ServerConfig

// LoadServerConfigs reads and validates a JSON server-definition file.
// Validation enforces: serverId matches its map key, maxInstances >= 1,
// healthCheckIntervalMs > 0, and every capability name is globally unique
// across all servers. A duplicate capability is a startup error, not a
// warning. Secret-like allowlistedEnv keys are tolerated here; they are
// warned about and dropped when the child environment is built.
func LoadServerConfigs(path string) (ServerConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config %s: %w", path, err)
	}

	var raw map[string]ServerConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing server config %s: %w", path, err)
	}

	configs := ServerConfigs(raw)
	if err := configs.Validate(); err != nil {
		return nil, err
	}
	return configs, nil
}

// Validate checks the invariants described in LoadServerConfigs' doc comment.
func (c ServerConfigs) Validate() error {
	seenCapability := map[string]string{}
	for key, sc := range c {
		if sc.ServerID == "" {
			return fmt.Errorf("server %q: serverId must not be empty", key)
		}
		if sc.ServerID != key {
			return fmt.Errorf("server %q: serverId field %q must match its map key", key, sc.ServerID)
		}
		if sc.MaxInstances < 1 {
			return fmt.Errorf("server %q: maxInstances must be >= 1", key)
		}
		if sc.HealthCheckIntervalMs <= 0 {
			return fmt.Errorf("server %q: healthCheckIntervalMs must be > 0", key)
		}
		if sc.Command == "" {
			return fmt.Errorf("server %q: command must not be empty", key)
		}
		for _, capName := range sc.Capabilities {
			if owner, ok := seenCapability[capName]; ok {
				return fmt.Errorf("capability %q is declared by both %q and %q: capability names must be globally unique", capName, owner, key)
			}
			seenCapability[capName] = key
		}
	}
	return nil
}
