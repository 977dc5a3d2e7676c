package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "servers.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadServerConfigs_Valid(t *testing.T) {
	path := writeTempConfig(t, `{
		"linear": {
			"serverId": "linear",
			"command": "node",
			"args": ["server.js"],
			"workingDir": "/srv/linear",
			"allowlistedEnv": {"NODE_ENV": "production"},
			"capabilities": ["linear_get_teams"],
			"maxInstances": 4,
			"healthCheckIntervalMs": 5000
		}
	}`)

	configs, err := LoadServerConfigs(path)
	require.NoError(t, err)
	require.Contains(t, configs, "linear")
	assert.Equal(t, 2, configs["linear"].MinInstances())
}

func TestServerConfig_MinInstances(t *testing.T) {
	assert.Equal(t, 1, ServerConfig{MaxInstances: 1}.MinInstances())
	assert.Equal(t, 1, ServerConfig{MaxInstances: 2}.MinInstances())
	assert.Equal(t, 2, ServerConfig{MaxInstances: 5}.MinInstances())
	assert.Equal(t, 3, ServerConfig{MaxInstances: 6}.MinInstances())
}

func TestLoadServerConfigs_MismatchedServerID(t *testing.T) {
	path := writeTempConfig(t, `{"linear": {"serverId": "other", "command": "node", "maxInstances": 1, "healthCheckIntervalMs": 1000}}`)
	_, err := LoadServerConfigs(path)
	assert.ErrorContains(t, err, "must match its map key")
}

func TestLoadServerConfigs_ToleratesSecretLikeEnv(t *testing.T) {
	// A secret-like env key is not a load failure; it is dropped with a
	// warning when the child environment is built.
	path := writeTempConfig(t, `{
		"linear": {
			"serverId": "linear",
			"command": "node",
			"maxInstances": 1,
			"healthCheckIntervalMs": 1000,
			"allowlistedEnv": {"API_SECRET": "x"}
		}
	}`)
	configs, err := LoadServerConfigs(path)
	require.NoError(t, err)
	assert.Contains(t, configs["linear"].AllowlistedEnv, "API_SECRET")
}

func TestLoadServerConfigs_DuplicateCapability(t *testing.T) {
	path := writeTempConfig(t, `{
		"a": {"serverId": "a", "command": "node", "maxInstances": 1, "healthCheckIntervalMs": 1000, "capabilities": ["shared"]},
		"b": {"serverId": "b", "command": "node", "maxInstances": 1, "healthCheckIntervalMs": 1000, "capabilities": ["shared"]}
	}`)
	_, err := LoadServerConfigs(path)
	assert.ErrorContains(t, err, "globally unique")
}

func TestLoadServerConfigs_RejectsZeroMaxInstances(t *testing.T) {
	path := writeTempConfig(t, `{"a": {"serverId": "a", "command": "node", "maxInstances": 0, "healthCheckIntervalMs": 1000}}`)
	_, err := LoadServerConfigs(path)
	assert.ErrorContains(t, err, "maxInstances")
}

func TestLoadServerConfigs_MissingFile(t *testing.T) {
	_, err := LoadServerConfigs(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
