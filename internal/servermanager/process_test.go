package servermanager

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcp-vgateway/pkg/config"
)

func TestExecSpawner_AliveFlipsFalseAfterExit(t *testing.T) {
	spawner := NewExecSpawner()
	proc, err := spawner(context.Background(), config.ServerConfig{
		ServerID: "exit0",
		Command:  "sh",
		Args:     []string{"-c", "exit 0"},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return !proc.Alive() }, 2*time.Second, 10*time.Millisecond,
		"a reaped child must stop reporting alive")
	// The exit is sticky.
	assert.False(t, proc.Alive())
}

func TestExecSpawner_KillTerminatesRunningChild(t *testing.T) {
	spawner := NewExecSpawner()
	proc, err := spawner(context.Background(), config.ServerConfig{
		ServerID: "sleeper",
		Command:  "sh",
		Args:     []string{"-c", "sleep 60"},
	})
	require.NoError(t, err)
	assert.True(t, proc.Alive())
	assert.Greater(t, proc.Pid(), 0)

	require.NoError(t, proc.Kill())
	assert.Eventually(t, func() bool { return !proc.Alive() }, 2*time.Second, 10*time.Millisecond)
}

func TestBuildChildEnv_DropsSecretLikeKeys(t *testing.T) {
	env := BuildChildEnv(config.ServerConfig{
		ServerID: "linear",
		AllowlistedEnv: map[string]string{
			"LINEAR_BASE_URL": "https://api.linear.app",
			"API_SECRET":      "shh",
			"ACCESS_KEY":      "shh",
			"DB_PASSWORD":     "shh",
		},
	})

	joined := strings.Join(env, "\n")
	assert.Contains(t, joined, "LINEAR_BASE_URL=https://api.linear.app")
	for _, banned := range []string{"API_SECRET", "ACCESS_KEY", "DB_PASSWORD"} {
		assert.NotContains(t, joined, banned)
	}
}

func TestBuildChildEnv_ForwardsBaseAllowlistOnly(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("SOME_UNRELATED_VAR", "nope")

	env := BuildChildEnv(config.ServerConfig{ServerID: "x"})
	joined := strings.Join(env, "\n")
	assert.Contains(t, joined, "TZ=UTC")
	assert.NotContains(t, joined, "SOME_UNRELATED_VAR")
}
