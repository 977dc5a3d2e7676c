package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnstructuredLogsDefault(t *testing.T) {
	t.Setenv("UNSTRUCTURED_LOGS", "")
	assert.True(t, unstructuredLogs())
}

func TestUnstructuredLogsExplicitFalse(t *testing.T) {
	t.Setenv("UNSTRUCTURED_LOGS", "false")
	assert.False(t, unstructuredLogs())
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"", "info"},
		{"debug", "debug"},
		{"WARN", "warn"},
		{"error", "error"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			assert.Equal(t, tt.want, levelFromEnv().String())
		})
	}
}

func TestGetReturnsUsableLogger(t *testing.T) {
	l := Get()
	require.NotNil(t, l)
	Info("logger smoke test")
}

func TestInitializeSwapsSingleton(t *testing.T) {
	before := Get()
	Initialize()
	after := Get()
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
}
