package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/mcp-vgateway/pkg/config"
)

func TestBuild_ResolveAndListings(t *testing.T) {
	configs := config.ServerConfigs{
		"b-server": {ServerID: "b-server", Capabilities: []string{"tool_b", "tool_shared"}},
		"a-server": {ServerID: "a-server", Capabilities: []string{"tool_a"}},
	}

	idx := Build(configs)

	serverID, ok := idx.Resolve("tool_a")
	assert.True(t, ok)
	assert.Equal(t, "a-server", serverID)

	_, ok = idx.Resolve("nonexistent")
	assert.False(t, ok)

	assert.Equal(t, []string{"a-server", "b-server"}, idx.ServerIDs())
	assert.Equal(t, []string{"tool_b", "tool_shared"}, idx.Capabilities("b-server"))
}

func TestBuild_EmptyRegistry(t *testing.T) {
	idx := Build(config.ServerConfigs{})
	assert.Empty(t, idx.ServerIDs())
	_, ok := idx.Resolve("anything")
	assert.False(t, ok)
}
