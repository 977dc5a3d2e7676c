// Package capability builds and queries the process-wide capability index:
// the single source of routing truth mapping a tool, resource, or prompt
// name to the one server that exports it.
package capability

import (
	"fmt"
	"sort"

	"github.com/stacklok/mcp-vgateway/pkg/config"
)

// Index is immutable after Build and safe for concurrent reads.
type Index struct {
	byCapability map[string]string   // capability name -> serverId
	byServer     map[string][]string // serverId -> capabilities, for listings
	serverIDs    []string            // lexically sorted, for deterministic fan-out
}

// Build constructs the index from the full server registry. Global
// uniqueness of capability names was already enforced by
// config.ServerConfigs.Validate at load time, so Build itself never fails.
func Build(configs config.ServerConfigs) *Index {
	idx := &Index{
		byCapability: make(map[string]string),
		byServer:     make(map[string][]string),
	}
	for serverID, sc := range configs {
		idx.serverIDs = append(idx.serverIDs, serverID)
		caps := append([]string(nil), sc.Capabilities...)
		sort.Strings(caps)
		idx.byServer[serverID] = caps
		for _, capName := range sc.Capabilities {
			idx.byCapability[capName] = serverID
		}
	}
	sort.Strings(idx.serverIDs)
	return idx
}

// Resolve returns the serverId that exports capabilityName.
func (idx *Index) Resolve(capabilityName string) (string, bool) {
	serverID, ok := idx.byCapability[capabilityName]
	return serverID, ok
}

// Capabilities returns the sorted capability names exported by serverID.
func (idx *Index) Capabilities(serverID string) []string {
	return idx.byServer[serverID]
}

// ServerIDs returns every configured serverId in lexical order, the
// iteration order list fan-out relies on for deterministic first-wins
// de-duplication.
func (idx *Index) ServerIDs() []string {
	return idx.serverIDs
}

// String renders the index for debug logging.
func (idx *Index) String() string {
	return fmt.Sprintf("capability.Index{%d servers, %d capabilities}", len(idx.serverIDs), len(idx.byCapability))
}
