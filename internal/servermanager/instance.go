package servermanager

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/mcp-vgateway/internal/transport"
)

// Instance is one running child process serving one MCP server. It is
// owned exclusively by Manager; callers only ever see it through
// Acquire/Release.
type Instance struct {
	InstanceID string
	ServerID   string

	Conn    *transport.Conn
	process ProcessHandle

	SpawnedAt time.Time

	lastHealthCheckAt atomic.Int64 // unix nanos
	healthy           atomic.Bool
	activeConnections atomic.Int64
}

func newInstance(serverID string, conn *transport.Conn, process ProcessHandle) *Instance {
	inst := &Instance{
		InstanceID: uuid.NewString(),
		ServerID:   serverID,
		Conn:       conn,
		process:    process,
		SpawnedAt:  time.Now(),
	}
	inst.healthy.Store(true)
	inst.lastHealthCheckAt.Store(time.Now().UnixNano())
	return inst
}

// Healthy reports whether this instance currently participates in selection.
func (i *Instance) Healthy() bool { return i.healthy.Load() }

// ActiveConnections returns the current acquire/release count.
func (i *Instance) ActiveConnections() int64 { return i.activeConnections.Load() }

// LastHealthCheckAt returns the last time the health loop examined this instance.
func (i *Instance) LastHealthCheckAt() time.Time {
	return time.Unix(0, i.lastHealthCheckAt.Load())
}

func (i *Instance) markHealthCheck(alive bool) {
	i.lastHealthCheckAt.Store(time.Now().UnixNano())
	i.healthy.Store(alive)
}

func (i *Instance) incr() int64 {
	return i.activeConnections.Add(1)
}

func (i *Instance) decr() {
	for {
		cur := i.activeConnections.Load()
		if cur <= 0 {
			return
		}
		if i.activeConnections.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (i *Instance) terminate() {
	i.healthy.Store(false)
	if i.Conn != nil {
		i.Conn.Close()
	}
	if i.process != nil {
		_ = i.process.Kill()
	}
}
