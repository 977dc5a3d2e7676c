package servermanager

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	gwconfig "github.com/stacklok/mcp-vgateway/pkg/config"
	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/internal/transport"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// killGrace is how long shutdown waits after SIGTERM before killing.
const killGrace = 5 * time.Second

// Manager owns every ServerInstance for every configured server. All
// mutation of pool membership goes through its methods.
type Manager struct {
	configs gwconfig.ServerConfigs
	spawner Spawner

	handshakeTimeout time.Duration

	mu   sync.Mutex
	pool map[string][]*Instance // serverId -> instances

	stopHealthLoops context.CancelFunc
	wg              sync.WaitGroup
}

// NewManager builds a Manager for the given server registry.
func NewManager(configs gwconfig.ServerConfigs, spawner Spawner, handshakeTimeout time.Duration) *Manager {
	return &Manager{
		configs:          configs,
		spawner:          spawner,
		handshakeTimeout: handshakeTimeout,
		pool:             make(map[string][]*Instance),
	}
}

// Initialize spawns the minimum instance count for every configured server
// in parallel and starts each server's health-check ticker.
func (m *Manager) Initialize(ctx context.Context) error {
	hctx, cancel := context.WithCancel(context.Background())
	m.stopHealthLoops = cancel

	g, gctx := errgroup.WithContext(ctx)
	for serverID, sc := range m.configs {
		serverID, sc := serverID, sc
		for n := 0; n < sc.MinInstances(); n++ {
			g.Go(func() error {
				if _, err := m.spawnInstance(gctx, serverID, sc); err != nil {
					logger.Warnf("failed to spawn initial instance of %s: %v", serverID, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for serverID, sc := range m.configs {
		m.wg.Add(1)
		go m.healthLoop(hctx, serverID, sc)
	}
	return nil
}

func (m *Manager) spawnInstance(ctx context.Context, serverID string, sc gwconfig.ServerConfig) (*Instance, error) {
	proc, err := m.spawner(ctx, sc)
	if err != nil {
		return nil, gwerrors.NewTransportHandshakeFailedError("failed to start child process", err)
	}

	conn := transport.NewConn(serverID+"/"+strconv.Itoa(proc.Pid()), proc.Stdin(), proc.Stdout(), proc.Stderr())
	inst := newInstance(serverID, conn, proc)

	hctx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	defer cancel()
	if err := conn.Handshake(hctx, m.handshakeTimeout); err != nil {
		// On handshake failure, kill and discard; the next ensureMin tick
		// retries. No pending-retry state is kept.
		inst.terminate()
		return nil, err
	}

	m.mu.Lock()
	m.pool[serverID] = append(m.pool[serverID], inst)
	m.mu.Unlock()

	logger.Infof("spawned instance %s of server %s (pid %d)", inst.InstanceID, serverID, proc.Pid())
	return inst, nil
}

// ensureMin tops the pool for serverID back up to MinInstances, never
// exceeding MaxInstances.
func (m *Manager) ensureMin(ctx context.Context, serverID string) {
	sc, ok := m.configs[serverID]
	if !ok {
		return
	}

	m.mu.Lock()
	healthyCount := 0
	total := len(m.pool[serverID])
	for _, inst := range m.pool[serverID] {
		if inst.Healthy() {
			healthyCount++
		}
	}
	m.mu.Unlock()

	need := sc.MinInstances() - healthyCount
	if need <= 0 {
		return
	}
	if total+need > sc.MaxInstances {
		need = sc.MaxInstances - total
	}

	for n := 0; n < need; n++ {
		if _, err := m.spawnInstance(ctx, serverID, sc); err != nil {
			logger.Warnf("ensureMin: failed to spawn instance of %s: %v", serverID, err)
		}
	}
}

// Acquire picks the healthy instance of serverID with the fewest active
// connections. Ties break by earliest SpawnedAt, then lexicographic
// InstanceID, so selection is deterministic.
func (m *Manager) Acquire(ctx context.Context, serverID string) (*Instance, error) {
	m.mu.Lock()
	instances := m.pool[serverID]
	healthy := make([]*Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Healthy() {
			healthy = append(healthy, inst)
		}
	}
	m.mu.Unlock()

	if len(healthy) == 0 {
		go m.ensureMin(context.Background(), serverID)
		return nil, gwerrors.NewNoHealthyInstanceError("no healthy instance for server "+serverID, nil)
	}

	sort.Slice(healthy, func(i, j int) bool {
		a, b := healthy[i], healthy[j]
		ac, bc := a.ActiveConnections(), b.ActiveConnections()
		if ac != bc {
			return ac < bc
		}
		if !a.SpawnedAt.Equal(b.SpawnedAt) {
			return a.SpawnedAt.Before(b.SpawnedAt)
		}
		return a.InstanceID < b.InstanceID
	})

	chosen := healthy[0]
	chosen.incr()
	return chosen, nil
}

// Release decrements the instance's active-connection count, clamped at 0.
func (m *Manager) Release(inst *Instance) {
	if inst == nil {
		return
	}
	inst.decr()
}

// HealthSnapshot describes one server's pool state for /health and metrics
// reporting.
type HealthSnapshot struct {
	Instances int
	Healthy   int
	LastCheck time.Time
}

// Snapshot returns a HealthSnapshot per serverId.
func (m *Manager) Snapshot() map[string]HealthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]HealthSnapshot, len(m.pool))
	for serverID := range m.configs {
		snap := HealthSnapshot{}
		for _, inst := range m.pool[serverID] {
			snap.Instances++
			if inst.Healthy() {
				snap.Healthy++
			}
			if checked := inst.LastHealthCheckAt(); checked.After(snap.LastCheck) {
				snap.LastCheck = checked
			}
		}
		out[serverID] = snap
	}
	return out
}

// healthLoop ticks every healthCheckIntervalMs, marking dead instances
// unhealthy, terminating them, then topping the pool back up. A dead pid is
// the only liveness signal: MCP children may legitimately be quiescent, so
// nothing deeper is checked.
func (m *Manager) healthLoop(ctx context.Context, serverID string, sc gwconfig.ServerConfig) {
	defer m.wg.Done()

	interval := time.Duration(sc.HealthCheckIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(ctx, serverID)
		}
	}
}

func (m *Manager) checkOnce(ctx context.Context, serverID string) {
	m.mu.Lock()
	instances := append([]*Instance(nil), m.pool[serverID]...)
	m.mu.Unlock()

	var dead []*Instance
	for _, inst := range instances {
		alive := inst.process.Alive()
		inst.markHealthCheck(alive)
		if !alive {
			dead = append(dead, inst)
		}
	}

	if len(dead) > 0 {
		m.mu.Lock()
		remaining := m.pool[serverID][:0]
		deadSet := make(map[string]bool, len(dead))
		for _, d := range dead {
			deadSet[d.InstanceID] = true
		}
		for _, inst := range m.pool[serverID] {
			if deadSet[inst.InstanceID] {
				continue
			}
			remaining = append(remaining, inst)
		}
		m.pool[serverID] = remaining
		m.mu.Unlock()

		for _, inst := range dead {
			inst.terminate()
		}
	}

	m.ensureMin(ctx, serverID)
}

// Shutdown stops the health loops, SIGTERMs every child, kills stragglers
// after killGrace, and fails all pending calls.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.stopHealthLoops != nil {
		m.stopHealthLoops()
	}
	m.wg.Wait()

	m.mu.Lock()
	all := make([]*Instance, 0)
	for _, instances := range m.pool {
		all = append(all, instances...)
	}
	m.pool = make(map[string][]*Instance)
	m.mu.Unlock()

	for _, inst := range all {
		_ = inst.process.Signal(syscall.SIGTERM)
	}

	done := make(chan struct{})
	go func() {
		deadline := time.Now().Add(killGrace)
		for time.Now().Before(deadline) {
			allDead := true
			for _, inst := range all {
				if inst.process.Alive() {
					allDead = false
					break
				}
			}
			if allDead {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(killGrace):
	case <-ctx.Done():
	}

	for _, inst := range all {
		inst.terminate()
	}
	return nil
}
