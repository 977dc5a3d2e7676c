package servermanager

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync/atomic"

	"github.com/stacklok/mcp-vgateway/pkg/config"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// ProcessHandle abstracts the running child so the manager can be tested
// against a fake without spawning real processes.
type ProcessHandle interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	Pid() int
	// Alive reports whether the process is still running. This is the only
	// liveness signal the health loop uses.
	Alive() bool
	Kill() error
	Signal(os.Signal) error
}

// Spawner creates a new ProcessHandle for a ServerConfig. The default
// implementation (NewExecSpawner) execs the configured command with pipes
// and an allowlisted environment; tests substitute a fake.
type Spawner func(ctx context.Context, sc config.ServerConfig) (ProcessHandle, error)

// baseEnvAllowlist is the fixed set of process environment keys forwarded
// to every child regardless of ServerConfig.
var baseEnvAllowlist = []string{"PATH", "HOME", "USER", "TZ", "NODE_ENV", "LOG_LEVEL"}

var secretLikeEnvKey = regexp.MustCompile(`(?i)KEY|SECRET|PASSWORD`)

// BuildChildEnv assembles the child's environment from the base allowlist
// merged with ServerConfig.AllowlistedEnv, rejecting any key that looks
// like a secret. Secrets belong to the child's own config, never copied in
// by the gateway.
func BuildChildEnv(sc config.ServerConfig) []string {
	env := make(map[string]string)
	for _, key := range baseEnvAllowlist {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	for k, v := range sc.AllowlistedEnv {
		if secretLikeEnvKey.MatchString(k) {
			logger.Warnf("refusing to forward secret-like env key %q to server %s", k, sc.ServerID)
			continue
		}
		env[k] = v
	}

	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}

// execProcessHandle wraps os/exec.Cmd. A goroutine reaps the child via
// cmd.Wait as soon as it exits; kill(pid, 0) keeps succeeding against an
// unreaped zombie, so the reaped exit status is the liveness signal.
type execProcessHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	exited atomic.Bool
}

func (h *execProcessHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *execProcessHandle) Stdout() io.Reader     { return h.stdout }
func (h *execProcessHandle) Stderr() io.Reader     { return h.stderr }

func (h *execProcessHandle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execProcessHandle) Alive() bool {
	if h.cmd.Process == nil {
		return false
	}
	return !h.exited.Load()
}

func (h *execProcessHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *execProcessHandle) Signal(sig os.Signal) error {
	if h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return h.cmd.Process.Signal(sig)
}

// NewExecSpawner returns a Spawner that execs the configured command with no
// shell, piped stdio, in the configured working directory.
func NewExecSpawner() Spawner {
	return func(ctx context.Context, sc config.ServerConfig) (ProcessHandle, error) {
		//nolint:gosec // command/args come from an operator-controlled server config file, not client input
		cmd := exec.CommandContext(ctx, sc.Command, sc.Args...)
		cmd.Dir = sc.WorkingDir
		cmd.Env = BuildChildEnv(sc)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("creating stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("creating stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("creating stderr pipe: %w", err)
		}

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting child process: %w", err)
		}

		h := &execProcessHandle{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}
		go func() {
			_ = cmd.Wait()
			h.exited.Store(true)
		}()
		return h, nil
	}
}
