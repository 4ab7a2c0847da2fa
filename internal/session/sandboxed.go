package session

import (
	"context"
	"fmt"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
)

// ContainerProvider is the slice of the sandbox manager the sandboxed
// lifecycle manager needs: a running container per agent, and a way to
// stop it.
type ContainerProvider interface {
	// ContainerFor returns the id of the agent's running container,
	// creating and starting it on first use.
	ContainerFor(ctx context.Context, agentID string) (string, error)

	// StopContainer stops the agent's container and releases its ports.
	StopContainer(ctx context.Context, agentID string) error
}

// SandboxedManager runs the lifecycle contract against commands executed
// inside each agent's container. The terminal bridging is the direct
// manager's, reused verbatim; only spawn argv and termination differ.
type SandboxedManager struct {
	inner      *DirectManager
	containers ContainerProvider
	runtime    string // container CLI binary
}

// NewSandboxedManager creates a sandboxed lifecycle manager.
func NewSandboxedManager(cfg config.Session, sandboxCfg config.Sandbox, containers ContainerProvider, sink lifecycle.Sink) *SandboxedManager {
	return &SandboxedManager{
		inner:      NewDirectManager(cfg, sink),
		containers: containers,
		runtime:    sandboxCfg.Runtime,
	}
}

// Spawn execs the command inside the agent's container on a PTY. Killing a
// sandboxed session stops the container rather than tree-killing a process;
// stopping the container takes everything with it.
func (m *SandboxedManager) Spawn(ctx context.Context, agentID, command string, args []string, opts lifecycle.SpawnOptions) lifecycle.SpawnResult {
	containerID, err := m.containers.ContainerFor(ctx, agentID)
	if err != nil {
		return lifecycle.SpawnResult{Success: false, Error: fmt.Sprintf("container for %s: %v", agentID, err)}
	}

	argv := []string{"exec", "-it", "-w", "/workspace"}
	for k, v := range opts.Env {
		argv = append(argv, "-e", k+"="+v)
	}
	argv = append(argv, containerID, command)
	argv = append(argv, args...)

	// The exec runs in the container's own environment; only the PTY-side
	// options carry over.
	execOpts := lifecycle.SpawnOptions{Cols: opts.Cols, Rows: opts.Rows}

	return m.inner.spawnThrough(agentID, m.runtime, argv, execOpts, func(ctx context.Context) error {
		return m.containers.StopContainer(ctx, agentID)
	})
}

// Write sends input to the session's PTY.
func (m *SandboxedManager) Write(agentID string, data []byte) error {
	return m.inner.Write(agentID, data)
}

// Resize changes the session's terminal dimensions.
func (m *SandboxedManager) Resize(agentID string, cols, rows uint16) error {
	return m.inner.Resize(agentID, cols, rows)
}

// Kill stops the agent's container, ending the session.
func (m *SandboxedManager) Kill(ctx context.Context, agentID string) error {
	return m.inner.Kill(ctx, agentID)
}

// Scrollback returns the retained output buffer.
func (m *SandboxedManager) Scrollback(agentID string) []byte {
	return m.inner.Scrollback(agentID)
}

// IsRunning reports whether a live session exists for agentID.
func (m *SandboxedManager) IsRunning(agentID string) bool {
	return m.inner.IsRunning(agentID)
}

// KillAll terminates every live sandboxed session.
func (m *SandboxedManager) KillAll(ctx context.Context) error {
	return m.inner.KillAll(ctx)
}
