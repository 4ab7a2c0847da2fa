package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/AgentForge/internal/port/broadcast"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
	"github.com/Strob0t/AgentForge/internal/port/profilestore"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

// Sessions drives interactive agent sessions: it resolves each agent's
// runtime command through its adapter, routes the spawn to the direct or
// sandboxed lifecycle manager by profile, and fans session output out to
// connected shells and the event bus.
type Sessions struct {
	profiles  profilestore.Store
	direct    lifecycle.Manager
	sandboxed lifecycle.Manager
	adapters  func(name string) (runtime.Adapter, error)
	bus       eventbus.Bus
	bc        broadcast.Broadcaster

	mu        sync.Mutex
	sandboxBy map[string]bool // agent id → spawned through the sandboxed manager
}

// NewSessions creates the interactive session service. The lifecycle
// managers are attached afterwards, since they take this service as their
// output sink.
func NewSessions(profiles profilestore.Store, adapters func(name string) (runtime.Adapter, error), bus eventbus.Bus, bc broadcast.Broadcaster) *Sessions {
	return &Sessions{
		profiles:  profiles,
		adapters:  adapters,
		bus:       bus,
		bc:        bc,
		sandboxBy: make(map[string]bool),
	}
}

// Attach wires the lifecycle managers. sandboxed may be nil when no
// container runtime is configured; sandboxed profiles then fail to spawn
// with an explicit error.
func (s *Sessions) Attach(direct, sandboxed lifecycle.Manager) {
	s.direct = direct
	s.sandboxed = sandboxed
}

// Spawn starts an interactive session for the agent. A second call for an
// agent with a live session fails without side effects.
func (s *Sessions) Spawn(ctx context.Context, agentID string, cols, rows uint16) lifecycle.SpawnResult {
	profile, err := s.profiles.Get(ctx, agentID)
	if err != nil {
		return lifecycle.SpawnResult{Error: fmt.Sprintf("unknown agent %s", agentID)}
	}

	adapter, err := s.adapters(string(profile.Runtime))
	if err != nil {
		return lifecycle.SpawnResult{Error: err.Error()}
	}
	spawn, err := adapter.BuildSpawnConfig(profile)
	if err != nil {
		return lifecycle.SpawnResult{Error: err.Error()}
	}

	manager := s.direct
	if profile.Sandboxed {
		if s.sandboxed == nil {
			return lifecycle.SpawnResult{Error: "no container runtime configured"}
		}
		manager = s.sandboxed
	}

	result := manager.Spawn(ctx, agentID, spawn.Command, spawn.Args, lifecycle.SpawnOptions{
		Cwd:  profile.WorkingDir,
		Env:  spawn.Env,
		Cols: cols,
		Rows: rows,
	})
	if !result.Success {
		return result
	}

	s.mu.Lock()
	s.sandboxBy[agentID] = profile.Sandboxed
	s.mu.Unlock()

	slog.Info("session started", "agent_id", agentID, "pid", result.PID, "sandboxed", profile.Sandboxed)
	s.publish(ctx, eventbus.SubjectSessionStarted, eventbus.SessionStartedPayload{
		AgentID:   agentID,
		PID:       result.PID,
		Sandboxed: profile.Sandboxed,
	})
	return result
}

// Write forwards input to the agent's live session.
func (s *Sessions) Write(agentID string, data []byte) error {
	return s.manager(agentID).Write(agentID, data)
}

// Resize changes the session's terminal dimensions.
func (s *Sessions) Resize(agentID string, cols, rows uint16) error {
	return s.manager(agentID).Resize(agentID, cols, rows)
}

// Kill terminates the agent's session: full process tree for direct
// sessions, container stop for sandboxed ones.
func (s *Sessions) Kill(ctx context.Context, agentID string) error {
	return s.manager(agentID).Kill(ctx, agentID)
}

// Scrollback returns the retained output buffer for reconnecting shells.
func (s *Sessions) Scrollback(agentID string) []byte {
	return s.manager(agentID).Scrollback(agentID)
}

// IsRunning reports whether the agent has a live session.
func (s *Sessions) IsRunning(agentID string) bool {
	return s.manager(agentID).IsRunning(agentID)
}

// KillAll terminates every live session across both managers.
func (s *Sessions) KillAll(ctx context.Context) error {
	err := s.direct.KillAll(ctx)
	if s.sandboxed != nil {
		if serr := s.sandboxed.KillAll(ctx); err == nil {
			err = serr
		}
	}
	return err
}

func (s *Sessions) manager(agentID string) lifecycle.Manager {
	s.mu.Lock()
	sandboxed := s.sandboxBy[agentID]
	s.mu.Unlock()
	if sandboxed && s.sandboxed != nil {
		return s.sandboxed
	}
	return s.direct
}

// HandleOutput implements lifecycle.Sink: batched session output is pushed
// to connected shells.
func (s *Sessions) HandleOutput(agentID string, data []byte) {
	s.bc.BroadcastEvent(context.Background(), "session:output", map[string]any{
		"agent_id": agentID,
		"data":     string(data),
	})
}

// HandleExit implements lifecycle.Sink.
func (s *Sessions) HandleExit(agentID string, exitCode int, lastOutput string) {
	s.mu.Lock()
	delete(s.sandboxBy, agentID)
	s.mu.Unlock()

	slog.Info("session exited", "agent_id", agentID, "exit_code", exitCode)
	s.publish(context.Background(), eventbus.SubjectSessionExited, eventbus.SessionExitedPayload{
		AgentID:    agentID,
		ExitCode:   exitCode,
		LastOutput: lastOutput,
	})
	s.bc.BroadcastEvent(context.Background(), "session:exited", map[string]any{
		"agent_id":  agentID,
		"exit_code": exitCode,
	})
}

func (s *Sessions) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
