// Package lifecycle defines the process lifecycle manager port shared by
// the direct (bare PTY) and sandboxed (container exec) implementations.
package lifecycle

import "context"

// SpawnOptions configures a new interactive session.
type SpawnOptions struct {
	Cwd  string
	Env  map[string]string
	Cols uint16
	Rows uint16
}

// SpawnResult reports the outcome of a spawn attempt.
type SpawnResult struct {
	Success bool   `json:"success"`
	PID     int    `json:"pid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sink receives session output and exit notifications. A bounded delivery
// queue sits between the session and the sink; if the sink falls behind,
// output chunks are coalesced rather than dropped.
type Sink interface {
	// HandleOutput receives a batched chunk of terminal output.
	HandleOutput(agentID string, data []byte)

	// HandleExit fires once when the session ends. lastOutput is the tail
	// of the session's output, retained for error diagnostics.
	HandleExit(agentID string, exitCode int, lastOutput string)
}

// Manager owns interactive sessions keyed by agent id. At most one live
// session may exist per agent id; a second Spawn for the same id fails
// without side effects.
type Manager interface {
	Spawn(ctx context.Context, agentID, command string, args []string, opts SpawnOptions) SpawnResult
	Write(agentID string, data []byte) error
	Resize(agentID string, cols, rows uint16) error
	Kill(ctx context.Context, agentID string) error
	Scrollback(agentID string) []byte
	IsRunning(agentID string) bool
	KillAll(ctx context.Context) error
}
