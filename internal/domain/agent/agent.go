// Package agent defines the agent profile domain entity.
package agent

import "time"

// Runtime identifies which CLI tool backs an agent.
type Runtime string

const (
	RuntimeClaude Runtime = "claude"
	RuntimeCodex  Runtime = "codex"
	RuntimeGemini Runtime = "gemini"
)

// ValidRuntime reports whether r is a known agent runtime.
func ValidRuntime(r string) bool {
	switch Runtime(r) {
	case RuntimeClaude, RuntimeCodex, RuntimeGemini:
		return true
	}
	return false
}

// SystemAgentID is the built-in agent that receives schedule-generated tasks.
const SystemAgentID = "system"

// Profile represents a configured agent identity. Immutable during a run.
type Profile struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Runtime    Runtime           `json:"runtime"`
	Model      string            `json:"model,omitempty"`
	WorkingDir string            `json:"working_dir"`
	Sandboxed  bool              `json:"sandboxed"`
	AllowWrite bool              `json:"allow_write"`
	AllowNet   bool              `json:"allow_net"`
	Env        map[string]string `json:"env,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsSystem reports whether the profile is the built-in system agent.
func (p *Profile) IsSystem() bool { return p.ID == SystemAgentID }
