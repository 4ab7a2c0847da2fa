// Package runtime defines the runtime adapter port: one implementation per
// agent CLI tool, translating between the coordination core and the tool's
// command line and output protocol.
package runtime

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// SpawnConfig is the fully resolved command an adapter wants executed.
type SpawnConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	// PromptViaStdin is true when the prompt text must be written to the
	// process's input channel; false when the adapter passed it as an
	// argument in Args.
	PromptViaStdin bool
}

// InputContext carries optional context prepended to formatted input.
type InputContext struct {
	TaskID    string
	SenderID  string
	Delegated bool
}

// ProgressKind classifies a progress event.
type ProgressKind string

const (
	ProgressToolUse    ProgressKind = "tool-use"
	ProgressThinking   ProgressKind = "thinking"
	ProgressText       ProgressKind = "text"
	ProgressProcessing ProgressKind = "processing"
)

// Progress is one normalized progress event emitted while a tool runs.
type Progress struct {
	Kind    ProgressKind
	Summary string
}

// Usage aggregates token counts across an execution.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Result is the outcome of a one-shot execution.
type Result struct {
	Success   bool
	Text      string
	SessionID string
	Error     string
	Usage     Usage
}

// ExecuteOptions controls a one-shot execution.
type ExecuteOptions struct {
	// OnProgress, if non-nil, receives normalized progress events.
	OnProgress func(Progress)
	// OnTerminal, if non-nil, receives raw-terminal-ready output fragments.
	OnTerminal func(string)
}

// Adapter is the per-CLI-tool strategy: command construction, input
// formatting, and one-shot execution with output normalization. Adapters
// hold no mutable state; a single execution driver runs them.
type Adapter interface {
	// Name returns the unique runtime identifier (e.g. "claude").
	Name() string

	// BuildSpawnConfig resolves the command line for an interactive
	// session of this tool for the given profile.
	BuildSpawnConfig(profile *agent.Profile) (SpawnConfig, error)

	// FormatInput wraps text with any framing the tool expects.
	FormatInput(text string, ictx InputContext) string

	// Execute runs text as a one-shot task. Cancelling ctx terminates the
	// underlying subprocess. A non-nil Result with Success=false is a tool
	// failure; an error return is an infrastructure failure (spawn).
	Execute(ctx context.Context, profile *agent.Profile, text string, opts ExecuteOptions) (*Result, error)
}
