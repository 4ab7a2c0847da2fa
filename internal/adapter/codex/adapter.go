// Package codex implements the runtime adapter for the Codex CLI. Codex
// emits newline-delimited JSON events and reads its prompt from stdin.
package codex

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/adapter/cliexec"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

const adapterName = "codex"

// Adapter drives the codex CLI.
type Adapter struct {
	binary string
}

// New creates a Codex adapter. config["binary"] overrides the executable.
func New(config map[string]string) *Adapter {
	bin := config["binary"]
	if bin == "" {
		bin = "codex"
	}
	return &Adapter{binary: bin}
}

// Register registers the Codex adapter factory.
func Register() {
	runtime.Register(adapterName, func(config map[string]string) (runtime.Adapter, error) {
		return New(config), nil
	})
}

// Name returns "codex".
func (a *Adapter) Name() string { return adapterName }

// BuildSpawnConfig resolves the interactive session command.
func (a *Adapter) BuildSpawnConfig(profile *agent.Profile) (runtime.SpawnConfig, error) {
	args := []string{}
	if profile.Model != "" {
		args = append(args, "-m", profile.Model)
	}
	if profile.AllowWrite {
		args = append(args, "--full-auto")
	}
	return runtime.SpawnConfig{
		Command:        a.binary,
		Args:           args,
		Env:            profile.Env,
		PromptViaStdin: true,
	}, nil
}

// FormatInput returns text unchanged; codex needs no framing.
func (a *Adapter) FormatInput(text string, _ runtime.InputContext) string { return text }

// Execute runs text as a one-shot task through the structured protocol.
func (a *Adapter) Execute(ctx context.Context, profile *agent.Profile, text string, opts runtime.ExecuteOptions) (*runtime.Result, error) {
	args := []string{"exec", "--json"}
	if profile.Model != "" {
		args = append(args, "-m", profile.Model)
	}

	return cliexec.Run(ctx, cliexec.Spec{
		Command:        a.binary,
		Args:           args,
		Env:            profile.Env,
		Dir:            profile.WorkingDir,
		PromptViaStdin: true,
		Structured:     true,
	}, text, opts)
}
