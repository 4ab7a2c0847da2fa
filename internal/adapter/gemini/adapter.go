// Package gemini implements the runtime adapter for the Gemini CLI. Gemini
// has no structured output protocol, so execution uses the throttled raw
// strategy.
package gemini

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/adapter/cliexec"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

const adapterName = "gemini"

// Adapter drives the gemini CLI.
type Adapter struct {
	binary string
}

// New creates a Gemini adapter. config["binary"] overrides the executable.
func New(config map[string]string) *Adapter {
	bin := config["binary"]
	if bin == "" {
		bin = "gemini"
	}
	return &Adapter{binary: bin}
}

// Register registers the Gemini adapter factory.
func Register() {
	runtime.Register(adapterName, func(config map[string]string) (runtime.Adapter, error) {
		return New(config), nil
	})
}

// Name returns "gemini".
func (a *Adapter) Name() string { return adapterName }

// BuildSpawnConfig resolves the interactive session command.
func (a *Adapter) BuildSpawnConfig(profile *agent.Profile) (runtime.SpawnConfig, error) {
	args := []string{}
	if profile.Model != "" {
		args = append(args, "-m", profile.Model)
	}
	if profile.AllowWrite {
		args = append(args, "-y")
	}
	return runtime.SpawnConfig{
		Command:        a.binary,
		Args:           args,
		Env:            profile.Env,
		PromptViaStdin: true,
	}, nil
}

// FormatInput returns text unchanged.
func (a *Adapter) FormatInput(text string, _ runtime.InputContext) string { return text }

// Execute runs text as a one-shot task with prompt passed as an argument
// and raw throttled output.
func (a *Adapter) Execute(ctx context.Context, profile *agent.Profile, text string, opts runtime.ExecuteOptions) (*runtime.Result, error) {
	args := []string{"-p", text}
	if profile.Model != "" {
		args = append(args, "-m", profile.Model)
	}
	if profile.AllowWrite {
		args = append(args, "-y")
	}

	return cliexec.Run(ctx, cliexec.Spec{
		Command: a.binary,
		Args:    args,
		Env:     profile.Env,
		Dir:     profile.WorkingDir,
	}, text, opts)
}
