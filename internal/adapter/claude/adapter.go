// Package claude implements the runtime adapter for the Claude Code CLI.
// Claude emits the structured stream-json protocol and takes its prompt as
// an argument.
package claude

import (
	"context"
	"fmt"

	"github.com/Strob0t/AgentForge/internal/adapter/cliexec"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

const adapterName = "claude"

// Adapter drives the claude CLI.
type Adapter struct {
	binary string
}

// New creates a Claude adapter. config["binary"] overrides the executable.
func New(config map[string]string) *Adapter {
	bin := config["binary"]
	if bin == "" {
		bin = "claude"
	}
	return &Adapter{binary: bin}
}

// Register registers the Claude adapter factory.
func Register() {
	runtime.Register(adapterName, func(config map[string]string) (runtime.Adapter, error) {
		return New(config), nil
	})
}

// Name returns "claude".
func (a *Adapter) Name() string { return adapterName }

// BuildSpawnConfig resolves the interactive session command.
func (a *Adapter) BuildSpawnConfig(profile *agent.Profile) (runtime.SpawnConfig, error) {
	args := []string{}
	if profile.Model != "" {
		args = append(args, "--model", profile.Model)
	}
	if !profile.AllowWrite {
		args = append(args, "--permission-mode", "plan")
	}
	return runtime.SpawnConfig{
		Command:        a.binary,
		Args:           args,
		Env:            profile.Env,
		PromptViaStdin: true,
	}, nil
}

// FormatInput prefixes delegated work with its origin so the agent can
// address the reply.
func (a *Adapter) FormatInput(text string, ictx runtime.InputContext) string {
	if ictx.Delegated && ictx.SenderID != "" {
		return fmt.Sprintf("[delegated by %s, task %s]\n%s", ictx.SenderID, ictx.TaskID, text)
	}
	return text
}

// Execute runs text as a one-shot task through the structured protocol.
func (a *Adapter) Execute(ctx context.Context, profile *agent.Profile, text string, opts runtime.ExecuteOptions) (*runtime.Result, error) {
	args := []string{"-p", text, "--output-format", "stream-json", "--verbose"}
	if profile.Model != "" {
		args = append(args, "--model", profile.Model)
	}
	if profile.AllowWrite {
		args = append(args, "--dangerously-skip-permissions")
	}

	return cliexec.Run(ctx, cliexec.Spec{
		Command:    a.binary,
		Args:       args,
		Env:        profile.Env,
		Dir:        profile.WorkingDir,
		Structured: true,
	}, text, opts)
}
