// Package cliexec is the shared one-shot execution driver behind every
// runtime adapter. Adapters differ only in command construction, environment,
// and output strategy; the driver owns subprocess plumbing, cancellation,
// and result assembly.
package cliexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/Strob0t/AgentForge/internal/port/runtime"
	"github.com/Strob0t/AgentForge/internal/protocol"
)

// Spec is the data-driven strategy an adapter hands to the driver.
type Spec struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string

	// PromptViaStdin selects whether the prompt is written to the child's
	// stdin or was already embedded into Args by the adapter.
	PromptViaStdin bool

	// Structured selects the line-buffered JSON event strategy; false
	// selects the throttled raw-text strategy.
	Structured bool
}

// stderrTailMax bounds the retained stderr tail used for failure messages.
const stderrTailMax = 4096

// Run executes one prompt through the subprocess described by spec.
// Cancelling ctx terminates the process. The returned error covers spawn
// failures only; tool failures surface as Result.Success=false.
func Run(ctx context.Context, spec Spec, prompt string, opts runtime.ExecuteOptions) (*runtime.Result, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...) //nolint:gosec // G204: argv is adapter-constructed, not user input
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), flattenEnv(spec.Env)...)
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cliexec: stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stdin io.WriteCloser
	if spec.PromptViaStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("cliexec: stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cliexec: spawn %s: %w", spec.Command, err)
	}

	if spec.PromptViaStdin {
		go func() {
			_, _ = io.WriteString(stdin, prompt)
			_ = stdin.Close()
		}()
	}

	structured := protocol.NewStructuredStream(opts.OnProgress, opts.OnTerminal)
	raw := protocol.NewRawThrottle(opts.OnProgress, opts.OnTerminal)

	var rawOutput bytes.Buffer
	buf := make([]byte, 8192)
	for {
		n, readErr := stdout.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			rawOutput.Write(chunk)
			if spec.Structured {
				structured.Write(chunk)
			} else {
				raw.Write(chunk)
			}
		}
		if readErr != nil {
			break
		}
	}
	structured.Close()

	exitCode := 0
	if waitErr := cmd.Wait(); waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
		if ctx.Err() != nil {
			return &runtime.Result{Success: false, Error: "execution cancelled"}, nil
		}
	}

	var events []protocol.Event
	if spec.Structured {
		events = structured.Events()
	}
	return protocol.ExtractResult(events, rawOutput.String(), exitCode, tail(stderr.String(), stderrTailMax)), nil
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
