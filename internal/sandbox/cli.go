// Package sandbox provisions one isolated container per agent and drives
// an external container CLI through argument vectors: create, start, stop,
// remove, exec, build, and label-filtered listing.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runCLI executes the container CLI with the given args and returns stdout.
// It is a variable so tests can substitute a fake runtime.
var runCLI = func(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // G204: argv is constructed internally, not from user input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
