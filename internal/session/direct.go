package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
)

// session is one live PTY-backed agent session.
type session struct {
	agentID string
	master  *os.File
	cmd     *exec.Cmd
	handler *dataHandler

	// terminate ends the session: process-group kill for direct sessions,
	// container stop for sandboxed ones.
	terminate func(ctx context.Context) error

	done     chan struct{}
	exitOnce sync.Once
}

// DirectManager spawns agent CLIs directly through the user's shell on a
// pseudo-terminal.
type DirectManager struct {
	cfg      config.Session
	registry *Registry
	sink     lifecycle.Sink
}

// NewDirectManager creates a direct lifecycle manager owning its registry.
func NewDirectManager(cfg config.Session, sink lifecycle.Sink) *DirectManager {
	return &DirectManager{cfg: cfg, registry: NewRegistry(), sink: sink}
}

// Spawn starts an interactive session for agentID. A second call for the
// same id fails without side effects.
func (m *DirectManager) Spawn(_ context.Context, agentID, command string, args []string, opts lifecycle.SpawnOptions) lifecycle.SpawnResult {
	// Non-interactive shell invocation, not a login shell: profile scripts
	// must not silently override the sanitized environment.
	shell := m.shell()
	argv := []string{"-c", shellJoin(command, args)}

	return m.spawnThrough(agentID, shell, argv, opts, nil)
}

// spawnThrough runs the shared spawn path. terminate overrides the default
// process-group kill when set (sandboxed sessions stop their container).
func (m *DirectManager) spawnThrough(agentID, bin string, argv []string, opts lifecycle.SpawnOptions, terminate func(ctx context.Context) error) lifecycle.SpawnResult {
	s := &session{agentID: agentID, done: make(chan struct{})}
	if err := m.registry.reserve(agentID, s); err != nil {
		return lifecycle.SpawnResult{Success: false, Error: err.Error()}
	}

	master, slavePath, err := openPTY()
	if err != nil {
		m.registry.remove(agentID, s)
		return lifecycle.SpawnResult{Success: false, Error: fmt.Sprintf("allocate PTY: %v", err)}
	}

	slave, err := os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		master.Close()
		m.registry.remove(agentID, s)
		return lifecycle.SpawnResult{Success: false, Error: fmt.Sprintf("open PTY slave: %v", err)}
	}

	cols, rows := m.dimensions(opts)
	_ = setWindowSize(int(master.Fd()), cols, rows)

	cmd := exec.Command(bin, argv...) //nolint:gosec // G204: argv is manager-constructed
	cmd.Dir = opts.Cwd
	cmd.Env = sanitizeEnv(os.Environ(), opts.Env)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = slave PTY
	}

	if err := cmd.Start(); err != nil {
		slave.Close()
		master.Close()
		m.registry.remove(agentID, s)
		return lifecycle.SpawnResult{Success: false, Error: fmt.Sprintf("spawn %s: %v", bin, err)}
	}
	// Close slave in parent; the child holds its own copy via fd 0/1/2.
	slave.Close()

	s.master = master
	s.cmd = cmd
	s.handler = newDataHandler(agentID, m.cfg.ScrollbackKB*1024, m.cfg.BatchInterval, m.sink, func(reply []byte) {
		_, _ = master.Write(reply)
	})
	if terminate != nil {
		s.terminate = terminate
	} else {
		s.terminate = func(ctx context.Context) error { return m.killTree(ctx, s) }
	}

	go m.readLoop(s)
	go m.waitLoop(s)

	slog.Info("session spawned", "agent_id", agentID, "pid", cmd.Process.Pid)
	return lifecycle.SpawnResult{Success: true, PID: cmd.Process.Pid}
}

func (m *DirectManager) readLoop(s *session) {
	buf := make([]byte, 4096)
	for {
		n, err := s.master.Read(buf)
		if n > 0 {
			s.handler.handleOutput(buf[:n])
		}
		if err != nil {
			// EIO is the normal signal that the slave side closed.
			return
		}
	}
}

func (m *DirectManager) waitLoop(s *session) {
	err := s.cmd.Wait()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	s.master.Close()
	m.registry.remove(s.agentID, s)

	s.exitOnce.Do(func() {
		close(s.done)
		s.handler.finish(exitCode)
	})
	slog.Info("session exited", "agent_id", s.agentID, "exit_code", exitCode)
}

// signalGroup delivers sig to the process group led by pid. A variable so
// tests can observe the escalation without spawning real processes.
var signalGroup = func(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

// killTree terminates the entire descendant process tree, not just the
// immediate child: the shell may have spawned further children. Setsid at
// spawn made the child its own process-group leader, so signalling the
// group covers every descendant.
func (m *DirectManager) killTree(ctx context.Context, s *session) error {
	pid := s.cmd.Process.Pid
	if err := signalGroup(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", pid, err)
	}

	grace := time.Duration(m.cfg.KillGraceMs) * time.Millisecond
	select {
	case <-s.done:
		return nil
	case <-time.After(grace):
	case <-ctx.Done():
	}

	if err := signalGroup(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}
	return nil
}

// Write sends input to the session's PTY.
func (m *DirectManager) Write(agentID string, data []byte) error {
	s, ok := m.registry.get(agentID)
	if !ok {
		return fmt.Errorf("no session for agent %s", agentID)
	}
	_, err := s.master.Write(data)
	return err
}

// Resize changes the session's terminal dimensions.
func (m *DirectManager) Resize(agentID string, cols, rows uint16) error {
	s, ok := m.registry.get(agentID)
	if !ok {
		return fmt.Errorf("no session for agent %s", agentID)
	}
	return setWindowSize(int(s.master.Fd()), cols, rows)
}

// Kill terminates the session.
func (m *DirectManager) Kill(ctx context.Context, agentID string) error {
	s, ok := m.registry.get(agentID)
	if !ok {
		return fmt.Errorf("no session for agent %s", agentID)
	}
	return s.terminate(ctx)
}

// Scrollback returns the retained output buffer, or nil without a session.
func (m *DirectManager) Scrollback(agentID string) []byte {
	s, ok := m.registry.get(agentID)
	if !ok {
		return nil
	}
	return s.handler.scrollback()
}

// IsRunning reports whether a live session exists for agentID.
func (m *DirectManager) IsRunning(agentID string) bool {
	_, ok := m.registry.get(agentID)
	return ok
}

// KillAll terminates every live session.
func (m *DirectManager) KillAll(ctx context.Context) error {
	var firstErr error
	for _, s := range m.registry.all() {
		if err := s.terminate(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *DirectManager) shell() string {
	if m.cfg.Shell != "" {
		return m.cfg.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (m *DirectManager) dimensions(opts lifecycle.SpawnOptions) (cols, rows uint16) {
	cols, rows = opts.Cols, opts.Rows
	if cols == 0 {
		cols = m.cfg.DefaultCols
	}
	if rows == 0 {
		rows = m.cfg.DefaultRows
	}
	if cols == 0 || rows == 0 {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if cols == 0 {
				cols = uint16(w)
			}
			if rows == 0 {
				rows = uint16(h)
			}
		}
	}
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}
	return cols, rows
}

// nestedSessionVars are environment markers that would make agent tools
// believe they run inside a multiplexer and change behavior.
var nestedSessionVars = []string{"TMUX", "TMUX_PANE", "STY", "ZELLIJ", "ZELLIJ_SESSION_NAME"}

// sanitizeEnv strips nested-session markers, forces the terminal type, and
// overlays extra on top of base.
func sanitizeEnv(base []string, extra map[string]string) []string {
	out := make([]string, 0, len(base)+len(extra)+1)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if key == "TERM" || isNestedSessionVar(key) {
			continue
		}
		if _, shadowed := extra[key]; shadowed {
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "TERM=xterm-256color")
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}

func isNestedSessionVar(key string) bool {
	for _, v := range nestedSessionVars {
		if key == v {
			return true
		}
	}
	return false
}

// shellJoin builds a single shell -c argument from a command and its args,
// single-quoting each word.
func shellJoin(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(command))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
