package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// Container labels used to find managed containers across restarts.
const (
	labelManaged  = "agentforge.managed"
	labelAgent    = "agentforge.agent"
	labelPortBase = "agentforge.port-base"
)

// ContainerInfo describes one agent's isolated environment.
type ContainerInfo struct {
	AgentID     string    `json:"agent_id"`
	ContainerID string    `json:"container_id"`
	Status      string    `json:"status"` // "running" or "stopped"
	Ports       PortRange `json:"ports"`
}

// ProfileResolver returns the profile for an agent id.
type ProfileResolver func(agentID string) (*agent.Profile, error)

// Manager owns one long-lived container per agent, created on first use and
// reused across restarts where possible.
type Manager struct {
	cfg      config.Sandbox
	ports    *PortAllocator
	image    *ImageBuilder
	profiles ProfileResolver

	mu         sync.Mutex
	containers map[string]*ContainerInfo
}

// NewManager creates a sandbox manager.
func NewManager(cfg config.Sandbox, profiles ProfileResolver) *Manager {
	return &Manager{
		cfg:        cfg,
		ports:      NewPortAllocator(cfg.PortRangeStart, cfg.PortsPerAgent, cfg.ContainerPort),
		image:      NewImageBuilder(cfg.Runtime, cfg.ImageName),
		profiles:   profiles,
		containers: make(map[string]*ContainerInfo),
	}
}

// CreateAndStart provisions and starts the agent's container. If a running
// container already exists for the agent, the existing record is returned
// instead of an error.
func (m *Manager) CreateAndStart(ctx context.Context, profile *agent.Profile) (*ContainerInfo, error) {
	m.mu.Lock()
	if info, ok := m.containers[profile.ID]; ok && info.Status == "running" {
		m.mu.Unlock()
		return info, nil
	}
	m.mu.Unlock()

	tag, err := m.image.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("sandbox image: %w", err)
	}

	ports, err := m.ports.Allocate(profile.ID)
	if err != nil {
		return nil, err
	}

	name := containerName(profile.ID)
	args := m.createArgs(profile, name, ports, tag)

	output, err := runCLI(ctx, m.cfg.Runtime, args...)
	if err != nil {
		if strings.Contains(err.Error(), "already in use") {
			return m.adoptByName(ctx, profile.ID, name)
		}
		m.ports.Release(profile.ID)
		return nil, fmt.Errorf("sandbox create: %w", err)
	}

	containerID := strings.TrimSpace(output)
	if _, err := runCLI(ctx, m.cfg.Runtime, "start", containerID); err != nil {
		m.ports.Release(profile.ID)
		return nil, fmt.Errorf("sandbox start: %w", err)
	}

	info := &ContainerInfo{AgentID: profile.ID, ContainerID: containerID, Status: "running", Ports: ports}
	m.mu.Lock()
	m.containers[profile.ID] = info
	m.mu.Unlock()

	slog.Info("sandbox started", "agent_id", profile.ID, "container_id", shortID(containerID), "host_ports", ports.HostStart)
	return info, nil
}

// createArgs builds the container creation argument vector: workspace
// mount, optional read-only skills directory, auto-detected credential
// directories, two named volumes persisting installed packages and cache,
// the agent's port block, and the managed labels.
func (m *Manager) createArgs(profile *agent.Profile, name string, ports PortRange, imageTag string) []string {
	args := []string{
		"create",
		"--name", name,
		"--label", labelManaged + "=true",
		"--label", labelAgent + "=" + profile.ID,
		"--label", labelPortBase + "=" + strconv.Itoa(ports.HostStart),
		"-v", profile.WorkingDir + ":/workspace",
		"-v", name + "-packages:/home/agent/.local",
		"-v", name + "-cache:/home/agent/.cache",
	}

	if m.cfg.SkillsDir != "" {
		args = append(args, "-v", m.cfg.SkillsDir+":/skills:ro")
	}
	for _, mount := range credentialMounts() {
		args = append(args, "-v", mount)
	}
	if !profile.AllowNet {
		args = append(args, "--network", "none")
	}
	for i := 0; i < ports.Count; i++ {
		args = append(args, "-p", fmt.Sprintf("%d:%d", ports.HostStart+i, ports.ContainerStart+i))
	}

	return append(args, imageTag)
}

// credentialMounts returns read-only mounts for each supported CLI tool's
// credential directory present on the host.
func credentialMounts() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	candidates := []struct{ host, container string }{
		{".claude", "/home/agent/.claude"},
		{".claude.json", "/home/agent/.claude.json"},
		{".codex", "/home/agent/.codex"},
		{".gemini", "/home/agent/.gemini"},
	}

	var mounts []string
	for _, c := range candidates {
		hostPath := filepath.Join(home, c.host)
		if _, err := os.Stat(hostPath); err == nil {
			mounts = append(mounts, hostPath+":"+c.container+":ro")
		}
	}
	return mounts
}

// adoptByName adopts a container that exists under our name but is missing
// from the in-memory registry (a leftover from a previous run the reclaim
// pass did not see). The port block is read back from the container's
// label, not taken from the caller: the mappings baked into the existing
// container win over whatever the allocator just handed out.
func (m *Manager) adoptByName(ctx context.Context, agentID, name string) (*ContainerInfo, error) {
	format := fmt.Sprintf("{{.Id}}\t{{.State.Running}}\t{{index .Config.Labels %q}}", labelPortBase)
	out, err := runCLI(ctx, m.cfg.Runtime, "inspect", "-f", format, name)
	if err != nil {
		return nil, fmt.Errorf("sandbox adopt %s: %w", name, err)
	}
	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) != 3 {
		return nil, fmt.Errorf("sandbox adopt: unexpected inspect output %q", out)
	}
	id, state, portBase := fields[0], fields[1], fields[2]

	base, err := strconv.Atoi(portBase)
	if err != nil {
		return nil, fmt.Errorf("sandbox adopt: bad port-base label %q on %s", portBase, name)
	}
	m.ports.Release(agentID)
	if err := m.ports.ReRegister(agentID, base); err != nil {
		return nil, err
	}

	if state != "true" {
		if _, err := runCLI(ctx, m.cfg.Runtime, "start", id); err != nil {
			return nil, fmt.Errorf("sandbox adopt start: %w", err)
		}
	}

	info := &ContainerInfo{
		AgentID:     agentID,
		ContainerID: id,
		Status:      "running",
		Ports:       PortRange{HostStart: base, ContainerStart: m.cfg.ContainerPort, Count: m.cfg.PortsPerAgent},
	}
	m.mu.Lock()
	m.containers[agentID] = info
	m.mu.Unlock()
	return info, nil
}

// Reclaim inspects all managed containers at startup. Running ones are
// re-adopted into the registry: their port allocation is re-registered but
// the port mappings are not recomputed, since they are already baked into
// the running container. Non-running ones are removed outright.
func (m *Manager) Reclaim(ctx context.Context) error {
	out, err := runCLI(ctx, m.cfg.Runtime, "ps", "-a", "--filter", "label="+labelManaged+"=true", "--format", "{{.ID}}")
	if err != nil {
		return fmt.Errorf("sandbox reclaim list: %w", err)
	}

	ids := strings.Fields(out)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)

	for _, id := range ids {
		group.Go(func() error {
			return m.reclaimOne(gctx, id)
		})
	}
	return group.Wait()
}

func (m *Manager) reclaimOne(ctx context.Context, id string) error {
	format := fmt.Sprintf("{{.State.Running}}\t{{index .Config.Labels %q}}\t{{index .Config.Labels %q}}", labelAgent, labelPortBase)
	out, err := runCLI(ctx, m.cfg.Runtime, "inspect", "-f", format, id)
	if err != nil {
		return fmt.Errorf("sandbox reclaim inspect %s: %w", shortID(id), err)
	}

	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) != 3 {
		return fmt.Errorf("sandbox reclaim: unexpected inspect output %q", out)
	}
	running, agentID, portBase := fields[0] == "true", fields[1], fields[2]

	if !running {
		if _, err := runCLI(ctx, m.cfg.Runtime, "rm", "-f", id); err != nil {
			return fmt.Errorf("sandbox reclaim remove %s: %w", shortID(id), err)
		}
		slog.Info("sandbox removed stale container", "container_id", shortID(id), "agent_id", agentID)
		return nil
	}

	base, err := strconv.Atoi(portBase)
	if err != nil {
		return fmt.Errorf("sandbox reclaim: bad port-base label %q on %s", portBase, shortID(id))
	}
	if err := m.ports.ReRegister(agentID, base); err != nil {
		return err
	}

	m.mu.Lock()
	m.containers[agentID] = &ContainerInfo{
		AgentID:     agentID,
		ContainerID: id,
		Status:      "running",
		Ports:       PortRange{HostStart: base, ContainerStart: m.cfg.ContainerPort, Count: m.cfg.PortsPerAgent},
	}
	m.mu.Unlock()

	slog.Info("sandbox re-adopted container", "container_id", shortID(id), "agent_id", agentID)
	return nil
}

// Stop stops the agent's container and releases its port block. The record
// is kept so a later start can reuse the container's named volumes.
func (m *Manager) Stop(ctx context.Context, agentID string) error {
	m.mu.Lock()
	info, ok := m.containers[agentID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no sandbox for agent %s", agentID)
	}

	if _, err := runCLI(ctx, m.cfg.Runtime, "stop", "-t", strconv.Itoa(m.cfg.StopTimeoutSec), info.ContainerID); err != nil {
		return fmt.Errorf("sandbox stop: %w", err)
	}

	m.ports.Release(agentID)
	m.mu.Lock()
	info.Status = "stopped"
	m.mu.Unlock()
	return nil
}

// Remove force-removes the agent's container and forgets it.
func (m *Manager) Remove(ctx context.Context, agentID string) error {
	m.mu.Lock()
	info, ok := m.containers[agentID]
	m.mu.Unlock()

	if !ok {
		// Already removed or never created.
		return nil
	}

	if _, err := runCLI(ctx, m.cfg.Runtime, "rm", "-f", info.ContainerID); err != nil {
		return fmt.Errorf("sandbox remove: %w", err)
	}

	m.ports.Release(agentID)
	m.mu.Lock()
	delete(m.containers, agentID)
	m.mu.Unlock()
	return nil
}

// Exec runs a command inside the agent's container and returns its output.
func (m *Manager) Exec(ctx context.Context, agentID string, command []string) (string, error) {
	m.mu.Lock()
	info, ok := m.containers[agentID]
	m.mu.Unlock()

	if !ok || info.Status != "running" {
		return "", fmt.Errorf("no running sandbox for agent %s", agentID)
	}

	args := append([]string{"exec", info.ContainerID}, command...)
	return runCLI(ctx, m.cfg.Runtime, args...)
}

// Get returns the in-memory record for the agent's container.
func (m *Manager) Get(agentID string) (*ContainerInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.containers[agentID]
	return info, ok
}

// ContainerFor implements session.ContainerProvider: the id of the agent's
// running container, creating and starting it on first use.
func (m *Manager) ContainerFor(ctx context.Context, agentID string) (string, error) {
	profile, err := m.profiles(agentID)
	if err != nil {
		return "", err
	}
	info, err := m.CreateAndStart(ctx, profile)
	if err != nil {
		return "", err
	}
	return info.ContainerID, nil
}

// StopContainer implements session.ContainerProvider.
func (m *Manager) StopContainer(ctx context.Context, agentID string) error {
	return m.Stop(ctx, agentID)
}

func containerName(agentID string) string {
	return "agentforge-" + agentID
}

// shortID returns the first 12 characters of an id (or the full string if shorter).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
