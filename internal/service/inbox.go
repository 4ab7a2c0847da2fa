package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/debounce"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

// DelegationRequest is one line of an agent's delegation inbox file.
type DelegationRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	From        string   `json:"from"`
	Tags        []string `json:"tags,omitempty"`
}

// Inbox watches per-agent delegation files and turns appended lines into
// tasks assigned to the target agent. After a batch is processed the file
// is truncated; the truncation's own filesystem event is ignored.
type Inbox struct {
	cfg   config.Inbox
	tasks taskstore.Store
	bus   eventbus.Bus

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	timers   map[string]*debounce.Timer // inbox path → coalescing timer
	truncing map[string]bool            // paths whose next event is our own truncation
}

// NewInbox creates the delegation inbox service.
func NewInbox(cfg config.Inbox, tasks taskstore.Store, bus eventbus.Bus) (*Inbox, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("inbox dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("inbox watcher: %w", err)
	}
	if err := watcher.Add(cfg.Dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	return &Inbox{
		cfg:      cfg,
		tasks:    tasks,
		bus:      bus,
		watcher:  watcher,
		timers:   make(map[string]*debounce.Timer),
		truncing: make(map[string]bool),
	}, nil
}

// Path returns the inbox file for an agent.
func (in *Inbox) Path(agentID string) string {
	return filepath.Join(in.cfg.Dir, agentID+".jsonl")
}

// Append writes one delegation request to an agent's inbox file. The write
// is picked up by the watcher like any external append.
func (in *Inbox) Append(agentID string, req DelegationRequest) error {
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(in.Path(agentID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open inbox for %s: %w", agentID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to inbox for %s: %w", agentID, err)
	}
	return nil
}

// Run pumps watcher events until ctx is cancelled. Bursts of writes to one
// file coalesce into a single processing pass after the debounce window.
func (in *Inbox) Run(ctx context.Context) error {
	defer in.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			in.flushTimers()
			return ctx.Err()
		case ev, ok := <-in.watcher.Events:
			if !ok {
				return nil
			}
			in.onEvent(ctx, ev)
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

func (in *Inbox) onEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}

	in.mu.Lock()
	if in.truncing[ev.Name] {
		// Our own truncation after processing; swallow exactly one event.
		delete(in.truncing, ev.Name)
		in.mu.Unlock()
		return
	}
	timer, ok := in.timers[ev.Name]
	if !ok {
		path := ev.Name
		timer = debounce.New(in.cfg.Debounce, func() error {
			in.process(ctx, path)
			return nil
		}, nil)
		in.timers[ev.Name] = timer
	}
	in.mu.Unlock()

	timer.Schedule()
}

// process drains one inbox file: each well-formed line becomes a task
// assigned to the file's agent; malformed lines are skipped individually.
func (in *Inbox) process(ctx context.Context, path string) {
	agentID := strings.TrimSuffix(filepath.Base(path), ".jsonl")

	f, err := os.Open(path)
	if err != nil {
		slog.Error("inbox open failed", "path", path, "error", err)
		return
	}

	var requests []DelegationRequest
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var req DelegationRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			slog.Warn("inbox line skipped", "agent_id", agentID, "error", err)
			continue
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("inbox read failed", "path", path, "error", err)
	}
	f.Close()

	for _, req := range requests {
		if err := in.createTask(ctx, agentID, req); err != nil {
			slog.Error("inbox task creation failed", "agent_id", agentID, "error", err)
		}
	}

	in.mu.Lock()
	in.truncing[path] = true
	in.mu.Unlock()
	if err := os.Truncate(path, 0); err != nil {
		slog.Error("inbox truncate failed", "path", path, "error", err)
		in.mu.Lock()
		delete(in.truncing, path)
		in.mu.Unlock()
	}
}

func (in *Inbox) createTask(ctx context.Context, agentID string, req DelegationRequest) error {
	tags := append([]string{task.TagDelegation}, req.Tags...)

	t, err := in.tasks.Create(ctx, task.CreateRequest{
		Title:       task.DeriveTitle(req.Title, req.Description),
		Description: req.Description,
		Priority:    task.Priority(req.Priority),
		CreatedBy:   req.From,
		AssignedTo:  agentID,
		Tags:        tags,
	})
	if err != nil {
		return err
	}

	// Delegated tasks skip the assignment pass: the target is explicit.
	t.Status = task.StatusAssigned
	if err := in.tasks.Update(ctx, t); err != nil {
		return err
	}

	slog.Info("delegation received", "agent_id", agentID, "task_id", t.ID, "from", req.From)

	in.publish(ctx, eventbus.SubjectTaskCreated, eventbus.TaskCreatedPayload{
		TaskID:     t.ID,
		Title:      t.Title,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
	})
	in.publish(ctx, eventbus.SubjectTaskAssigned, eventbus.TaskAssignedPayload{
		TaskID:  t.ID,
		AgentID: agentID,
	})
	return nil
}

func (in *Inbox) flushTimers() {
	in.mu.Lock()
	timers := make([]*debounce.Timer, 0, len(in.timers))
	for _, t := range in.timers {
		timers = append(timers, t)
	}
	in.mu.Unlock()

	for _, t := range timers {
		t.FlushNow()
	}
}

func (in *Inbox) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := in.bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
