package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/AgentForge/internal/adapter/otel"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/profilestore"
	"github.com/Strob0t/AgentForge/internal/port/runtime"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

// Runner executes assigned tasks: tasks for real agents run as one-shot
// subprocess invocations through the agent's runtime adapter; tasks for the
// built-in system agent route into the team executor queue instead.
type Runner struct {
	tasks    taskstore.Store
	profiles profilestore.Store
	executor *Executor
	bus      eventbus.Bus
	adapters func(name string) (runtime.Adapter, error)

	mu      sync.Mutex
	running map[string]int                // agent id → running-task count
	cancels map[string]context.CancelFunc // task id → abort
	wg      sync.WaitGroup
}

// NewRunner creates a task runner. adapters resolves a runtime adapter by
// name; pass runtime.New backed by the adapter registry.
func NewRunner(tasks taskstore.Store, profiles profilestore.Store, executor *Executor, bus eventbus.Bus, adapters func(name string) (runtime.Adapter, error)) *Runner {
	return &Runner{
		tasks:    tasks,
		profiles: profiles,
		executor: executor,
		bus:      bus,
		adapters: adapters,
		running:  make(map[string]int),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start subscribes the runner to assignment events.
func (r *Runner) Start(ctx context.Context) (func(), error) {
	return r.bus.Subscribe(ctx, eventbus.SubjectTaskAssigned, r.onAssigned)
}

// RunningCount reports how many tasks an agent is currently executing.
// Implements the assigner's load input.
func (r *Runner) RunningCount(agentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[agentID]
}

// Cancel aborts a running task's subprocess. The completion path then
// records the task as cancelled.
func (r *Runner) Cancel(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[taskID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every in-flight task execution has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) onAssigned(ctx context.Context, _ string, data []byte) error {
	var payload eventbus.TaskAssignedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("runner: bad assignment payload: %w", err)
	}

	t, err := r.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("runner: load task %s: %w", payload.TaskID, err)
	}
	if t.Status != task.StatusAssigned {
		slog.Warn("runner: task not in assigned state, skipping", "task_id", t.ID, "status", t.Status)
		return nil
	}
	if t.IsResultReply() {
		// Delegation completion replies carry information, not work.
		t.Status = task.StatusCompleted
		now := time.Now().UTC()
		t.CompletedAt = &now
		return r.tasks.Update(ctx, t)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	r.running[t.AssignedTo]++
	r.cancels[t.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			r.running[t.AssignedTo]--
			delete(r.cancels, t.ID)
			r.mu.Unlock()
		}()
		r.execute(runCtx, t)
	}()
	return nil
}

func (r *Runner) execute(ctx context.Context, t *task.Task) {
	ctx, span := otel.StartTaskSpan(ctx, t.ID, t.AssignedTo)
	defer span.End()

	now := time.Now().UTC()
	t.Status = task.StatusRunning
	t.StartedAt = &now
	if err := r.tasks.Update(ctx, t); err != nil {
		slog.Error("runner: mark running failed", "task_id", t.ID, "error", err)
		return
	}
	r.publish(ctx, eventbus.SubjectTaskStarted, eventbus.TaskStartedPayload{TaskID: t.ID, AgentID: t.AssignedTo})

	started := time.Now()
	var result *runtime.Result
	if t.AssignedTo == agent.SystemAgentID {
		result = r.executeSystem(ctx, t)
	} else {
		result = r.executeAgent(ctx, t)
	}
	durationMs := time.Since(started).Milliseconds()

	r.complete(ctx, t, result, durationMs)
}

// executeSystem routes a system task through the serialized team executor.
func (r *Runner) executeSystem(ctx context.Context, t *task.Task) *runtime.Result {
	operation := "summarization"
	if len(t.Tags) > 0 {
		operation = t.Tags[0]
	}

	resp, err := r.executor.Submit(ctx, operation, t.Description)
	if err != nil {
		return &runtime.Result{Success: false, Error: err.Error()}
	}
	return &runtime.Result{
		Success: true,
		Text:    resp.Text,
		Usage:   runtime.Usage{InputTokens: resp.TokensIn, OutputTokens: resp.TokensOut},
	}
}

// executeAgent runs the task as a one-shot invocation of the agent's CLI tool.
func (r *Runner) executeAgent(ctx context.Context, t *task.Task) *runtime.Result {
	profile, err := r.profiles.Get(ctx, t.AssignedTo)
	if err != nil {
		return &runtime.Result{Success: false, Error: fmt.Sprintf("unknown agent %s", t.AssignedTo)}
	}

	adapter, err := r.adapters(string(profile.Runtime))
	if err != nil {
		return &runtime.Result{Success: false, Error: err.Error()}
	}

	input := adapter.FormatInput(t.Description, runtime.InputContext{
		TaskID:    t.ID,
		SenderID:  t.CreatedBy,
		Delegated: t.IsDelegation(),
	})

	result, err := adapter.Execute(ctx, profile, input, runtime.ExecuteOptions{
		OnProgress: func(p runtime.Progress) {
			r.publish(ctx, eventbus.SubjectTaskProgress, eventbus.TaskProgressPayload{
				TaskID:  t.ID,
				AgentID: t.AssignedTo,
				Kind:    string(p.Kind),
				Summary: p.Summary,
			})
		},
	})
	if err != nil {
		// Infrastructure failure (spawn): surfaced, never retried.
		return &runtime.Result{Success: false, Error: err.Error()}
	}
	return result
}

func (r *Runner) complete(ctx context.Context, t *task.Task, result *runtime.Result, durationMs int64) {
	now := time.Now().UTC()
	if ctx.Err() != nil && !result.Success {
		t.Status = task.StatusCancelled
	} else if result.Success {
		t.Status = task.StatusCompleted
	} else {
		t.Status = task.StatusFailed
	}
	t.CompletedAt = &now
	t.Result = &task.Result{
		Output:     result.Text,
		Error:      result.Error,
		SessionID:  result.SessionID,
		TokensIn:   result.Usage.InputTokens,
		TokensOut:  result.Usage.OutputTokens,
		DurationMs: durationMs,
	}
	if err := r.tasks.Update(ctx, t); err != nil {
		slog.Error("runner: record completion failed", "task_id", t.ID, "error", err)
	}

	slog.Info("task finished",
		"task_id", t.ID,
		"agent_id", t.AssignedTo,
		"status", t.Status,
		"duration_ms", durationMs)

	r.publish(ctx, eventbus.SubjectTaskCompleted, eventbus.TaskCompletedPayload{
		TaskID:     t.ID,
		AgentID:    t.AssignedTo,
		Success:    result.Success,
		Output:     result.Text,
		Error:      result.Error,
		TokensIn:   result.Usage.InputTokens,
		TokensOut:  result.Usage.OutputTokens,
		DurationMs: durationMs,
	})
}

func (r *Runner) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := r.bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
