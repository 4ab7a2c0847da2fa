package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/broadcast"
	"github.com/Strob0t/AgentForge/internal/port/commhub"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/relationshipstore"
	"github.com/Strob0t/AgentForge/internal/port/statsstore"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

const summaryOutputMax = 500

// TeamEvents reacts to task lifecycle events: it assigns unowned tasks,
// folds completions into stats and trust, posts summaries to the shared
// feed channel, and writes delegation replies back into sender inboxes.
type TeamEvents struct {
	tasks         taskstore.Store
	stats         statsstore.Store
	relationships relationshipstore.Store
	hub           commhub.Hub
	assigner      *Assigner
	inbox         *Inbox
	bus           eventbus.Bus
	broadcaster   broadcast.Broadcaster
}

// NewTeamEvents creates the team event handler.
func NewTeamEvents(tasks taskstore.Store, st statsstore.Store, rel relationshipstore.Store, hub commhub.Hub, assigner *Assigner, inbox *Inbox, bus eventbus.Bus, bc broadcast.Broadcaster) *TeamEvents {
	return &TeamEvents{
		tasks:         tasks,
		stats:         st,
		relationships: rel,
		hub:           hub,
		assigner:      assigner,
		inbox:         inbox,
		bus:           bus,
		broadcaster:   bc,
	}
}

// Start subscribes the handler to the bus. The returned function cancels
// both subscriptions.
func (h *TeamEvents) Start(ctx context.Context) (func(), error) {
	stopCreated, err := h.bus.Subscribe(ctx, eventbus.SubjectTaskCreated, h.onTaskCreated)
	if err != nil {
		return nil, err
	}
	stopCompleted, err := h.bus.Subscribe(ctx, eventbus.SubjectTaskCompleted, h.onTaskCompleted)
	if err != nil {
		stopCreated()
		return nil, err
	}
	return func() {
		stopCreated()
		stopCompleted()
	}, nil
}

// onTaskCreated assigns unowned pending tasks. A task that arrives with an
// assignee (scheduler or delegation) is forwarded without another scoring
// pass. No eligible agent leaves the task pending for a later cycle.
func (h *TeamEvents) onTaskCreated(ctx context.Context, _ string, data []byte) error {
	var payload eventbus.TaskCreatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("bad task-created payload: %w", err)
	}

	t, err := h.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", payload.TaskID, err)
	}

	switch {
	case t.Status == task.StatusAssigned:
		// Pre-assigned by the scheduler or inbox; those paths publish
		// their own assignment event.
		return nil
	case t.Status != task.StatusPending:
		return nil
	}

	if t.AssignedTo == "" {
		agentID, score, ok := h.assigner.PickAssignee(ctx)
		if !ok {
			slog.Info("no eligible agent, task stays pending", "task_id", t.ID)
			return nil
		}
		t.AssignedTo = agentID
		t.Status = task.StatusAssigned
		if err := h.tasks.Update(ctx, t); err != nil {
			return fmt.Errorf("assign task %s: %w", t.ID, err)
		}
		slog.Info("task assigned", "task_id", t.ID, "agent_id", agentID, "score", score)
		h.publish(ctx, eventbus.SubjectTaskAssigned, eventbus.TaskAssignedPayload{
			TaskID:  t.ID,
			AgentID: agentID,
			Score:   score,
		})
		return nil
	}

	t.Status = task.StatusAssigned
	if err := h.tasks.Update(ctx, t); err != nil {
		return fmt.Errorf("assign task %s: %w", t.ID, err)
	}
	h.publish(ctx, eventbus.SubjectTaskAssigned, eventbus.TaskAssignedPayload{
		TaskID:  t.ID,
		AgentID: t.AssignedTo,
	})
	return nil
}

func (h *TeamEvents) onTaskCompleted(ctx context.Context, _ string, data []byte) error {
	var payload eventbus.TaskCompletedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("bad task-completed payload: %w", err)
	}

	t, err := h.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", payload.TaskID, err)
	}

	if err := h.stats.RecordExecution(ctx, payload.AgentID, payload.Success, payload.DurationMs); err != nil {
		slog.Error("stats update failed", "agent_id", payload.AgentID, "error", err)
	}
	if payload.TokensIn > 0 || payload.TokensOut > 0 {
		if err := h.stats.IncrementTokens(ctx, payload.AgentID, int64(payload.TokensIn), int64(payload.TokensOut)); err != nil {
			slog.Error("token accounting failed", "agent_id", payload.AgentID, "error", err)
		}
	}

	// Trust only moves on genuine delegation between two distinct agents.
	if t.CreatedBy != "" && t.CreatedBy != t.AssignedTo {
		outcome := 0.0
		if payload.Success {
			outcome = 1.0
		}
		if _, err := h.relationships.UpdateTrust(ctx, t.CreatedBy, t.AssignedTo, outcome, 1.0); err != nil {
			slog.Error("trust update failed", "source", t.CreatedBy, "target", t.AssignedTo, "error", err)
		}
	}
	h.assigner.InvalidateAgent(ctx, payload.AgentID)

	h.broadcastSummary(ctx, t, &payload)

	if h.shouldReply(t) {
		h.replyToSender(t, &payload)
	}
	return nil
}

// shouldReply limits completion replies to delegated tasks whose sender is
// a real agent, and never replies to a reply.
func (h *TeamEvents) shouldReply(t *task.Task) bool {
	return t.IsDelegation() &&
		!t.IsResultReply() &&
		t.CreatedBy != "" &&
		t.CreatedBy != agent.SystemAgentID &&
		t.CreatedBy != t.AssignedTo
}

func (h *TeamEvents) replyToSender(t *task.Task, payload *eventbus.TaskCompletedPayload) {
	body := payload.Output
	if !payload.Success {
		body = "Task failed: " + payload.Error
	}

	err := h.inbox.Append(t.CreatedBy, DelegationRequest{
		Title:       "Result: " + t.Title,
		Description: body,
		From:        t.AssignedTo,
		Tags:        []string{task.TagResultReply},
	})
	if err != nil {
		slog.Error("delegation reply failed", "task_id", t.ID, "to", t.CreatedBy, "error", err)
		return
	}
	slog.Info("delegation reply sent", "task_id", t.ID, "to", t.CreatedBy)
}

// broadcastSummary posts a markdown completion summary to the shared feed
// channel and pushes it to connected shells.
func (h *TeamEvents) broadcastSummary(ctx context.Context, t *task.Task, payload *eventbus.TaskCompletedPayload) {
	summary := buildSummary(t, payload)

	if _, err := h.hub.SendMessage(ctx, commhub.FeedChannel, payload.AgentID, summary); err != nil {
		slog.Error("feed post failed", "task_id", t.ID, "error", err)
	}
	h.broadcaster.BroadcastEvent(ctx, "task:completed", map[string]any{
		"task_id":  t.ID,
		"agent_id": payload.AgentID,
		"success":  payload.Success,
		"summary":  summary,
	})
}

func buildSummary(t *task.Task, payload *eventbus.TaskCompletedPayload) string {
	status := "completed"
	if !payload.Success {
		status = "failed"
	}
	elapsed := time.Duration(payload.DurationMs) * time.Millisecond

	summary := fmt.Sprintf("**%s** %s by `%s` in %s", t.Title, status, payload.AgentID, elapsed.Round(time.Second))
	body := payload.Output
	if !payload.Success {
		body = payload.Error
	}
	if body != "" {
		if len(body) > summaryOutputMax {
			body = body[:summaryOutputMax] + "…"
		}
		summary += "\n\n" + body
	}
	return summary
}

func (h *TeamEvents) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := h.bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
