// Package task defines the Task domain entity.
package task

import (
	"strings"
	"time"
)

// Status represents the current state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal
// status transition. Transitions only flow forward:
// pending → assigned → running → {completed, failed, cancelled}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAssigned || next == StatusCancelled
	case StatusAssigned:
		return next == StatusRunning || next == StatusCancelled
	case StatusRunning:
		return next.IsTerminal()
	}
	return false
}

// Priority orders tasks within an agent's backlog.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Task represents a unit of work routed to an agent.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Result holds the output of a finished task execution.
type Result struct {
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	TokensIn   int    `json:"tokens_in"`
	TokensOut  int    `json:"tokens_out"`
	DurationMs int64  `json:"duration_ms"`
}

// TagDelegation marks tasks created through another agent's inbox.
const TagDelegation = "delegation"

// TagResultReply marks completion replies written back into a sender's
// inbox, so they never trigger a further reply themselves.
const TagResultReply = "result-reply"

// IsDelegation reports whether the task arrived via a delegation inbox.
func (t *Task) IsDelegation() bool { return t.HasTag(TagDelegation) }

// IsResultReply reports whether the task is a delegation completion reply.
func (t *Task) IsResultReply() bool { return t.HasTag(TagResultReply) }

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, g := range t.Tags {
		if g == tag {
			return true
		}
	}
	return false
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
	CreatedBy   string   `json:"created_by"`
	AssignedTo  string   `json:"assigned_to,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// DeriveTitle returns title unless it is empty or a placeholder, in which
// case the first line of description is used, truncated to 80 characters.
func DeriveTitle(title, description string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed != "" && !isPlaceholder(trimmed) {
		return trimmed
	}
	first := strings.TrimSpace(description)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	if len(first) > 80 {
		first = first[:80]
	}
	if first == "" {
		return "Untitled task"
	}
	return first
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "untitled", "untitled task", "new task", "task", "todo", "-":
		return true
	}
	return false
}

// Filter selects tasks in list queries. Zero-valued fields match everything.
type Filter struct {
	Status     Status `json:"status,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// Matches reports whether t satisfies every set field of the filter.
func (f Filter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	return true
}
