package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
)

// CreateTask handles POST /api/v1/tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Description, "description") {
		return
	}
	if !requireField(w, req.CreatedBy, "created_by") {
		return
	}

	t, err := h.Tasks.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "task creation failed")
		return
	}

	h.publish(r.Context(), eventbus.SubjectTaskCreated, eventbus.TaskCreatedPayload{
		TaskID:     t.ID,
		Title:      t.Title,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
	})

	writeJSON(w, http.StatusCreated, t)
}

// ListTasks handles GET /api/v1/tasks with optional filter query params.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.Filter{
		Status:     task.Status(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
		CreatedBy:  q.Get("created_by"),
		Tag:        q.Get("tag"),
	}

	tasks, err := h.Tasks.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if t.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "task already finished")
		return
	}

	// A running task is aborted through its execution context; the runner
	// records the cancelled status when the process winds down.
	if t.Status == task.StatusRunning && h.Canceler != nil && h.Canceler.Cancel(t.ID) {
		writeJSON(w, http.StatusAccepted, t)
		return
	}

	t.Status = task.StatusCancelled
	if err := h.Tasks.Update(r.Context(), t); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// publish marshals a payload and emits it on the bus, logging on failure.
func (h *Handlers) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := h.Bus.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}
