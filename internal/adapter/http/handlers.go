// Package http provides the chi-based control API for the coordination core.
package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/AgentForge/internal/port/commhub"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
	"github.com/Strob0t/AgentForge/internal/port/profilestore"
	"github.com/Strob0t/AgentForge/internal/port/relationshipstore"
	"github.com/Strob0t/AgentForge/internal/port/schedulestore"
	"github.com/Strob0t/AgentForge/internal/port/statsstore"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

// SessionManager is the slice of the session service the API needs.
type SessionManager interface {
	Spawn(ctx context.Context, agentID string, cols, rows uint16) lifecycle.SpawnResult
	Write(agentID string, data []byte) error
	Resize(agentID string, cols, rows uint16) error
	Kill(ctx context.Context, agentID string) error
	Scrollback(agentID string) []byte
	IsRunning(agentID string) bool
}

// TaskCanceler aborts an in-flight task execution.
type TaskCanceler interface {
	Cancel(taskID string) bool
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tasks         taskstore.Store
	Schedules     schedulestore.Store
	Profiles      profilestore.Store
	Stats         statsstore.Store
	Relationships relationshipstore.Store
	Hub           commhub.Hub
	Sessions      SessionManager
	Canceler      TaskCanceler
	Bus           eventbus.Bus
	Version       string
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}
