package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all control API routes on the given chi router.
// wsHandler serves the live feed websocket; nil disables the endpoint.
func MountRoutes(r chi.Router, h *Handlers, wsHandler http.HandlerFunc) {
	r.Get("/health", h.Health)

	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
		})

		// Tasks
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", handleGet(h.Tasks.Get, "task not found"))
		r.Delete("/tasks/{id}", handleDelete(h.Tasks.Delete, "task not found"))
		r.Post("/tasks/{id}/cancel", h.CancelTask)

		// Schedules
		r.Post("/schedules", h.CreateSchedule)
		r.Get("/schedules", handleList(h.Schedules.List))
		r.Get("/schedules/{id}", handleGet(h.Schedules.Get, "schedule not found"))
		r.Put("/schedules/{id}", h.UpdateSchedule)
		r.Delete("/schedules/{id}", handleDelete(h.Schedules.Delete, "schedule not found"))

		// Agents
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents", handleList(h.Profiles.List))
		r.Get("/agents/{id}", handleGet(h.Profiles.Get, "agent not found"))
		r.Delete("/agents/{id}", handleDelete(h.Profiles.Delete, "agent not found"))
		r.Get("/agents/{id}/stats", h.GetAgentStats)
		r.Get("/agents/{id}/relationships", h.GetAgentRelationships)

		// Sessions
		r.Post("/sessions/{id}/spawn", h.SpawnSession)
		r.Post("/sessions/{id}/input", h.WriteSession)
		r.Post("/sessions/{id}/resize", h.ResizeSession)
		r.Delete("/sessions/{id}", h.KillSession)
		r.Get("/sessions/{id}/scrollback", h.GetScrollback)

		// Channels
		r.Post("/channels", h.CreateChannel)
		r.Get("/channels", h.ListChannels)
		r.Get("/channels/{name}/messages", h.GetMessages)
		r.Post("/channels/{name}/messages", h.SendMessage)
	})
}
