package http

import (
	"net/http"
	"strings"

	"github.com/Strob0t/AgentForge/internal/domain/schedule"
	"github.com/Strob0t/AgentForge/internal/domain/task"
)

type createScheduleRequest struct {
	Name     string             `json:"name"`
	Pattern  schedule.Pattern   `json:"pattern"`
	Template task.CreateRequest `json:"template"`
	Enabled  *bool              `json:"enabled,omitempty"`
}

// CreateSchedule handles POST /api/v1/schedules
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createScheduleRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") {
		return
	}
	if !requireField(w, req.Template.Description, "template.description") {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sc := &schedule.Schedule{
		Name:     req.Name,
		Pattern:  req.Pattern,
		Template: req.Template,
		Source:   schedule.SourceUser,
		Enabled:  enabled,
	}
	if err := h.Schedules.Create(r.Context(), sc); err != nil {
		if strings.Contains(err.Error(), "invalid schedule") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err, "schedule creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// UpdateSchedule handles PUT /api/v1/schedules/{id}
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	existing, err := h.Schedules.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "schedule not found")
		return
	}

	req, ok := readJSON[createScheduleRequest](w, r)
	if !ok {
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Pattern.Kind != "" {
		existing.Pattern = req.Pattern
	}
	if req.Template.Description != "" {
		existing.Template = req.Template
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := h.Schedules.Update(r.Context(), existing); err != nil {
		if strings.Contains(err.Error(), "invalid schedule") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDomainError(w, err, "schedule not found")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}
