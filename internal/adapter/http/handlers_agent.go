package http

import (
	"fmt"
	"net/http"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/relationship"
)

// CreateAgent handles POST /api/v1/agents
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.Profile](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ID, "id") {
		return
	}
	if !agent.ValidRuntime(string(req.Runtime)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown runtime %q", req.Runtime))
		return
	}
	if req.ID == agent.SystemAgentID {
		writeError(w, http.StatusBadRequest, "agent id is reserved")
		return
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	if err := h.Profiles.Create(r.Context(), &req); err != nil {
		writeDomainError(w, err, "agent creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, &req)
}

// GetAgentStats handles GET /api/v1/agents/{id}/stats
func (h *Handlers) GetAgentStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent stats not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetAgentRelationships handles GET /api/v1/agents/{id}/relationships
func (h *Handlers) GetAgentRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.Relationships.GetAll(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if rels == nil {
		rels = []relationship.Relationship{}
	}
	writeJSON(w, http.StatusOK, rels)
}
