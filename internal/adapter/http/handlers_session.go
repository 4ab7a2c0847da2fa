package http

import (
	"net/http"
)

type spawnSessionRequest struct {
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
}

// SpawnSession handles POST /api/v1/sessions/{id}/spawn
func (h *Handlers) SpawnSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[spawnSessionRequest](w, r)
	if !ok {
		return
	}
	result := h.Sessions.Spawn(r.Context(), urlParam(r, "id"), req.Cols, req.Rows)
	if !result.Success {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type sessionInputRequest struct {
	Data string `json:"data"`
}

// WriteSession handles POST /api/v1/sessions/{id}/input
func (h *Handlers) WriteSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sessionInputRequest](w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Write(urlParam(r, "id"), []byte(req.Data)); err != nil {
		writeDomainError(w, err, "no live session for agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resizeSessionRequest struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// ResizeSession handles POST /api/v1/sessions/{id}/resize
func (h *Handlers) ResizeSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[resizeSessionRequest](w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Resize(urlParam(r, "id"), req.Cols, req.Rows); err != nil {
		writeDomainError(w, err, "no live session for agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// KillSession handles DELETE /api/v1/sessions/{id}
func (h *Handlers) KillSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Kill(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "no live session for agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetScrollback handles GET /api/v1/sessions/{id}/scrollback
func (h *Handlers) GetScrollback(w http.ResponseWriter, r *http.Request) {
	agentID := urlParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":   agentID,
		"running":    h.Sessions.IsRunning(agentID),
		"scrollback": string(h.Sessions.Scrollback(agentID)),
	})
}
