package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/AgentForge/internal/port/commhub"
)

const defaultMessageLimit = 100

type createChannelRequest struct {
	Name string `json:"name"`
}

// CreateChannel handles POST /api/v1/channels
func (h *Handlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createChannelRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") {
		return
	}
	if err := h.Hub.CreateChannel(r.Context(), req.Name); err != nil {
		writeDomainError(w, err, "channel creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// ListChannels handles GET /api/v1/channels
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.Hub.ListChannels(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if channels == nil {
		channels = []string{}
	}
	writeJSON(w, http.StatusOK, channels)
}

// GetMessages handles GET /api/v1/channels/{name}/messages?limit=N
func (h *Handlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := h.Hub.GetMessages(r.Context(), urlParam(r, "name"), limit)
	if err != nil {
		writeDomainError(w, err, "channel not found")
		return
	}
	if messages == nil {
		messages = []commhub.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// SendMessage handles POST /api/v1/channels/{name}/messages
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sendMessageRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Sender, "sender") {
		return
	}
	if !requireField(w, req.Body, "body") {
		return
	}

	msg, err := h.Hub.SendMessage(r.Context(), urlParam(r, "name"), req.Sender, req.Body)
	if err != nil {
		writeDomainError(w, err, "channel not found")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
