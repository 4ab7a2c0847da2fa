package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Outbound event types pushed to connected shells.
const (
	EventTaskCompleted = "task:completed"
	EventSessionOutput = "session:output"
	EventSessionExited = "session:exited"
)

// Inbound message types from shells.
const (
	TypeSessionInput  = "session:input"
	TypeSessionResize = "session:resize"
	TypeSessionKill   = "session:kill"
)

// SessionInput carries terminal keystrokes for a live session.
type SessionInput struct {
	AgentID string `json:"agent_id"`
	Data    string `json:"data"`
}

// SessionResize carries new terminal dimensions.
type SessionResize struct {
	AgentID string `json:"agent_id"`
	Cols    uint16 `json:"cols"`
	Rows    uint16 `json:"rows"`
}

// SessionKill asks the core to terminate a session.
type SessionKill struct {
	AgentID string `json:"agent_id"`
}

// BroadcastEvent implements the broadcast port: it wraps a typed payload in
// the message envelope and fans it out to every connected shell.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("websocket event marshal failed", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}
