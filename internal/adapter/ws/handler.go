// Package ws implements the WebSocket adapter connecting graphical shells
// to the coordination core: task and session events fan out to every
// connected client, and terminal input flows back to live sessions.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all WebSocket traffic, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SessionController is the slice of the session service a connected shell
// may drive.
type SessionController interface {
	Write(agentID string, data []byte) error
	Resize(agentID string, cols, rows uint16) error
	Kill(ctx context.Context, agentID string) error
}

// conn wraps a single WebSocket connection.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub manages active shell connections and broadcasts events to them.
type Hub struct {
	sessions SessionController

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a WebSocket hub. sessions may be nil for broadcast-only use.
func NewHub(sessions SessionController) *Hub {
	return &Hub{
		sessions: sessions,
		conns:    make(map[*conn]struct{}),
	}
}

// SetController wires the session service after construction. The hub and
// the session service hold references to each other, so one side attaches
// late. Must be called before the hub starts serving connections.
func (h *Hub) SetController(sessions SessionController) {
	h.sessions = sessions
}

// HandleWS upgrades the request and pumps inbound shell commands until the
// client disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("shell connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			h.dispatch(ctx, data)
		}
	}()
}

// dispatch routes one inbound shell command. Unknown or malformed messages
// are logged and skipped, never fatal to the connection.
func (h *Hub) dispatch(ctx context.Context, data []byte) {
	if h.sessions == nil {
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("websocket message skipped", "error", err)
		return
	}

	switch msg.Type {
	case TypeSessionInput:
		var in SessionInput
		if err := json.Unmarshal(msg.Payload, &in); err != nil {
			slog.Warn("bad session input", "error", err)
			return
		}
		if err := h.sessions.Write(in.AgentID, []byte(in.Data)); err != nil {
			slog.Warn("session write failed", "agent_id", in.AgentID, "error", err)
		}
	case TypeSessionResize:
		var rs SessionResize
		if err := json.Unmarshal(msg.Payload, &rs); err != nil {
			slog.Warn("bad session resize", "error", err)
			return
		}
		if err := h.sessions.Resize(rs.AgentID, rs.Cols, rs.Rows); err != nil {
			slog.Warn("session resize failed", "agent_id", rs.AgentID, "error", err)
		}
	case TypeSessionKill:
		var k SessionKill
		if err := json.Unmarshal(msg.Payload, &k); err != nil {
			slog.Warn("bad session kill", "error", err)
			return
		}
		if err := h.sessions.Kill(ctx, k.AgentID); err != nil {
			slog.Warn("session kill failed", "agent_id", k.AgentID, "error", err)
		}
	default:
		slog.Debug("unknown shell message", "type", msg.Type)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("shell disconnected")
	}
}
