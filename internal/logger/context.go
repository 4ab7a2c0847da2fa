package logger

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

const (
	agentIDKey   contextKey = "agent_id"
	requestIDKey contextKey = "request_id"
)

// WithAgentID returns a new context carrying the agent id for log correlation.
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentIDKey, id)
}

// AgentID extracts the agent id from the context.
// Returns an empty string if none is set.
func AgentID(ctx context.Context) string {
	id, _ := ctx.Value(agentIDKey).(string)
	return id
}

// WithRequestID returns a new context carrying the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request id from the context.
// Returns an empty string if none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
