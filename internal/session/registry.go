// Package session implements the process lifecycle managers: direct PTY
// sessions through the user's shell, and sandboxed sessions that exec into
// an agent's container. Both run the same terminal bridging.
package session

import (
	"sync"

	"github.com/Strob0t/AgentForge/internal/domain"
)

// Registry owns the live sessions keyed by agent id. Its lifecycle is tied
// to the manager that constructed it; there is no process-wide state. At
// most one live session may exist per agent id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// reserve claims the slot for agentID. It fails with domain.ErrSessionExists
// if a live session already holds it, leaving that session untouched.
func (r *Registry) reserve(agentID string, s *session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[agentID]; exists {
		return domain.ErrSessionExists
	}
	r.sessions[agentID] = s
	return nil
}

// get returns the live session for agentID, if any.
func (r *Registry) get(agentID string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[agentID]
	return s, ok
}

// remove drops the session for agentID if it is still the given one.
func (r *Registry) remove(agentID string, s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[agentID]; ok && current == s {
		delete(r.sessions, agentID)
	}
}

// all returns a snapshot of the live sessions.
func (r *Registry) all() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
