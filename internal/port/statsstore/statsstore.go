// Package statsstore defines the per-agent stats persistence port.
package statsstore

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/stats"
)

// Store is the port interface for agent performance counters.
type Store interface {
	// Get returns the stats for an agent, or zero-valued stats if none
	// have been recorded yet.
	Get(ctx context.Context, agentID string) (*stats.AgentStats, error)

	// Update replaces the stored stats for an agent.
	Update(ctx context.Context, s *stats.AgentStats) error

	// IncrementTokens adds token usage to an agent's counters.
	IncrementTokens(ctx context.Context, agentID string, in, out int64) error

	// RecordExecution folds one execution outcome into an agent's counters.
	RecordExecution(ctx context.Context, agentID string, success bool, durationMs int64) error
}
