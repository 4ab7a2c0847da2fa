// Package profilestore defines the agent-profile persistence port.
package profilestore

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// Store is the port interface for agent profiles.
type Store interface {
	Create(ctx context.Context, p *agent.Profile) error
	Get(ctx context.Context, id string) (*agent.Profile, error)
	Update(ctx context.Context, p *agent.Profile) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]agent.Profile, error)
}
