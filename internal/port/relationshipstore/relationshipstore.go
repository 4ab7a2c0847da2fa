// Package relationshipstore defines the trust-edge persistence port.
package relationshipstore

import (
	"context"

	"github.com/Strob0t/AgentForge/internal/domain/relationship"
)

// Store is the port interface for directed agent trust relationships.
type Store interface {
	// Get returns the relationship from source to target, or domain.ErrNotFound.
	Get(ctx context.Context, sourceID, targetID string) (*relationship.Relationship, error)

	// Set stores the relationship.
	Set(ctx context.Context, r *relationship.Relationship) error

	// GetAll returns every outgoing relationship for a source agent.
	GetAll(ctx context.Context, sourceID string) ([]relationship.Relationship, error)

	// UpdateTrust applies one delegation outcome to the (source, target)
	// edge, creating it at neutral trust first if it does not exist.
	// outcome is 1.0 for success, 0.0 for failure; weight scales the EMA
	// step and defaults to 1.0 when <= 0.
	UpdateTrust(ctx context.Context, sourceID, targetID string, outcome, weight float64) (*relationship.Relationship, error)
}
