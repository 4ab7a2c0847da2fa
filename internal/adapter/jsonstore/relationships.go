package jsonstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain/relationship"
)

// RelationshipStore is the file-backed trust-edge store, keyed by the
// (source, target) pair.
type RelationshipStore struct {
	col *collection[relationship.Relationship]
	now func() time.Time
}

func edgeKey(sourceID, targetID string) string {
	return sourceID + "\x00" + targetID
}

func newRelationshipStore(path string, quiet time.Duration, log *slog.Logger) (*RelationshipStore, error) {
	col, err := openCollection(path, quiet, func(r *relationship.Relationship) string {
		return edgeKey(r.SourceAgentID, r.TargetAgentID)
	}, log)
	if err != nil {
		return nil, err
	}
	return &RelationshipStore{col: col, now: time.Now}, nil
}

func (s *RelationshipStore) Get(_ context.Context, sourceID, targetID string) (*relationship.Relationship, error) {
	return s.col.get(edgeKey(sourceID, targetID))
}

func (s *RelationshipStore) Set(_ context.Context, r *relationship.Relationship) error {
	s.col.put(r)
	return nil
}

func (s *RelationshipStore) GetAll(_ context.Context, sourceID string) ([]relationship.Relationship, error) {
	all := s.col.all()
	out := make([]relationship.Relationship, 0, len(all))
	for _, r := range all {
		if r.SourceAgentID == sourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

// UpdateTrust applies one delegation outcome to the edge, creating it at
// neutral trust first when absent.
func (s *RelationshipStore) UpdateTrust(_ context.Context, sourceID, targetID string, outcome, weight float64) (*relationship.Relationship, error) {
	now := s.now().UTC()
	return s.col.mutate(edgeKey(sourceID, targetID),
		func() *relationship.Relationship { return relationship.New(sourceID, targetID) },
		func(r *relationship.Relationship) error {
			r.ApplyOutcome(outcome, weight, now)
			return nil
		})
}
