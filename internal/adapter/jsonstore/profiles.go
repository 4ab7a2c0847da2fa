package jsonstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
)

// ProfileStore is the file-backed agent-profile store.
type ProfileStore struct {
	col *collection[agent.Profile]
	now func() time.Time
}

func newProfileStore(path string, quiet time.Duration, log *slog.Logger) (*ProfileStore, error) {
	col, err := openCollection(path, quiet, func(p *agent.Profile) string { return p.ID }, log)
	if err != nil {
		return nil, err
	}
	return &ProfileStore{col: col, now: time.Now}, nil
}

func (s *ProfileStore) Create(_ context.Context, p *agent.Profile) error {
	if !agent.ValidRuntime(string(p.Runtime)) {
		return fmt.Errorf("unknown runtime %q", p.Runtime)
	}
	if _, err := s.col.get(p.ID); err == nil {
		return fmt.Errorf("agent %s: %w", p.ID, domain.ErrConflict)
	}
	p.CreatedAt = s.now().UTC()
	s.col.put(p)
	return nil
}

func (s *ProfileStore) Get(_ context.Context, id string) (*agent.Profile, error) {
	return s.col.get(id)
}

func (s *ProfileStore) Update(_ context.Context, p *agent.Profile) error {
	if _, err := s.col.get(p.ID); err != nil {
		return err
	}
	s.col.put(p)
	return nil
}

func (s *ProfileStore) Delete(_ context.Context, id string) error {
	return s.col.delete(id)
}

func (s *ProfileStore) List(_ context.Context) ([]agent.Profile, error) {
	return s.col.all(), nil
}
