package jsonstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/stats"
)

// StatsStore is the file-backed per-agent counters store.
type StatsStore struct {
	col *collection[stats.AgentStats]
	now func() time.Time
}

func newStatsStore(path string, quiet time.Duration, log *slog.Logger) (*StatsStore, error) {
	col, err := openCollection(path, quiet, func(s *stats.AgentStats) string { return s.AgentID }, log)
	if err != nil {
		return nil, err
	}
	return &StatsStore{col: col, now: time.Now}, nil
}

// Get returns the agent's stats, or zero-valued stats when none exist yet.
func (s *StatsStore) Get(_ context.Context, agentID string) (*stats.AgentStats, error) {
	st, err := s.col.get(agentID)
	if errors.Is(err, domain.ErrNotFound) {
		return &stats.AgentStats{AgentID: agentID}, nil
	}
	return st, err
}

func (s *StatsStore) Update(_ context.Context, st *stats.AgentStats) error {
	s.col.put(st)
	return nil
}

func (s *StatsStore) IncrementTokens(_ context.Context, agentID string, in, out int64) error {
	_, err := s.col.mutate(agentID,
		func() *stats.AgentStats { return &stats.AgentStats{AgentID: agentID} },
		func(st *stats.AgentStats) error {
			st.AddTokens(in, out)
			st.UpdatedAt = s.now().UTC()
			return nil
		})
	return err
}

func (s *StatsStore) RecordExecution(_ context.Context, agentID string, success bool, durationMs int64) error {
	_, err := s.col.mutate(agentID,
		func() *stats.AgentStats { return &stats.AgentStats{AgentID: agentID} },
		func(st *stats.AgentStats) error {
			st.RecordExecution(success, durationMs, s.now().UTC())
			return nil
		})
	return err
}
