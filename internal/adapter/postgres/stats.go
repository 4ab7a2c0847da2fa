package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentForge/internal/domain/stats"
)

// StatsStore implements the stats store port on PostgreSQL.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a postgres-backed stats store.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// Get returns the agent's stats, or zero-valued stats when none exist yet.
func (s *StatsStore) Get(ctx context.Context, agentID string) (*stats.AgentStats, error) {
	var st stats.AgentStats
	err := s.pool.QueryRow(ctx, `
		SELECT agent_id, tasks_completed, tasks_failed, tokens_in, tokens_out,
			average_response_ms, current_streak, best_streak, updated_at
		FROM agent_stats WHERE agent_id = $1`, agentID,
	).Scan(
		&st.AgentID, &st.TasksCompleted, &st.TasksFailed, &st.TokensIn, &st.TokensOut,
		&st.AverageResponseMs, &st.CurrentStreak, &st.BestStreak, &st.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &stats.AgentStats{AgentID: agentID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}

// Update replaces the stored stats for an agent.
func (s *StatsStore) Update(ctx context.Context, st *stats.AgentStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_stats (agent_id, tasks_completed, tasks_failed, tokens_in, tokens_out,
			average_response_ms, current_streak, best_streak, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (agent_id) DO UPDATE SET
			tasks_completed = EXCLUDED.tasks_completed,
			tasks_failed = EXCLUDED.tasks_failed,
			tokens_in = EXCLUDED.tokens_in,
			tokens_out = EXCLUDED.tokens_out,
			average_response_ms = EXCLUDED.average_response_ms,
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			updated_at = now()`,
		st.AgentID, st.TasksCompleted, st.TasksFailed, st.TokensIn, st.TokensOut,
		st.AverageResponseMs, st.CurrentStreak, st.BestStreak,
	)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

// IncrementTokens adds token usage to an agent's counters.
func (s *StatsStore) IncrementTokens(ctx context.Context, agentID string, in, out int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_stats (agent_id, tokens_in, tokens_out)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_id) DO UPDATE SET
			tokens_in = agent_stats.tokens_in + EXCLUDED.tokens_in,
			tokens_out = agent_stats.tokens_out + EXCLUDED.tokens_out,
			updated_at = now()`,
		agentID, in, out,
	)
	if err != nil {
		return fmt.Errorf("increment tokens: %w", err)
	}
	return nil
}

// RecordExecution folds one execution outcome into an agent's counters.
// The read-modify-write runs through the domain type so the running-mean
// and streak rules live in one place.
func (s *StatsStore) RecordExecution(ctx context.Context, agentID string, success bool, durationMs int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var st stats.AgentStats
	err = tx.QueryRow(ctx, `
		SELECT agent_id, tasks_completed, tasks_failed, tokens_in, tokens_out,
			average_response_ms, current_streak, best_streak, updated_at
		FROM agent_stats WHERE agent_id = $1 FOR UPDATE`, agentID,
	).Scan(
		&st.AgentID, &st.TasksCompleted, &st.TasksFailed, &st.TokensIn, &st.TokensOut,
		&st.AverageResponseMs, &st.CurrentStreak, &st.BestStreak, &st.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		st = stats.AgentStats{AgentID: agentID}
	} else if err != nil {
		return fmt.Errorf("lock stats: %w", err)
	}

	st.RecordExecution(success, durationMs, time.Now().UTC())

	_, err = tx.Exec(ctx, `
		INSERT INTO agent_stats (agent_id, tasks_completed, tasks_failed, tokens_in, tokens_out,
			average_response_ms, current_streak, best_streak, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (agent_id) DO UPDATE SET
			tasks_completed = EXCLUDED.tasks_completed,
			tasks_failed = EXCLUDED.tasks_failed,
			average_response_ms = EXCLUDED.average_response_ms,
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			updated_at = now()`,
		st.AgentID, st.TasksCompleted, st.TasksFailed, st.TokensIn, st.TokensOut,
		st.AverageResponseMs, st.CurrentStreak, st.BestStreak,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return tx.Commit(ctx)
}
