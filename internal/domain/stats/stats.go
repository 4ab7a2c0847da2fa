// Package stats defines per-agent performance counters.
package stats

import "time"

// AgentStats accumulates execution outcomes for one agent.
type AgentStats struct {
	AgentID           string    `json:"agent_id"`
	TasksCompleted    int       `json:"tasks_completed"`
	TasksFailed       int       `json:"tasks_failed"`
	TokensIn          int64     `json:"tokens_in"`
	TokensOut         int64     `json:"tokens_out"`
	AverageResponseMs float64   `json:"average_response_ms"`
	CurrentStreak     int       `json:"current_streak"`
	BestStreak        int       `json:"best_streak"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Total returns the number of recorded executions.
func (s *AgentStats) Total() int { return s.TasksCompleted + s.TasksFailed }

// SuccessRate returns the fraction of completed executions, or 0 with ok=false
// when no executions have been recorded yet.
func (s *AgentStats) SuccessRate() (rate float64, ok bool) {
	total := s.Total()
	if total == 0 {
		return 0, false
	}
	return float64(s.TasksCompleted) / float64(total), true
}

// RecordExecution folds one execution into the counters. The response-time
// average is a running mean over all recorded executions.
func (s *AgentStats) RecordExecution(success bool, durationMs int64, now time.Time) {
	prior := float64(s.Total())
	if success {
		s.TasksCompleted++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.TasksFailed++
		s.CurrentStreak = 0
	}
	s.AverageResponseMs = (s.AverageResponseMs*prior + float64(durationMs)) / (prior + 1)
	s.UpdatedAt = now
}

// AddTokens accumulates token usage.
func (s *AgentStats) AddTokens(in, out int64) {
	s.TokensIn += in
	s.TokensOut += out
}
