// Package relationship defines the directed trust edge between two agents
// and its exponential-moving-average update rule.
package relationship

import (
	"math"
	"time"
)

// InitialTrust is the neutral trust score a new relationship starts from.
const InitialTrust = 0.5

// baseAlpha is the EMA smoothing factor at weight 1.0.
const baseAlpha = 0.15

// Relationship is a directed trust edge from a source agent to a target.
type Relationship struct {
	SourceAgentID         string    `json:"source_agent_id"`
	TargetAgentID         string    `json:"target_agent_id"`
	TrustScore            float64   `json:"trust_score"`
	InteractionCount      int       `json:"interaction_count"`
	DelegationCount       int       `json:"delegation_count"`
	DelegationSuccessRate float64   `json:"delegation_success_rate"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// New returns a relationship initialized at neutral trust.
func New(sourceID, targetID string) *Relationship {
	return &Relationship{
		SourceAgentID: sourceID,
		TargetAgentID: targetID,
		TrustScore:    InitialTrust,
	}
}

// ApplyOutcome folds one delegation outcome into the trust score and the
// running delegation success rate. outcome is 1.0 for success, 0.0 for
// failure; weight scales the EMA step (default 1.0).
//
//	alpha = 0.15 × weight
//	trust' = clamp(alpha × outcome + (1 − alpha) × trust, 0, 1)
func (r *Relationship) ApplyOutcome(outcome, weight float64, now time.Time) {
	if weight <= 0 {
		weight = 1.0
	}
	alpha := baseAlpha * weight

	r.TrustScore = clamp01(alpha*outcome + (1-alpha)*r.TrustScore)
	r.InteractionCount++
	r.DelegationCount++

	// Running mean: reconstruct prior success count from the old rate.
	successes := math.Round(r.DelegationSuccessRate * float64(r.DelegationCount-1))
	r.DelegationSuccessRate = (successes + outcome) / float64(r.DelegationCount)

	r.UpdatedAt = now
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
