package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/relationship"
	"github.com/Strob0t/AgentForge/internal/domain/stats"
	"github.com/Strob0t/AgentForge/internal/port/cache"
	"github.com/Strob0t/AgentForge/internal/port/profilestore"
	"github.com/Strob0t/AgentForge/internal/port/relationshipstore"
	"github.com/Strob0t/AgentForge/internal/port/statsstore"
)

// defaultMaxConcurrency is the per-agent running-task limit used when the
// session config leaves it unset.
const defaultMaxConcurrency = 2

// RunningCounter reports how many tasks an agent is currently executing.
type RunningCounter interface {
	RunningCount(agentID string) int
}

// Assigner scores candidate agents for an unassigned task and picks the
// highest scorer.
type Assigner struct {
	profiles      profilestore.Store
	stats         statsstore.Store
	relationships relationshipstore.Store
	running       RunningCounter
	cache         cache.Cache
	cacheTTL      time.Duration
	maxConcurrent int
	rand          *rand.Rand
}

// NewAssigner creates an assigner. cache may be nil to score straight from
// the stores. maxConcurrent is the per-agent running-task limit; agents at
// or above it are excluded from assignment entirely. Non-positive means the
// default of 2.
func NewAssigner(profiles profilestore.Store, st statsstore.Store, rel relationshipstore.Store, running RunningCounter, c cache.Cache, ttl time.Duration, maxConcurrent int) *Assigner {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrency
	}
	return &Assigner{
		profiles:      profiles,
		stats:         st,
		relationships: rel,
		running:       running,
		cache:         c,
		cacheTTL:      ttl,
		maxConcurrent: maxConcurrent,
		rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PickAssignee returns the id and score of the best candidate, or ok=false
// when no agent is eligible (the task stays pending).
func (a *Assigner) PickAssignee(ctx context.Context) (agentID string, score int, ok bool) {
	profiles, err := a.profiles.List(ctx)
	if err != nil {
		slog.Error("assigner: list profiles failed", "error", err)
		return "", 0, false
	}

	best := -1
	var tied []string
	for i := range profiles {
		p := &profiles[i]
		if p.IsSystem() {
			continue
		}
		running := a.running.RunningCount(p.ID)
		if running >= a.maxConcurrent {
			continue
		}

		s := a.scoreAgent(ctx, p, running)
		switch {
		case s > best:
			best = s
			tied = tied[:0]
			tied = append(tied, p.ID)
		case s == best:
			tied = append(tied, p.ID)
		}
	}

	if len(tied) == 0 {
		return "", 0, false
	}
	return tied[a.rand.Intn(len(tied))], best, true
}

// scoreAgent computes the 0–100 assignment score:
// success rate scaled to 40 points (neutral 20 with no history), mean
// outgoing trust scaled to 30 (neutral 15 with no relationships), slot
// headroom at 10 points per free slot, and the current success streak
// capped at 10.
func (a *Assigner) scoreAgent(ctx context.Context, p *agent.Profile, running int) int {
	st := a.cachedStats(ctx, p.ID)

	score := 20
	streak := 0
	if st != nil {
		if rate, ok := st.SuccessRate(); ok {
			score = int(rate * 40)
		}
		streak = st.CurrentStreak
		if streak > 10 {
			streak = 10
		}
	}

	trust := 15
	if mean, ok := a.meanTrust(ctx, p.ID); ok {
		trust = int(mean * 30)
	}

	headroom := (a.maxConcurrent - running) * 10
	return score + trust + headroom + streak
}

func (a *Assigner) meanTrust(ctx context.Context, agentID string) (float64, bool) {
	var rels []relationship.Relationship
	if !a.cachedGet(ctx, "rel:"+agentID, &rels) {
		var err error
		rels, err = a.relationships.GetAll(ctx, agentID)
		if err != nil {
			slog.Error("assigner: relationships lookup failed", "agent_id", agentID, "error", err)
			return 0, false
		}
		a.cachedSet(ctx, "rel:"+agentID, rels)
	}

	if len(rels) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range rels {
		sum += r.TrustScore
	}
	return sum / float64(len(rels)), true
}

func (a *Assigner) cachedStats(ctx context.Context, agentID string) *stats.AgentStats {
	var st stats.AgentStats
	if a.cachedGet(ctx, "stats:"+agentID, &st) {
		return &st
	}

	loaded, err := a.stats.Get(ctx, agentID)
	if err != nil {
		slog.Error("assigner: stats lookup failed", "agent_id", agentID, "error", err)
		return nil
	}
	a.cachedSet(ctx, "stats:"+agentID, loaded)
	return loaded
}

func (a *Assigner) cachedGet(ctx context.Context, key string, out any) bool {
	if a.cache == nil {
		return false
	}
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (a *Assigner) cachedSet(ctx context.Context, key string, v any) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		slog.Debug("assigner: cache set failed", "key", key, "error", err)
	}
}

// InvalidateAgent drops the cached scoring inputs for an agent, called
// after stats or trust updates.
func (a *Assigner) InvalidateAgent(ctx context.Context, agentID string) {
	if a.cache == nil {
		return
	}
	for _, key := range []string{"stats:" + agentID, "rel:" + agentID} {
		if err := a.cache.Delete(ctx, key); err != nil {
			slog.Debug("assigner: cache delete failed", "key", key, "error", err)
		}
	}
}
