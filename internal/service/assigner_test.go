package service

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/stats"
)

type fakeRunning struct {
	counts map[string]int
}

func (f *fakeRunning) RunningCount(agentID string) int { return f.counts[agentID] }

func seedProfiles(t *testing.T, store *fakeProfileStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		p := &agent.Profile{ID: id, Name: id, Runtime: agent.RuntimeClaude}
		if err := store.Create(context.Background(), p); err != nil {
			t.Fatalf("seed profile %s: %v", id, err)
		}
	}
}

func newTestAssigner(profiles *fakeProfileStore, st *fakeStatsStore, rel *fakeRelationshipStore, running *fakeRunning) *Assigner {
	return NewAssigner(profiles, st, rel, running, nil, time.Second, 0)
}

func TestPickAssigneeNoCandidates(t *testing.T) {
	a := newTestAssigner(&fakeProfileStore{}, newFakeStatsStore(), newFakeRelationshipStore(), &fakeRunning{counts: map[string]int{}})

	if _, _, ok := a.PickAssignee(context.Background()); ok {
		t.Fatal("empty roster should yield no assignee")
	}
}

func TestPickAssigneeExcludesSystemAgent(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles)
	sys := &agent.Profile{ID: agent.SystemAgentID, Name: "system", Runtime: agent.RuntimeClaude}
	if err := profiles.Create(context.Background(), sys); err != nil {
		t.Fatalf("seed system profile: %v", err)
	}

	a := newTestAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), &fakeRunning{counts: map[string]int{}})
	if _, _, ok := a.PickAssignee(context.Background()); ok {
		t.Fatal("the system agent must never be picked")
	}
}

func TestPickAssigneeExcludesSaturatedAgents(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "busy", "free")

	running := &fakeRunning{counts: map[string]int{"busy": defaultMaxConcurrency}}
	a := newTestAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), running)

	id, _, ok := a.PickAssignee(context.Background())
	if !ok || id != "free" {
		t.Fatalf("PickAssignee = %q, %v; want free, true", id, ok)
	}
}

func TestPickAssigneePrefersHigherSuccessRate(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "strong", "weak")
	ctx := context.Background()

	st := newFakeStatsStore()
	if err := st.Update(ctx, &stats.AgentStats{AgentID: "strong", TasksCompleted: 9, TasksFailed: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := st.Update(ctx, &stats.AgentStats{AgentID: "weak", TasksCompleted: 1, TasksFailed: 9}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	a := newTestAssigner(profiles, st, newFakeRelationshipStore(), &fakeRunning{counts: map[string]int{}})
	id, score, ok := a.PickAssignee(ctx)
	if !ok || id != "strong" {
		t.Fatalf("PickAssignee = %q, %v; want strong, true", id, ok)
	}
	if score <= 0 || score > 100 {
		t.Fatalf("score = %d, want within (0, 100]", score)
	}
}

func TestPickAssigneePrefersTrustedAgent(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "trusted", "unknown")
	ctx := context.Background()

	rel := newFakeRelationshipStore()
	// Several strong outcomes push mean outgoing trust well above the
	// neutral 0.5 a relationship-less agent is scored at.
	for range 10 {
		if _, err := rel.UpdateTrust(ctx, "trusted", "peer", 1.0, 1.0); err != nil {
			t.Fatalf("UpdateTrust: %v", err)
		}
	}

	a := newTestAssigner(profiles, newFakeStatsStore(), rel, &fakeRunning{counts: map[string]int{}})
	id, _, ok := a.PickAssignee(ctx)
	if !ok || id != "trusted" {
		t.Fatalf("PickAssignee = %q, %v; want trusted, true", id, ok)
	}
}

func TestPickAssigneeHeadroomBreaksEqualRecords(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "idle", "loaded")

	running := &fakeRunning{counts: map[string]int{"loaded": 1}}
	a := newTestAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), running)

	id, _, ok := a.PickAssignee(context.Background())
	if !ok || id != "idle" {
		t.Fatalf("PickAssignee = %q, %v; want idle, true", id, ok)
	}
}

func TestPickAssigneeTieBreakIsUniform(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "a", "b", "c")

	a := newTestAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), &fakeRunning{counts: map[string]int{}})

	const trials = 1200
	picks := map[string]int{}
	for range trials {
		id, _, ok := a.PickAssignee(context.Background())
		if !ok {
			t.Fatal("tied candidates should still yield a pick")
		}
		picks[id]++
	}

	// All three agents score identically, so each should take roughly a
	// third of the picks. A uniform third of 1200 is 400; anything under
	// 250 (p < 1e-12 for a fair pick) means the tie-break is biased.
	for _, id := range []string{"a", "b", "c"} {
		if picks[id] < 250 {
			t.Fatalf("agent %s won %d of %d tied picks, want ~%d: %v", id, picks[id], trials, trials/3, picks)
		}
	}
}

func TestPickAssigneeHonorsConfiguredConcurrency(t *testing.T) {
	profiles := &fakeProfileStore{}
	seedProfiles(t, profiles, "loaded", "spare")

	// With the cap raised to 4, three running tasks still leave headroom.
	running := &fakeRunning{counts: map[string]int{"loaded": 3, "spare": 4}}
	a := NewAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), running, nil, time.Second, 4)

	id, _, ok := a.PickAssignee(context.Background())
	if !ok || id != "loaded" {
		t.Fatalf("PickAssignee = %q, %v; want loaded, true", id, ok)
	}

	// At the default cap of 2 the same agent is saturated.
	a = NewAssigner(profiles, newFakeStatsStore(), newFakeRelationshipStore(), running, nil, time.Second, 0)
	if _, _, ok := a.PickAssignee(context.Background()); ok {
		t.Fatal("both agents exceed the default cap; no pick expected")
	}
}
