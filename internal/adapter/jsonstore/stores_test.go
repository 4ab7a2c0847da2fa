package jsonstore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/relationship"
	"github.com/Strob0t/AgentForge/internal/domain/schedule"
	"github.com/Strob0t/AgentForge/internal/domain/task"
)

func openTestStores(t *testing.T, dir string) *Stores {
	t.Helper()
	stores, err := Open(config.Storage{Dir: dir, FlushQuiet: 10 * time.Millisecond}, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return stores
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	created, err := stores.Tasks.Create(ctx, task.CreateRequest{
		Description: "Refactor the scheduler\nmore detail",
		CreatedBy:   "alice",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create returned empty id")
	}
	if created.Status != task.StatusPending {
		t.Fatalf("Status = %s, want pending", created.Status)
	}
	if created.Priority != task.PriorityNormal {
		t.Fatalf("Priority = %s, want normal", created.Priority)
	}
	if created.Title != "Refactor the scheduler" {
		t.Fatalf("Title = %q", created.Title)
	}

	got, err := stores.Tasks.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != created.Description {
		t.Fatalf("Get returned %+v", got)
	}

	if _, err := stores.Tasks.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestTaskStoreListFiltersAndOrders(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	a, _ := stores.Tasks.Create(ctx, task.CreateRequest{Description: "first", CreatedBy: "alice", AssignedTo: "bob"})
	b, _ := stores.Tasks.Create(ctx, task.CreateRequest{Description: "second", CreatedBy: "alice", AssignedTo: "carol"})

	// Force distinct creation times so recency ordering is observable.
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	if err := stores.Tasks.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := stores.Tasks.List(ctx, task.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d tasks, want 2", len(all))
	}
	if all[0].ID != b.ID {
		t.Fatal("List should return newest first")
	}

	bobOnly, _ := stores.Tasks.List(ctx, task.Filter{AssignedTo: "bob"})
	if len(bobOnly) != 1 || bobOnly[0].ID != a.ID {
		t.Fatalf("filtered List = %+v", bobOnly)
	}
}

func TestTaskStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	stores := openTestStores(t, dir)
	created, err := stores.Tasks.Create(ctx, task.CreateRequest{Description: "survives restart", CreatedBy: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stores.Close()

	if _, err := os.Stat(filepath.Join(dir, "tasks.json")); err != nil {
		t.Fatalf("tasks.json not written: %v", err)
	}

	reopened := openTestStores(t, dir)
	defer reopened.Close()
	got, err := reopened.Tasks.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Description != "survives restart" {
		t.Fatalf("reloaded task = %+v", got)
	}
}

func TestScheduleStoreRejectsInvalidPattern(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()

	err := stores.Schedules.Create(context.Background(), &schedule.Schedule{
		Name:    "broken",
		Pattern: schedule.Pattern{Kind: schedule.KindCron, Cron: "nope"},
		Source:  schedule.SourceUser,
	})
	if err == nil {
		t.Fatal("Create with malformed cron should fail")
	}
}

func TestScheduleStoreSystemDeleteGuard(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	sys := &schedule.Schedule{
		ID:      "sys-heartbeat",
		Name:    "heartbeat",
		Pattern: schedule.Pattern{Kind: schedule.KindInterval, Interval: time.Hour},
		Source:  schedule.SourceSystem,
		Enabled: true,
	}
	if err := stores.Schedules.Create(ctx, sys); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := stores.Schedules.Delete(ctx, sys.ID); !errors.Is(err, domain.ErrSystemSchedule) {
		t.Fatalf("Delete system schedule = %v, want ErrSystemSchedule", err)
	}
	if _, err := stores.Schedules.Get(ctx, sys.ID); err != nil {
		t.Fatalf("system schedule should still exist: %v", err)
	}

	if err := stores.Schedules.ForceDelete(ctx, sys.ID); err != nil {
		t.Fatalf("ForceDelete: %v", err)
	}
	if _, err := stores.Schedules.Get(ctx, sys.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after ForceDelete = %v, want ErrNotFound", err)
	}
}

func TestRelationshipStoreUpdateTrustCreatesEdge(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	r, err := stores.Relationships.UpdateTrust(ctx, "alice", "bob", 1.0, 1.0)
	if err != nil {
		t.Fatalf("UpdateTrust: %v", err)
	}
	if r.TrustScore <= relationship.InitialTrust {
		t.Fatalf("success should raise trust above neutral, got %v", r.TrustScore)
	}
	if r.DelegationCount != 1 {
		t.Fatalf("DelegationCount = %d, want 1", r.DelegationCount)
	}

	// Second outcome compounds on the stored edge.
	r2, err := stores.Relationships.UpdateTrust(ctx, "alice", "bob", 0.0, 1.0)
	if err != nil {
		t.Fatalf("UpdateTrust: %v", err)
	}
	if r2.DelegationCount != 2 {
		t.Fatalf("DelegationCount = %d, want 2", r2.DelegationCount)
	}
	if r2.TrustScore >= r.TrustScore {
		t.Fatalf("failure should lower trust: %v -> %v", r.TrustScore, r2.TrustScore)
	}

	edges, err := stores.Relationships.GetAll(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(edges) != 1 || edges[0].TargetAgentID != "bob" {
		t.Fatalf("GetAll = %+v", edges)
	}
}

func TestStatsStoreZeroValuedGet(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	st, err := stores.Stats.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.AgentID != "nobody" || st.TasksCompleted != 0 {
		t.Fatalf("Get for unknown agent = %+v", st)
	}
}

func TestStatsStoreRecordAndIncrement(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	if err := stores.Stats.RecordExecution(ctx, "bob", true, 1200); err != nil {
		t.Fatalf("RecordExecution: %v", err)
	}
	if err := stores.Stats.RecordExecution(ctx, "bob", false, 800); err != nil {
		t.Fatalf("RecordExecution: %v", err)
	}
	if err := stores.Stats.IncrementTokens(ctx, "bob", 100, 40); err != nil {
		t.Fatalf("IncrementTokens: %v", err)
	}

	st, err := stores.Stats.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.TasksCompleted != 1 || st.TasksFailed != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", st.TasksCompleted, st.TasksFailed)
	}
	if st.TokensIn != 100 || st.TokensOut != 40 {
		t.Fatalf("tokens = %d/%d, want 100/40", st.TokensIn, st.TokensOut)
	}
}

func TestProfileStoreConflictAndRuntimeValidation(t *testing.T) {
	stores := openTestStores(t, t.TempDir())
	defer stores.Close()
	ctx := context.Background()

	p := &agent.Profile{ID: "bob", Name: "Bob", Runtime: agent.RuntimeClaude}
	if err := stores.Profiles.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := stores.Profiles.Create(ctx, p); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate Create = %v, want ErrConflict", err)
	}
	bad := &agent.Profile{ID: "eve", Runtime: "cursor"}
	if err := stores.Profiles.Create(ctx, bad); err == nil {
		t.Fatal("Create with unknown runtime should fail")
	}
}

func TestHubRoundTrip(t *testing.T) {
	hub, err := NewHub(filepath.Join(t.TempDir(), "channels"))
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	ctx := context.Background()

	if err := hub.CreateChannel(ctx, "general"); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	for _, body := range []string{"one", "two", "three"} {
		if _, err := hub.SendMessage(ctx, "general", "alice", body); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	msgs, err := hub.GetMessages(ctx, "general", 2)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "two" || msgs[1].Body != "three" {
		t.Fatalf("GetMessages(2) = %+v", msgs)
	}

	all, err := hub.GetMessages(ctx, "general", 0)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetMessages(0) returned %d messages, want 3", len(all))
	}

	names, err := hub.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(names) != 1 || names[0] != "general" {
		t.Fatalf("ListChannels = %v", names)
	}

	if _, err := hub.GetMessages(ctx, "missing", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetMessages missing channel = %v, want ErrNotFound", err)
	}
}

func TestHubRejectsPathTraversalNames(t *testing.T) {
	hub, err := NewHub(filepath.Join(t.TempDir(), "channels"))
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	for _, name := range []string{"", "../etc", "a/b", "dot.name"} {
		if err := hub.CreateChannel(context.Background(), name); err == nil {
			t.Errorf("CreateChannel(%q) should fail", name)
		}
	}
}
