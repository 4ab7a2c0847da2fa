package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AgentForge/internal/adapter/jsonstore"
	"github.com/Strob0t/AgentForge/internal/adapter/membus"
	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/schedule"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
)

type fakeSessions struct {
	spawned []string
	killed  []string
}

func (f *fakeSessions) Spawn(_ context.Context, agentID string, _, _ uint16) lifecycle.SpawnResult {
	f.spawned = append(f.spawned, agentID)
	return lifecycle.SpawnResult{Success: true, PID: 42}
}

func (f *fakeSessions) Write(_ string, _ []byte) error     { return nil }
func (f *fakeSessions) Resize(_ string, _, _ uint16) error { return nil }
func (f *fakeSessions) Kill(_ context.Context, id string) error {
	f.killed = append(f.killed, id)
	return nil
}
func (f *fakeSessions) Scrollback(_ string) []byte { return []byte("$ ls\n") }
func (f *fakeSessions) IsRunning(_ string) bool    { return true }

type fakeCanceler struct {
	cancelled []string
	ok        bool
}

func (f *fakeCanceler) Cancel(taskID string) bool {
	f.cancelled = append(f.cancelled, taskID)
	return f.ok
}

func newTestAPI(t *testing.T) (*chi.Mux, *Handlers, *jsonstore.Stores) {
	t.Helper()
	log := slog.Default()
	stores, err := jsonstore.Open(config.Storage{Dir: t.TempDir()}, log)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(stores.Close)

	bus := membus.New(log)
	t.Cleanup(func() { _ = bus.Close() })

	h := &Handlers{
		Tasks:         stores.Tasks,
		Schedules:     stores.Schedules,
		Profiles:      stores.Profiles,
		Stats:         stores.Stats,
		Relationships: stores.Relationships,
		Hub:           stores.Hub,
		Sessions:      &fakeSessions{},
		Canceler:      &fakeCanceler{},
		Bus:           bus,
		Version:       "test",
	}
	r := chi.NewRouter()
	MountRoutes(r, h, nil)
	return r, h, stores
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestAPI(t)
	rec := doRequest(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	r, _, _ := newTestAPI(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/tasks", task.CreateRequest{
		Description: "investigate the failing nightly job",
		CreatedBy:   "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != task.StatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.Title == "" {
		t.Error("expected derived title")
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/tasks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateTaskMissingDescription(t *testing.T) {
	r, _, _ := newTestAPI(t)
	rec := doRequest(t, r, http.MethodPost, "/api/v1/tasks", task.CreateRequest{CreatedBy: "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListTasksFilter(t *testing.T) {
	r, h, _ := newTestAPI(t)
	ctx := context.Background()

	for _, creator := range []string{"alice", "alice", "bob"} {
		if _, err := h.Tasks.Create(ctx, task.CreateRequest{
			Description: "work item",
			CreatedBy:   creator,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/tasks?created_by=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tasks []task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestCancelPendingTask(t *testing.T) {
	r, h, _ := newTestAPI(t)

	created, err := h.Tasks.Create(context.Background(), task.CreateRequest{
		Description: "long running job",
		CreatedBy:   "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doRequest(t, r, http.MethodPost, "/api/v1/tasks/"+created.ID+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := h.Tasks.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != task.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	// A second cancel hits a terminal task.
	rec = doRequest(t, r, http.MethodPost, "/api/v1/tasks/"+created.ID+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCancelRunningTaskUsesCanceler(t *testing.T) {
	r, h, _ := newTestAPI(t)
	canceler := &fakeCanceler{ok: true}
	h.Canceler = canceler

	created, err := h.Tasks.Create(context.Background(), task.CreateRequest{
		Description: "long running job",
		CreatedBy:   "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.Status = task.StatusRunning
	if err := h.Tasks.Update(context.Background(), created); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := doRequest(t, r, http.MethodPost, "/api/v1/tasks/"+created.ID+"/cancel", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(canceler.cancelled) != 1 || canceler.cancelled[0] != created.ID {
		t.Errorf("canceler saw %v, want [%s]", canceler.cancelled, created.ID)
	}
}

func TestScheduleSystemDeleteGuard(t *testing.T) {
	r, h, _ := newTestAPI(t)

	sys := &schedule.Schedule{
		Name:    "self-reflection",
		Pattern: schedule.Pattern{Kind: schedule.KindInterval, Interval: 3600000000000},
		Template: task.CreateRequest{
			Description: "reflect on recent work",
			CreatedBy:   agent.SystemAgentID,
		},
		Source:  schedule.SourceSystem,
		Enabled: true,
	}
	if err := h.Schedules.Create(context.Background(), sys); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doRequest(t, r, http.MethodDelete, "/api/v1/schedules/"+sys.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for system schedule, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateScheduleBadPattern(t *testing.T) {
	r, _, _ := newTestAPI(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/schedules", map[string]any{
		"name": "broken",
		"pattern": map[string]any{
			"kind": "cron",
			"cron": "not a cron line",
		},
		"template": map[string]any{
			"description": "never fires",
			"created_by":  "alice",
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAgentValidation(t *testing.T) {
	r, _, _ := newTestAPI(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/agents", agent.Profile{
		ID:      "forge",
		Runtime: "notepad",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown runtime, got %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodPost, "/api/v1/agents", agent.Profile{
		ID:      agent.SystemAgentID,
		Runtime: agent.RuntimeClaude,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reserved id, got %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodPost, "/api/v1/agents", agent.Profile{
		ID:      "forge",
		Runtime: agent.RuntimeClaude,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate id conflicts.
	rec = doRequest(t, r, http.MethodPost, "/api/v1/agents", agent.Profile{
		ID:      "forge",
		Runtime: agent.RuntimeClaude,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate agent, got %d", rec.Code)
	}
}

func TestAgentStatsZeroValued(t *testing.T) {
	r, _, _ := newTestAPI(t)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/agents/ghost/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["agent_id"] != "ghost" {
		t.Errorf("agent_id = %v, want ghost", st["agent_id"])
	}
}

func TestSessionEndpoints(t *testing.T) {
	r, h, _ := newTestAPI(t)
	sessions := &fakeSessions{}
	h.Sessions = sessions

	rec := doRequest(t, r, http.MethodPost, "/api/v1/sessions/forge/spawn", spawnSessionRequest{Cols: 80, Rows: 24})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(sessions.spawned) != 1 || sessions.spawned[0] != "forge" {
		t.Errorf("spawned = %v, want [forge]", sessions.spawned)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/sessions/forge/scrollback", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodDelete, "/api/v1/sessions/forge", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(sessions.killed) != 1 {
		t.Errorf("killed = %v, want one entry", sessions.killed)
	}
}

func TestChannelRoundTrip(t *testing.T) {
	r, _, _ := newTestAPI(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/channels/feed/messages", sendMessageRequest{
		Sender: "forge",
		Body:   "done: nightly job fixed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/channels/feed/messages?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0]["sender"] != "forge" {
		t.Errorf("sender = %v, want forge", messages[0]["sender"])
	}
}
