package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	afmcp "github.com/Strob0t/AgentForge/internal/adapter/mcp"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/commhub"
)

// --- Mocks ---

type mockTaskStore struct {
	tasks   map[string]*task.Task
	created []task.CreateRequest
	err     error
}

func (m *mockTaskStore) Create(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, req)
	return &task.Task{
		ID:          "t-new",
		Title:       task.DeriveTitle(req.Title, req.Description),
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		Status:      task.StatusPending,
	}, nil
}

func (m *mockTaskStore) Get(_ context.Context, id string) (*task.Task, error) {
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return nil, errors.New("task not found")
}

func (m *mockTaskStore) Update(_ context.Context, _ *task.Task) error { return m.err }
func (m *mockTaskStore) Delete(_ context.Context, _ string) error     { return m.err }

func (m *mockTaskStore) List(_ context.Context, _ task.Filter) ([]task.Task, error) {
	return nil, m.err
}

type mockProfileStore struct {
	profiles []agent.Profile
	err      error
}

func (m *mockProfileStore) Create(_ context.Context, _ *agent.Profile) error { return m.err }

func (m *mockProfileStore) Get(_ context.Context, id string) (*agent.Profile, error) {
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			return &m.profiles[i], nil
		}
	}
	return nil, errors.New("profile not found")
}

func (m *mockProfileStore) Update(_ context.Context, _ *agent.Profile) error { return m.err }
func (m *mockProfileStore) Delete(_ context.Context, _ string) error         { return m.err }

func (m *mockProfileStore) List(_ context.Context) ([]agent.Profile, error) {
	return m.profiles, m.err
}

type mockHub struct {
	messages []commhub.Message
	err      error
}

func (m *mockHub) CreateChannel(_ context.Context, _ string) error { return m.err }

func (m *mockHub) SendMessage(_ context.Context, channel, sender, body string) (*commhub.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	msg := commhub.Message{Channel: channel, Sender: sender, Body: body}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockHub) GetMessages(_ context.Context, _ string, _ int) ([]commhub.Message, error) {
	return m.messages, m.err
}

func (m *mockHub) ListChannels(_ context.Context) ([]string, error) {
	return []string{commhub.FeedChannel}, m.err
}

type mockDelegator struct {
	appended map[string][]afmcp.DelegationRequest
	err      error
}

func (m *mockDelegator) Append(agentID string, req afmcp.DelegationRequest) error {
	if m.err != nil {
		return m.err
	}
	if m.appended == nil {
		m.appended = make(map[string][]afmcp.DelegationRequest)
	}
	m.appended[agentID] = append(m.appended[agentID], req)
	return nil
}

func newTestServer(deps afmcp.Deps) *afmcp.Server {
	return afmcp.NewServer(afmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	s := newTestServer(afmcp.Deps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
	if s.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestToolRegistration(t *testing.T) {
	s := newTestServer(afmcp.Deps{
		Tasks:     &mockTaskStore{},
		Profiles:  &mockProfileStore{},
		Hub:       &mockHub{},
		Delegator: &mockDelegator{},
	})

	tools := s.MCPServer().ListTools()
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}

	expectedTools := map[string]bool{
		"create_task": false,
		"delegate":    false,
		"list_agents": false,
		"get_task":    false,
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func callTool(t *testing.T, s *afmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func TestHandleCreateTask(t *testing.T) {
	store := &mockTaskStore{}
	s := newTestServer(afmcp.Deps{Tasks: store})

	result := callTool(t, s, "create_task", map[string]any{
		"description": "fix the flaky build",
		"created_by":  "alice",
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var created task.Task
	if err := json.Unmarshal([]byte(text.Text), &created); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if created.CreatedBy != "alice" {
		t.Errorf("created_by = %q, want alice", created.CreatedBy)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(store.created))
	}
}

func TestHandleCreateTaskMissingDescription(t *testing.T) {
	s := newTestServer(afmcp.Deps{Tasks: &mockTaskStore{}})

	result := callTool(t, s, "create_task", map[string]any{"created_by": "alice"})
	if !result.IsError {
		t.Fatal("expected error result for missing description")
	}
}

func TestHandleDelegate(t *testing.T) {
	delegator := &mockDelegator{}
	s := newTestServer(afmcp.Deps{Delegator: delegator})

	result := callTool(t, s, "delegate", map[string]any{
		"target":      "bob",
		"description": "review the release notes",
		"from":        "alice",
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	reqs := delegator.appended["bob"]
	if len(reqs) != 1 {
		t.Fatalf("expected 1 delegation to bob, got %d", len(reqs))
	}
	if reqs[0].From != "alice" {
		t.Errorf("from = %q, want alice", reqs[0].From)
	}
}

func TestHandleDelegateMissingTarget(t *testing.T) {
	s := newTestServer(afmcp.Deps{Delegator: &mockDelegator{}})

	result := callTool(t, s, "delegate", map[string]any{
		"description": "review the release notes",
		"from":        "alice",
	})
	if !result.IsError {
		t.Fatal("expected error result for missing target")
	}
}

func TestHandleListAgents(t *testing.T) {
	s := newTestServer(afmcp.Deps{
		Profiles: &mockProfileStore{
			profiles: []agent.Profile{
				{ID: "alice", Runtime: "claude"},
				{ID: "bob", Runtime: "codex"},
			},
		},
	})

	result := callTool(t, s, "list_agents", nil)
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var profiles []agent.Profile
	if err := json.Unmarshal([]byte(text.Text), &profiles); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(profiles))
	}
}

func TestHandleGetTask(t *testing.T) {
	s := newTestServer(afmcp.Deps{
		Tasks: &mockTaskStore{
			tasks: map[string]*task.Task{
				"t-1": {ID: "t-1", Title: "ship it", Status: task.StatusCompleted},
			},
		},
	})

	result := callTool(t, s, "get_task", map[string]any{"task_id": "t-1"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var got task.Task
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, task.StatusCompleted)
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	s := newTestServer(afmcp.Deps{Tasks: &mockTaskStore{}})

	result := callTool(t, s, "get_task", map[string]any{"task_id": "missing"})
	if !result.IsError {
		t.Fatal("expected error result for unknown task")
	}
}
