package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/AgentForge/internal/domain/task"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.createTaskTool(),
		s.delegateTool(),
		s.listAgentsTool(),
		s.getTaskTool(),
	)
}

func (s *Server) createTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("create_task",
		mcplib.WithDescription("Create a task for the team; it is assigned automatically"),
		mcplib.WithString("title",
			mcplib.Description("Short task title"),
		),
		mcplib.WithString("description",
			mcplib.Required(),
			mcplib.Description("What needs to be done"),
		),
		mcplib.WithString("created_by",
			mcplib.Required(),
			mcplib.Description("Id of the agent creating the task"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleCreateTask,
	}
}

func (s *Server) delegateTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("delegate",
		mcplib.WithDescription("Ask a specific agent to do something; the result is replied into your inbox"),
		mcplib.WithString("target",
			mcplib.Required(),
			mcplib.Description("Id of the agent to delegate to"),
		),
		mcplib.WithString("description",
			mcplib.Required(),
			mcplib.Description("What the target agent should do"),
		),
		mcplib.WithString("from",
			mcplib.Required(),
			mcplib.Description("Id of the delegating agent"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleDelegate,
	}
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List all configured agents and their runtimes"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListAgents,
	}
}

func (s *Server) getTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_task",
		mcplib.WithDescription("Get a task's status and result by id"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task id to look up"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetTask,
	}
}

func (s *Server) handleCreateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	args := req.GetArguments()
	description, _ := args["description"].(string)
	if description == "" {
		return mcplib.NewToolResultError("description is required"), nil
	}
	createdBy, _ := args["created_by"].(string)
	if createdBy == "" {
		return mcplib.NewToolResultError("created_by is required"), nil
	}
	title, _ := args["title"].(string)

	t, err := s.deps.Tasks.Create(ctx, task.CreateRequest{
		Title:       title,
		Description: description,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to create task", err), nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal task", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleDelegate(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	args := req.GetArguments()
	target, _ := args["target"].(string)
	description, _ := args["description"].(string)
	from, _ := args["from"].(string)
	if target == "" || description == "" || from == "" {
		return mcplib.NewToolResultError("target, description and from are required"), nil
	}

	err := s.deps.Delegator.Append(target, DelegationRequest{
		Description: description,
		From:        from,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to delegate to %s", target), err,
		), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"delegated_to":%q}`, target)), nil
}

func (s *Server) handleListAgents(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	profiles, err := s.deps.Profiles.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list agents", err), nil
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agents", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	args := req.GetArguments()
	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}

	t, err := s.deps.Tasks.Get(ctx, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get task %s", taskID), err,
		), nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal task", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
