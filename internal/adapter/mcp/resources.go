package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/AgentForge/internal/port/commhub"
)

const feedResourceLimit = 50

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"agentforge://feed",
			"Team Feed",
			mcplib.WithResourceDescription("Recent task completion summaries from the shared feed channel"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleFeedResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"agentforge://agents",
			"Agent Roster",
			mcplib.WithResourceDescription("All configured agents and their runtimes"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)
}

func (s *Server) handleFeedResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Hub == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"hub not configured"}`,
			},
		}, nil
	}
	messages, err := s.deps.Hub.GetMessages(ctx, commhub.FeedChannel, feedResourceLimit)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleAgentsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Profiles == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"profile store not configured"}`,
			},
		}, nil
	}
	profiles, err := s.deps.Profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
