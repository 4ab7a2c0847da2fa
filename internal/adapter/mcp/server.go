// Package mcp exposes the coordination core to agent CLI tools over the
// Model Context Protocol: agents create tasks, delegate to each other, and
// read the shared feed without shelling out to the HTTP API.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/AgentForge/internal/port/commhub"
	"github.com/Strob0t/AgentForge/internal/port/profilestore"
	"github.com/Strob0t/AgentForge/internal/port/taskstore"
)

// Delegator appends a delegation request to a target agent's inbox.
type Delegator interface {
	Append(agentID string, req DelegationRequest) error
}

// DelegationRequest mirrors one delegation inbox line.
type DelegationRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	From        string   `json:"from"`
	Tags        []string `json:"tags,omitempty"`
}

// Deps are the service slices the MCP tools call into.
type Deps struct {
	Tasks     taskstore.Store
	Profiles  profilestore.Store
	Hub       commhub.Hub
	Delegator Delegator
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  string
}

// Server exposes coordination tools over MCP.
type Server struct {
	cfg        ServerConfig
	deps       Deps
	mcpServer  *mcpserver.MCPServer
	httpServer *mcpserver.StreamableHTTPServer
}

// NewServer creates the MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	s.httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the HTTP handler serving the MCP endpoint, wrapped with
// bearer auth when an API key is configured.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, s.httpServer)
}

// Shutdown stops the streaming server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
