// ABOUTME: MCP server implementation for feedwatch
// ABOUTME: Provides tools, resources, and prompts for AI agents to inspect and poll watched feeds

package mcp

import (
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/poller"
	"github.com/harper/feedwatch/internal/storage"
)

// Server wraps the MCP server with feedwatch-specific context
type Server struct {
	mcpServer  *server.MCPServer
	store      storage.Store
	poller     *poller.Poller
	defaultTTL int
	now        func() time.Time
}

// NewServer creates a new MCP server instance. New feeds get defaultTTL
// seconds, or models.DefaultTTL when it is zero.
func NewServer(store storage.Store, p *poller.Poller, defaultTTL int) *Server {
	if defaultTTL <= 0 {
		defaultTTL = models.DefaultTTL
	}
	s := &Server{
		store:      store,
		poller:     p,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}

	s.mcpServer = server.NewMCPServer(
		"feedwatch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
