// Package mcp serves the resolved theme over the Model Context Protocol so
// editors and agents can look up tokens, generated identifiers and utility
// classes without running a build.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/stylepipe/pkg/mcplog"
	"github.com/gnana997/stylepipe/pkg/theme"
)

const serverName = "stylepipe"

// Server exposes read-only theme inspection tools.
type Server struct {
	mcpServer *server.MCPServer
	theme     *theme.Config
	calls     *mcplog.Logger // nil disables call logging
}

// NewServer creates a server for cfg. calls may be nil.
func NewServer(cfg *theme.Config, version string, calls *mcplog.Logger) *Server {
	s := &Server{theme: cfg, calls: calls}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if calls != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer(serverName, version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: listCategoriesTool(), Handler: s.handleListCategories},
		server.ServerTool{Tool: listTokensTool(), Handler: s.handleListTokens},
		server.ServerTool{Tool: getTokenTool(), Handler: s.handleGetToken},
		server.ServerTool{Tool: listUtilitiesTool(), Handler: s.handleListUtilities},
	)
	return s
}

// MCPServer returns the underlying server, e.g. for an in-process client.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
