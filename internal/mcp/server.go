// Package mcp exposes document search and question answering as Model
// Context Protocol tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the document tools.
type Server struct {
	retriever  search.Retriever
	controller *chat.Controller
	sessions   *session.Store
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server. Sessions opened by ask_documents live
// in sessions so callers can continue a conversation.
func NewServer(retriever search.Retriever, controller *chat.Controller, sessions *session.Store) *Server {
	s := &Server{
		retriever:  retriever,
		controller: controller,
		sessions:   sessions,
	}

	s.mcp = server.NewMCPServer(
		"docchat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
