// Package mcp exposes the cycle-time analytics as Model Context Protocol
// tools over a stdio transport.
package mcp

import (
	"context"

	"dcycle/internal/config"
	"dcycle/internal/orchestrator"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Server wires the orchestrator into an MCP server instance.
type Server struct {
	orch *orchestrator.Orchestrator
	cfg  *config.AppConfig
	impl *mcp.Server
}

// NewServer creates the MCP server and registers all tools.
func NewServer(orch *orchestrator.Orchestrator, cfg *config.AppConfig) *Server {
	s := &Server{
		orch: orch,
		cfg:  cfg,
		impl: mcp.NewServer(&mcp.Implementation{
			Name:    "dcycle",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Serve runs the stdio loop until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Msg("Starting MCP server on stdio")
	return s.impl.Run(ctx, &mcp.StdioTransport{})
}
