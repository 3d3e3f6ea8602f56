// ABOUTME: MCP server setup for the pain diary.
// ABOUTME: Wraps the MCP server around the diary service.
package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/diary"
)

// Server wraps the MCP server with diary access.
type Server struct {
	mcpServer *mcp.Server
	service   *diary.Service
	loc       *time.Location
	log       *zap.Logger
}

// NewServer creates a new MCP server. loc buckets summaries into days and
// defaults to UTC; log defaults to a no-op logger.
func NewServer(service *diary.Service, loc *time.Location, log *zap.Logger) (*Server, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "painlog",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		service:   service,
		loc:       loc,
		log:       log,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("mcp server started", zap.String("transport", "stdio"))
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
