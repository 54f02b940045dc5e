// Package mcp exposes bookmark search to AI agents as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/models"
)

// Index answers semantic queries over the enriched bookmarks
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	Similar(site string, limit int) ([]models.SearchResult, error)
}

// Server wraps the MCP server around a bookmark index.
type Server struct {
	mcp    *gomcp.Server
	index  Index
	logger *logrus.Entry
}

// NewServer creates an MCP server with the bookmark search tools registered.
func NewServer(index Index, version string, logger *logrus.Entry) (*Server, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if logger == nil {
		logger = logrus.WithField("component", "mcp")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "bookmarks",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		index:  index,
		logger: logger,
	}
	s.registerSearchTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
