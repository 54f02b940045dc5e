package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/knowledge-engine/bookmarks/internal/models"
)

func (s *Server) registerSearchTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_bookmarks",
		Description: "Semantic search over saved bookmarks. Returns the closest matches by meaning, with similarity scores.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Free-text search query"},
				"limit": {"type": "number", "description": "Maximum number of results (default 5)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchBookmarks)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "similar_bookmarks",
		Description: "Find bookmarks similar to an already saved bookmark, identified by its URL.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"site": {"type": "string", "description": "URL of a saved bookmark"},
				"limit": {"type": "number", "description": "Maximum number of results (default 5)"}
			},
			"required": ["site"]
		}`),
	}, s.handleSimilarBookmarks)
}

func (s *Server) handleSearchBookmarks(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return toolError("query is required"), nil
	}

	results, err := s.index.Search(ctx, args.Query, args.Limit)
	if err != nil {
		s.logger.WithError(err).Warn("search_bookmarks failed")
		return toolError("search failed: %v", err), nil
	}
	return formatResults(results), nil
}

func (s *Server) handleSimilarBookmarks(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Site  string `json:"site"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Site == "" {
		return toolError("site is required"), nil
	}

	results, err := s.index.Similar(args.Site, args.Limit)
	if err != nil {
		return toolError("similar lookup failed: %v", err), nil
	}
	return formatResults(results), nil
}

func formatResults(results []models.SearchResult) *gomcp.CallToolResult {
	if len(results) == 0 {
		return &gomcp.CallToolResult{
			Content: []gomcp.Content{&gomcp.TextContent{Text: "No matching bookmarks found."}},
		}
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		title := r.Title
		if title == "" {
			title = r.Site
		}
		fmt.Fprintf(&sb, "%d. %s (%.3f)\n   %s\n", i+1, title, r.Similarity, r.Site)
		if r.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Description)
		}
		if labels := append(append([]string{}, r.Category...), r.Tag...); len(labels) > 0 {
			fmt.Fprintf(&sb, "   [%s]\n", strings.Join(labels, ", "))
		}
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
