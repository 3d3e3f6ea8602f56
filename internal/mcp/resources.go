// ABOUTME: MCP resource implementations for the pain diary.
// ABOUTME: Provides painlog://vocabulary and painlog://recent resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/painlog/internal/models"
)

const (
	vocabularyURI = "painlog://vocabulary"
	recentURI     = "painlog://recent"
	recentLimit   = 10
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         vocabularyURI,
		Name:        "Pain Diary Vocabulary",
		Description: "Body regions and questionnaire answers with their display labels",
		MIMEType:    "application/json",
	}, s.handleVocabularyResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         recentURI,
		Name:        "Recent Pain Entries",
		Description: "Last 10 pain entries across all users",
		MIMEType:    "application/json",
	}, s.handleRecentResource)
}

// Resource handlers

func (s *Server) handleVocabularyResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(vocabularyURI, map[string]any{
		"vocabulary":   models.Vocabulary(),
		"minPainLevel": models.MinPainLevel,
		"maxPainLevel": models.MaxPainLevel,
	})
}

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries, err := s.service.RecentEntries(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent entries: %w", err)
	}

	out := make([]entryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryOutput(e))
	}
	return jsonResource(recentURI, map[string]any{
		"entries": out,
		"count":   len(out),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
