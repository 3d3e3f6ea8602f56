// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, resource handlers, and a client round trip.
package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/painlog/internal/diary"
	"github.com/harperreed/painlog/internal/storage"
)

// setupTestServer creates a server over a temp SQLite database.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "painlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	server, err := NewServer(diary.NewService(db), nil, nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server
}

func registerTestUser(t *testing.T, s *Server) userOutput {
	t.Helper()
	_, out, err := s.handleRegisterUser(context.Background(), &mcp.CallToolRequest{}, registerUserInput{
		Name:  "João Silva",
		Phone: "11999887766",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return out
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)

	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.service == nil {
		t.Error("Expected non-nil service")
	}
	if server.loc == nil || server.log == nil {
		t.Error("Expected defaults for location and logger")
	}
}

func TestHandleRegisterUser(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	out := registerTestUser(t, server)
	if out.ID == 0 {
		t.Error("Expected assigned ID")
	}
	if !strings.Contains(out.Message, "João Silva") {
		t.Errorf("Unexpected message: %q", out.Message)
	}

	_, _, err := server.handleRegisterUser(ctx, &mcp.CallToolRequest{}, registerUserInput{Name: "Outro", Phone: "11999887766"})
	if err == nil || !strings.Contains(err.Error(), diary.MsgPhoneTaken) {
		t.Errorf("Expected conflict message, got %v", err)
	}

	_, _, err = server.handleRegisterUser(ctx, &mcp.CallToolRequest{}, registerUserInput{Name: "Sem telefone"})
	if err == nil || !strings.Contains(err.Error(), diary.MsgRegisterFieldsRequired) {
		t.Errorf("Expected validation message, got %v", err)
	}
}

func TestHandleFindUser(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	user := registerTestUser(t, server)

	tests := []struct {
		name    string
		input   findUserInput
		wantErr string
	}{
		{"by phone", findUserInput{Phone: "11999887766"}, ""},
		{"by id", findUserInput{ID: user.ID}, ""},
		{"unknown phone", findUserInput{Phone: "000"}, diary.MsgUserNotFound},
		{"no criteria", findUserInput{}, "phone or id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleFindUser(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.ID != user.ID {
				t.Errorf("Found ID %d, want %d", out.ID, user.ID)
			}
		})
	}
}

func TestHandleAddPainEntry(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	user := registerTestUser(t, server)

	tests := []struct {
		name    string
		input   addPainEntryInput
		wantErr string
	}{
		{
			name:  "plain entry",
			input: addPainEntryInput{UserID: user.ID, BodyPart: "costas", PainLevel: 6},
		},
		{
			name: "entry with form",
			input: addPainEntryInput{UserID: user.ID, BodyPart: "ombro", PainLevel: 3, FormData: map[string]any{
				"symptoms": "pontada", "duration": "1-semana", "sleepQuality": "acordei-dor",
			}},
		},
		{
			name:    "unknown region",
			input:   addPainEntryInput{UserID: user.ID, BodyPart: "joelho", PainLevel: 3},
			wantErr: diary.MsgInvalidBodyPart,
		},
		{
			name:    "level out of range",
			input:   addPainEntryInput{UserID: user.ID, BodyPart: "costas", PainLevel: 12},
			wantErr: diary.MsgInvalidPainLevel,
		},
		{
			name:    "unknown user",
			input:   addPainEntryInput{UserID: 999, BodyPart: "costas", PainLevel: 2},
			wantErr: diary.MsgUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Entry.ID == 0 || out.Entry.BodyPart != tt.input.BodyPart {
				t.Errorf("Unexpected entry: %+v", out.Entry)
			}
			if len(tt.input.FormData) > 0 && out.Entry.FormData["duration"] != "1-semana" {
				t.Errorf("Form data not returned: %+v", out.Entry.FormData)
			}
		})
	}
}

func TestHandleAddPainEntryIdempotent(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	user := registerTestUser(t, server)

	input := addPainEntryInput{UserID: user.ID, BodyPart: "perna", PainLevel: 4, IdempotencyKey: "assistant-1"}
	_, first, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, input)
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	_, second, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, input)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if first.Entry.ID != second.Entry.ID {
		t.Errorf("Expected same entry, got %d and %d", first.Entry.ID, second.Entry.ID)
	}
}

func TestHandleListPainEntries(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	user := registerTestUser(t, server)

	_, out, err := server.handleListPainEntries(ctx, &mcp.CallToolRequest{}, listPainEntriesInput{UserID: user.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if out.Count != 0 || out.Message != "No pain entries found." {
		t.Errorf("Unexpected empty output: %+v", out)
	}

	for i := 1; i <= 3; i++ {
		if _, _, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, addPainEntryInput{UserID: user.ID, BodyPart: "cabeca", PainLevel: i}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	_, out, err = server.handleListPainEntries(ctx, &mcp.CallToolRequest{}, listPainEntriesInput{UserID: user.ID, Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if out.Count != 2 {
		t.Errorf("Expected 2 entries, got %d", out.Count)
	}
}

func TestHandlePainSummary(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	user := registerTestUser(t, server)

	_, out, err := server.handlePainSummary(ctx, &mcp.CallToolRequest{}, painSummaryInput{UserID: user.ID})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if out.Message != "No pain entries yet." {
		t.Errorf("Unexpected message: %q", out.Message)
	}

	if _, _, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, addPainEntryInput{UserID: user.ID, BodyPart: "quadril", PainLevel: 5}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	_, out, err = server.handlePainSummary(ctx, &mcp.CallToolRequest{}, painSummaryInput{UserID: user.ID, TimeZone: "America/Sao_Paulo"})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !strings.HasPrefix(out.Message, "1 entries across 1 regions") {
		t.Errorf("Unexpected message: %q", out.Message)
	}

	if _, _, err := server.handlePainSummary(ctx, &mcp.CallToolRequest{}, painSummaryInput{UserID: user.ID, TimeZone: "Mars/Base"}); err == nil {
		t.Error("Expected error for unknown time zone")
	}
}

func TestHandleVocabularyResource(t *testing.T) {
	server := setupTestServer(t)

	result, err := server.handleVocabularyResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(result.Contents) != 1 || result.Contents[0].URI != vocabularyURI {
		t.Fatalf("Unexpected contents: %+v", result.Contents)
	}

	var body struct {
		Vocabulary map[string][]struct {
			Value string `json:"value"`
			Label string `json:"label"`
		} `json:"vocabulary"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Vocabulary["bodyPart"]) != 7 {
		t.Errorf("Expected 7 body parts, got %d", len(body.Vocabulary["bodyPart"]))
	}
}

func TestHandleRecentResource(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleRecentResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, `"count": 0`) {
		t.Errorf("Expected empty list, got %s", result.Contents[0].Text)
	}

	user := registerTestUser(t, server)
	if _, _, err := server.handleAddPainEntry(ctx, &mcp.CallToolRequest{}, addPainEntryInput{UserID: user.ID, BodyPart: "pes", PainLevel: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	result, err = server.handleRecentResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, `"body_part": "pes"`) {
		t.Errorf("Expected recorded entry, got %s", result.Contents[0].Text)
	}
}

func TestClientRoundTrip(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"register_user", "find_user", "add_pain_entry", "list_pain_entries", "pain_summary"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "register_user",
		Arguments: map[string]any{"name": "Ana", "phone": "11900001111"},
	})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("register_user returned tool error: %+v", res.Content)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "add_pain_entry",
		Arguments: map[string]any{"user_id": 1, "body_part": "joelho", "pain_level": 3},
	})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !res.IsError {
		t.Error("Expected tool error for unknown region")
	}

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: vocabularyURI})
	if err != nil {
		t.Fatalf("read resource failed: %v", err)
	}
	if len(read.Contents) != 1 {
		t.Errorf("Expected one content block, got %d", len(read.Contents))
	}
}
