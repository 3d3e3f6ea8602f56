// ABOUTME: MCP tool implementations for the pain diary.
// ABOUTME: Registers users, records entries, lists history, and summarizes it.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/diary"
	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/models"
)

const defaultListLimit = 20

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "register_user",
		Description: "Register a diary owner by name and phone number",
	}, s.handleRegisterUser)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_user",
		Description: "Find a user by phone number or ID",
	}, s.handleFindUser)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_pain_entry",
		Description: "Record pain intensity (0-10) for a body region, with optional questionnaire answers",
	}, s.handleAddPainEntry)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_pain_entries",
		Description: "List a user's pain entries, newest first",
	}, s.handleListPainEntries)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "pain_summary",
		Description: "Summarize a user's pain history: daily timeline, per-region series, durations, sleep, and relief",
	}, s.handlePainSummary)
}

// Tool input/output types

type registerUserInput struct {
	Name  string `json:"name" jsonschema:"Full name of the user"`
	Phone string `json:"phone" jsonschema:"Phone number, unique per user"`
}

type findUserInput struct {
	Phone string `json:"phone,omitempty" jsonschema:"Phone number to look up"`
	ID    int64  `json:"id,omitempty" jsonschema:"User ID to look up"`
}

type userOutput struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
}

type addPainEntryInput struct {
	UserID         int64          `json:"user_id" jsonschema:"ID of the diary owner"`
	BodyPart       string         `json:"body_part" jsonschema:"Region tag: cabeca, pescoco, ombro, costas, quadril, perna, pes"`
	PainLevel      int            `json:"pain_level" jsonschema:"Intensity from 0 (none) to 10 (worst)"`
	FormData       map[string]any `json:"form_data,omitempty" jsonschema:"Questionnaire answers such as symptoms, duration, sleepQuality, painRelief"`
	IdempotencyKey string         `json:"idempotency_key,omitempty" jsonschema:"Reuse when retrying so the entry is stored once"`
}

type entryOutput struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	BodyPart      string         `json:"body_part"`
	BodyPartLabel string         `json:"body_part_label"`
	PainLevel     int            `json:"pain_level"`
	Severity      string         `json:"severity"`
	CreatedAt     string         `json:"created_at"`
	FormData      map[string]any `json:"form_data,omitempty"`
}

type addPainEntryOutput struct {
	Entry   entryOutput `json:"entry"`
	Message string      `json:"message"`
}

type listPainEntriesInput struct {
	UserID int64 `json:"user_id" jsonschema:"ID of the diary owner"`
	Limit  int   `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type listPainEntriesOutput struct {
	Entries []entryOutput `json:"entries"`
	Count   int           `json:"count"`
	Message string        `json:"message"`
}

type painSummaryInput struct {
	UserID   int64  `json:"user_id" jsonschema:"ID of the diary owner"`
	TimeZone string `json:"time_zone,omitempty" jsonschema:"IANA zone for calendar days, e.g. America/Sao_Paulo"`
}

type painSummaryOutput struct {
	Summary any    `json:"summary"`
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleRegisterUser(ctx context.Context, req *mcp.CallToolRequest, input registerUserInput) (*mcp.CallToolResult, userOutput, error) {
	u, err := s.service.Register(ctx, input.Name, input.Phone)
	if err != nil {
		return nil, userOutput{}, s.toolError("register user", err)
	}

	out := toUserOutput(u)
	out.Message = fmt.Sprintf("Registered %s (ID: %d)", u.Name, u.ID)
	return nil, out, nil
}

func (s *Server) handleFindUser(ctx context.Context, req *mcp.CallToolRequest, input findUserInput) (*mcp.CallToolResult, userOutput, error) {
	var (
		u   *models.User
		err error
	)
	switch {
	case input.Phone != "":
		u, err = s.service.Login(ctx, input.Phone)
	case input.ID > 0:
		u, err = s.service.GetUser(ctx, input.ID)
	default:
		return nil, userOutput{}, fmt.Errorf("phone or id is required")
	}
	if err != nil {
		return nil, userOutput{}, s.toolError("find user", err)
	}

	out := toUserOutput(u)
	out.Message = fmt.Sprintf("Found %s (ID: %d)", u.Name, u.ID)
	return nil, out, nil
}

func (s *Server) handleAddPainEntry(ctx context.Context, req *mcp.CallToolRequest, input addPainEntryInput) (*mcp.CallToolResult, addPainEntryOutput, error) {
	var formData json.RawMessage
	if len(input.FormData) > 0 {
		raw, err := json.Marshal(input.FormData)
		if err != nil {
			return nil, addPainEntryOutput{}, fmt.Errorf("encode form data: %w", err)
		}
		formData = raw
	}

	level := input.PainLevel
	e, err := s.service.SubmitEntry(ctx, diary.SubmitRequest{
		UserID:         input.UserID,
		BodyPart:       input.BodyPart,
		PainLevel:      &level,
		FormData:       formData,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		return nil, addPainEntryOutput{}, s.toolError("add pain entry", err)
	}

	return nil, addPainEntryOutput{
		Entry: toEntryOutput(e),
		Message: fmt.Sprintf("Recorded %s at %d/10 (%s), entry ID %d",
			e.BodyPart.Label(), e.PainLevel, models.PainDescription(e.PainLevel), e.ID),
	}, nil
}

func (s *Server) handleListPainEntries(ctx context.Context, req *mcp.CallToolRequest, input listPainEntriesInput) (*mcp.CallToolResult, listPainEntriesOutput, error) {
	if input.Limit <= 0 {
		input.Limit = defaultListLimit
	}

	entries, err := s.service.ListEntries(ctx, input.UserID, input.Limit)
	if err != nil {
		return nil, listPainEntriesOutput{}, s.toolError("list pain entries", err)
	}

	out := listPainEntriesOutput{Entries: make([]entryOutput, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		out.Entries = append(out.Entries, toEntryOutput(e))
	}
	if len(entries) == 0 {
		out.Message = "No pain entries found."
	} else {
		out.Message = fmt.Sprintf("Found %d pain entries.", len(entries))
	}
	return nil, out, nil
}

func (s *Server) handlePainSummary(ctx context.Context, req *mcp.CallToolRequest, input painSummaryInput) (*mcp.CallToolResult, painSummaryOutput, error) {
	loc := s.loc
	if input.TimeZone != "" {
		parsed, err := time.LoadLocation(input.TimeZone)
		if err != nil {
			return nil, painSummaryOutput{}, fmt.Errorf("unknown time zone %q", input.TimeZone)
		}
		loc = parsed
	}

	sum, err := s.service.Summary(ctx, input.UserID, loc)
	if err != nil {
		return nil, painSummaryOutput{}, s.toolError("pain summary", err)
	}

	return nil, painSummaryOutput{Summary: sum, Message: summaryMessage(sum)}, nil
}

func summaryMessage(sum *history.Summary) string {
	if sum.Empty {
		return "No pain entries yet."
	}
	return fmt.Sprintf("%d entries across %d regions over %d days.",
		sum.TotalEntries, len(sum.BodyParts), len(sum.Timeline))
}

// toolError turns diary errors into messages an assistant can act on.
func (s *Server) toolError(op string, err error) error {
	var ve *diary.ValidationError
	switch {
	case errors.As(err, &ve):
		return fmt.Errorf("%s: %s", op, ve.Message)
	case errors.Is(err, diary.ErrKeyReused):
		return fmt.Errorf("%s: %s", op, diary.MsgKeyReused)
	case errors.Is(err, diary.ErrConflict):
		return fmt.Errorf("%s: %s", op, diary.MsgPhoneTaken)
	case errors.Is(err, diary.ErrNotFound):
		return fmt.Errorf("%s: %s", op, diary.MsgUserNotFound)
	default:
		s.log.Error("tool failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

func toUserOutput(u *models.User) userOutput {
	return userOutput{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toEntryOutput(e *models.PainEntry) entryOutput {
	out := entryOutput{
		ID:            e.ID,
		UserID:        e.UserID,
		BodyPart:      string(e.BodyPart),
		BodyPartLabel: e.BodyPart.Label(),
		PainLevel:     e.PainLevel,
		Severity:      models.PainDescription(e.PainLevel),
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.TreatmentForm != nil {
		var form map[string]any
		if json.Unmarshal(e.TreatmentForm.FormData, &form) == nil {
			out.FormData = form
		}
	}
	return out
}
