// ABOUTME: Request and response bodies for the JSON API.
// ABOUTME: Field names follow the web client's camelCase contract.
package httpapi

import (
	"encoding/json"
	"time"

	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/models"
)

type registerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type loginRequest struct {
	Phone string `json:"phone"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User *models.User `json:"user"`
}

// SubmitEntryRequest is the body of POST /api/pain-entry.
type SubmitEntryRequest struct {
	UserID    int64           `json:"userId"`
	BodyPart  string          `json:"bodyPart"`
	PainLevel *int            `json:"painLevel"`
	FormData  json.RawMessage `json:"formData,omitempty"`
}

// SubmitEntryResponse is returned after a stored submission.
type SubmitEntryResponse struct {
	Success   bool              `json:"success"`
	PainEntry *models.PainEntry `json:"painEntry"`
}

// EntriesResponse lists a user's entries newest first.
type EntriesResponse struct {
	Entries []*models.PainEntry `json:"entries"`
}

// SummaryResponse wraps the history aggregation.
type SummaryResponse struct {
	Summary *history.Summary `json:"summary"`
}

// VocabularyResponse exposes every closed vocabulary with labels.
type VocabularyResponse struct {
	Vocabulary map[string][]models.Term `json:"vocabulary"`
	MinLevel   int                      `json:"minPainLevel"`
	MaxLevel   int                      `json:"maxPainLevel"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
