// ABOUTME: Diary service: validates input and delegates to storage.
// ABOUTME: Shared by the HTTP API, the CLI, and the MCP server.
package diary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
	"github.com/harperreed/painlog/internal/wizard"
)

// Service implements the diary operations on top of a Repository.
type Service struct {
	repo storage.Repository
	now  func() time.Time
}

// NewService wraps repo.
func NewService(repo storage.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a user. Name and phone are trimmed and required.
func (s *Service) Register(ctx context.Context, name, phone string) (*models.User, error) {
	u := models.NewUser(name, phone)
	if u.Name == "" || u.Phone == "" {
		return nil, invalid("name", MsgRegisterFieldsRequired)
	}
	u.CreatedAt = s.now().UTC()

	if _, err := s.repo.GetUserByPhone(ctx, u.Phone); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check phone: %w", err)
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, storage.ErrPhoneTaken) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

// Login finds the user registered with phone.
func (s *Service) Login(ctx context.Context, phone string) (*models.User, error) {
	phone = models.NormalizePhone(phone)
	if phone == "" {
		return nil, invalid("phone", MsgPhoneRequired)
	}

	u, err := s.repo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	return u, nil
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, invalid("id", MsgInvalidUserID)
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SubmitRequest is one pain entry submission.
// PainLevel is a pointer so that an absent level differs from zero.
type SubmitRequest struct {
	UserID         int64
	BodyPart       string
	PainLevel      *int
	FormData       json.RawMessage
	IdempotencyKey string
}

// SubmitEntry validates and stores an entry with its optional form.
// Resubmitting with the same idempotency key returns the stored entry;
// reusing the key for a different entry fails with ErrKeyReused.
func (s *Service) SubmitEntry(ctx context.Context, req SubmitRequest) (*models.PainEntry, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindPainEntryByKey(ctx, req.UserID, key)
		if err == nil {
			return replay(existing, req)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	if _, err := s.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	e := models.NewPainEntry(req.UserID, models.BodyPart(req.BodyPart), *req.PainLevel).
		WithCreatedAt(s.now())
	if hasForm(req.FormData) {
		e.WithForm(req.FormData)
	}
	if key != "" {
		e.WithIdempotencyKey(key)
	}

	if err := s.repo.CreatePainEntry(ctx, e); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// A concurrent retry won; return its entry.
			existing, err := s.repo.FindPainEntryByKey(ctx, req.UserID, key)
			if err != nil {
				return nil, fmt.Errorf("lookup idempotency key: %w", err)
			}
			return replay(existing, req)
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("submit pain entry: %w", err)
	}
	return e, nil
}

// ListEntries returns a user's entries newest first. Unknown users yield
// an empty list. A non-positive limit returns everything.
func (s *Service) ListEntries(ctx context.Context, userID int64, limit int) ([]*models.PainEntry, error) {
	if userID <= 0 {
		return nil, invalid("userId", MsgInvalidUserID)
	}
	entries, err := s.repo.ListPainEntries(ctx, storage.EntryFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// RecentEntries returns the newest entries across all users.
func (s *Service) RecentEntries(ctx context.Context, limit int) ([]*models.PainEntry, error) {
	entries, err := s.repo.ListPainEntries(ctx, storage.EntryFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list recent entries: %w", err)
	}
	return entries, nil
}

// Summary aggregates a user's full history with calendar days in loc.
func (s *Service) Summary(ctx context.Context, userID int64, loc *time.Location) (*history.Summary, error) {
	entries, err := s.ListEntries(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return history.Summarize(entries, history.Options{Location: loc}), nil
}

// SubmitterFor lets a wizard save entries for userID through this service.
func (s *Service) SubmitterFor(userID int64) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, sub wizard.Submission) (*models.PainEntry, error) {
		level := sub.PainLevel
		return s.SubmitEntry(ctx, SubmitRequest{
			UserID:         userID,
			BodyPart:       string(sub.BodyPart),
			PainLevel:      &level,
			FormData:       sub.FormData,
			IdempotencyKey: sub.IdempotencyKey,
		})
	})
}

// EnsureOwner rejects an authenticated caller acting on another user's data.
func EnsureOwner(callerID, userID int64) error {
	if callerID != userID {
		return ErrForbidden
	}
	return nil
}

func validateSubmit(req SubmitRequest) error {
	if req.UserID <= 0 || strings.TrimSpace(req.BodyPart) == "" || req.PainLevel == nil {
		return invalid("entry", MsgEntryFieldsRequired)
	}
	if !models.IsValidBodyPart(req.BodyPart) {
		return invalid("bodyPart", MsgInvalidBodyPart)
	}
	if !models.IsValidPainLevel(*req.PainLevel) {
		return invalid("painLevel", MsgInvalidPainLevel)
	}
	if hasForm(req.FormData) {
		return validateForm(req.FormData)
	}
	return nil
}

// replay returns the entry stored under a request's key when the request
// describes that same entry.
func replay(existing *models.PainEntry, req SubmitRequest) (*models.PainEntry, error) {
	if string(existing.BodyPart) != req.BodyPart || existing.PainLevel != *req.PainLevel {
		return nil, ErrKeyReused
	}
	var stored json.RawMessage
	if existing.TreatmentForm != nil {
		stored = existing.TreatmentForm.FormData
	}
	if !sameForm(stored, req.FormData) {
		return nil, ErrKeyReused
	}
	return existing, nil
}

func sameForm(a, b json.RawMessage) bool {
	if !hasForm(a) || !hasForm(b) {
		return hasForm(a) == hasForm(b)
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func hasForm(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// validateForm requires a JSON object whose known categorical answers,
// when present, come from their vocabularies. Unknown keys are allowed.
func validateForm(raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return invalid("formData", MsgInvalidForm)
	}
	q, err := models.ParseQuestionnaire(raw)
	if err != nil {
		return invalid("formData", MsgInvalidForm)
	}

	checks := []struct {
		value string
		valid func(string) bool
	}{
		{q.Duration, models.IsValidDuration},
		{q.SleepQuality, models.IsValidSleepQuality},
		{q.PainRelief, models.IsValidPainRelief},
		{q.PainComparison, models.IsValidPainComparison},
	}
	for _, c := range checks {
		if c.value != "" && !c.valid(c.value) {
			return invalid("formData", MsgInvalidForm)
		}
	}
	return nil
}
