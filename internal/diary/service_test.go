// ABOUTME: Tests for the diary service against a temporary SQLite store.
// ABOUTME: Covers registration, login, entry validation, idempotency, and summaries.
package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
	"github.com/harperreed/painlog/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "painlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db), db
}

func intPtr(n int) *int { return &n }

func registerUser(t *testing.T, s *Service) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), "João Silva", "11999887766")
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "  Ana  ", " 11900001111 ")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "11900001111", u.Phone)

	_, err = s.Register(ctx, "Outra Ana", "11900001111")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterMissingFields(t *testing.T) {
	s, _ := setupService(t)

	tests := []struct{ name, phone string }{
		{"", "1"},
		{"Ana", ""},
		{"   ", "   "},
	}
	for _, tt := range tests {
		_, err := s.Register(context.Background(), tt.name, tt.phone)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, MsgRegisterFieldsRequired, ve.Message)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestLogin(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	got, err := s.Login(ctx, " 11999887766 ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Login(ctx, "000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Login(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetUser(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, got.Name)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetUser(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitEntryValidation(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)

	tests := []struct {
		name    string
		req     SubmitRequest
		message string
	}{
		{"missing user", SubmitRequest{BodyPart: "costas", PainLevel: intPtr(3)}, MsgEntryFieldsRequired},
		{"missing body part", SubmitRequest{UserID: u.ID, PainLevel: intPtr(3)}, MsgEntryFieldsRequired},
		{"missing level", SubmitRequest{UserID: u.ID, BodyPart: "costas"}, MsgEntryFieldsRequired},
		{"unknown body part", SubmitRequest{UserID: u.ID, BodyPart: "joelho", PainLevel: intPtr(3)}, MsgInvalidBodyPart},
		{"level below range", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(-1)}, MsgInvalidPainLevel},
		{"level above range", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(11)}, MsgInvalidPainLevel},
		{"form not object", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(3), FormData: json.RawMessage(`[1]`)}, MsgInvalidForm},
		{"form bad duration", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(3), FormData: json.RawMessage(`{"duration":"sempre"}`)}, MsgInvalidForm},
		{"form bad type", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(3), FormData: json.RawMessage(`{"sleepQuality":5}`)}, MsgInvalidForm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SubmitEntry(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.message, ve.Message)
		})
	}

	entries, err := s.ListEntries(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected submissions must not write")
}

func TestSubmitEntryBoundaryLevels(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)

	for _, level := range []int{0, 10} {
		e, err := s.SubmitEntry(context.Background(), SubmitRequest{UserID: u.ID, BodyPart: "pes", PainLevel: intPtr(level)})
		require.NoError(t, err, "level %d", level)
		assert.Equal(t, level, e.PainLevel)
		assert.Nil(t, e.TreatmentForm)
	}
}

func TestSubmitEntryWithForm(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	form := json.RawMessage(`{"symptoms":"queimação","duration":"2-4-semanas","extra":"kept"}`)
	e, err := s.SubmitEntry(context.Background(), SubmitRequest{
		UserID: u.ID, BodyPart: "ombro", PainLevel: intPtr(5), FormData: form,
	})
	require.NoError(t, err)
	require.NotNil(t, e.TreatmentForm)
	assert.True(t, e.CreatedAt.Equal(fixed))

	entries, err := s.ListEntries(context.Background(), u.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(form), string(entries[0].TreatmentForm.FormData))
}

func TestSubmitEntryNullFormIsNoForm(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)

	e, err := s.SubmitEntry(context.Background(), SubmitRequest{
		UserID: u.ID, BodyPart: "perna", PainLevel: intPtr(2), FormData: json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.Nil(t, e.TreatmentForm)
}

func TestSubmitEntryUnknownUser(t *testing.T) {
	s, _ := setupService(t)

	_, err := s.SubmitEntry(context.Background(), SubmitRequest{UserID: 77, BodyPart: "costas", PainLevel: intPtr(4)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitEntryIdempotent(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	req := SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(6), IdempotencyKey: "abc"}
	first, err := s.SubmitEntry(ctx, req)
	require.NoError(t, err)
	again, err := s.SubmitEntry(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	entries, err := s.ListEntries(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSubmitEntryKeyReusedForDifferentEntry(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	form := json.RawMessage(`{"symptoms":"pontada","duration":"1-semana"}`)
	_, err := s.SubmitEntry(ctx, SubmitRequest{
		UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(7), FormData: form, IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"body part", SubmitRequest{UserID: u.ID, BodyPart: "cabeca", PainLevel: intPtr(7), FormData: form, IdempotencyKey: "k1"}},
		{"level", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(3), FormData: form, IdempotencyKey: "k1"}},
		{"form", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(7), FormData: json.RawMessage(`{"symptoms":"queimação"}`), IdempotencyKey: "k1"}},
		{"form dropped", SubmitRequest{UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(7), IdempotencyKey: "k1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SubmitEntry(ctx, tt.req)
			assert.ErrorIs(t, err, ErrKeyReused)
		})
	}

	// Whitespace differences still replay the stored entry.
	again, err := s.SubmitEntry(ctx, SubmitRequest{
		UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(7),
		FormData: json.RawMessage(`{ "symptoms": "pontada", "duration": "1-semana" }`), IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, again.PainLevel)

	entries, err := s.ListEntries(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// droppingSubmitter stores the entry but reports a lost response, like a
// request that timed out after the server committed it.
type droppingSubmitter struct {
	next  wizard.Submitter
	drops int
}

func (d *droppingSubmitter) Submit(ctx context.Context, sub wizard.Submission) (*models.PainEntry, error) {
	e, err := d.next.Submit(ctx, sub)
	if err != nil || d.drops == 0 {
		return e, err
	}
	d.drops--
	return nil, fmt.Errorf("read response: %w", wizard.ErrTransport)
}

func TestWizardEditAfterLostResponse(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	w := wizard.New(&droppingSubmitter{next: s.SubmitterFor(u.ID), drops: 1})
	require.NoError(t, w.ChooseBodyPart("costas"))
	require.NoError(t, w.SetIntensity(7))
	require.NoError(t, w.Continue())
	answers := &models.Questionnaire{Symptoms: "pontada", Duration: "1-semana"}

	_, err := w.Submit(ctx, answers)
	var se *wizard.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wizard.NoticeNoConnection, se.Notice)

	w.Back()
	w.Back()
	require.NoError(t, w.ChooseBodyPart("cabeca"))
	require.NoError(t, w.SetIntensity(3))
	require.NoError(t, w.Continue())

	out, err := w.Submit(ctx, answers)
	require.NoError(t, err)
	assert.Equal(t, models.BodyPartHead, out.Entry.BodyPart)
	assert.Equal(t, 3, out.Entry.PainLevel)

	entries, err := s.ListEntries(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.BodyPartHead, entries[0].BodyPart)
	assert.Equal(t, 3, entries[0].PainLevel)
}

// racingRepo simulates a concurrent retry that lands between lookup and insert.
type racingRepo struct {
	storage.Repository
	raced bool
}

func (r *racingRepo) CreatePainEntry(ctx context.Context, e *models.PainEntry) error {
	if !r.raced {
		r.raced = true
		winner := models.NewPainEntry(e.UserID, e.BodyPart, e.PainLevel).WithIdempotencyKey(*e.IdempotencyKey)
		if err := r.Repository.CreatePainEntry(ctx, winner); err != nil {
			return err
		}
	}
	return r.Repository.CreatePainEntry(ctx, e)
}

func TestSubmitEntryDuplicateKeyRace(t *testing.T) {
	_, db := setupService(t)
	s := NewService(&racingRepo{Repository: db})
	u := registerUser(t, s)

	e, err := s.SubmitEntry(context.Background(), SubmitRequest{
		UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(6), IdempotencyKey: "race",
	})
	require.NoError(t, err)

	entries, err := s.ListEntries(context.Background(), u.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entries[0].ID, e.ID)
}

func TestListEntries(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := s.SubmitEntry(ctx, SubmitRequest{UserID: u.ID, BodyPart: "cabeca", PainLevel: intPtr(i + 1)})
		require.NoError(t, err)
	}

	entries, err := s.ListEntries(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].PainLevel, "newest first")

	limited, err := s.ListEntries(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.ListEntries(ctx, 999, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.ListEntries(ctx, -1, 0)
	assert.ErrorIs(t, err, ErrValidation)

	recent, err := s.RecentEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 3, recent[0].PainLevel)
}

func TestSummary(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)
	ctx := context.Background()

	empty, err := s.Summary(ctx, u.ID, time.UTC)
	require.NoError(t, err)
	assert.True(t, empty.Empty)

	_, err = s.SubmitEntry(ctx, SubmitRequest{
		UserID: u.ID, BodyPart: "costas", PainLevel: intPtr(4),
		FormData: json.RawMessage(`{"duration":"1-semana","sleepQuality":"acordei-dor"}`),
	})
	require.NoError(t, err)

	sum, err := s.Summary(ctx, u.ID, time.UTC)
	require.NoError(t, err)
	assert.False(t, sum.Empty)
	require.Len(t, sum.Durations, 1)
	assert.Equal(t, models.DurationAboutAWeek, sum.Durations[0].Duration)
	require.Len(t, sum.Sleep, 1)
	assert.Equal(t, 4.0, sum.Sleep[0].AveragePain)
}

func TestSubmitterForDrivesWizard(t *testing.T) {
	s, _ := setupService(t)
	u := registerUser(t, s)

	w := wizard.New(s.SubmitterFor(u.ID))
	require.NoError(t, w.ChooseBodyPart("quadril"))
	require.NoError(t, w.SetIntensity(7))
	require.NoError(t, w.Continue())

	out, err := w.Submit(context.Background(), &models.Questionnaire{Symptoms: "rigidez", Duration: "1-3-meses"})
	require.NoError(t, err)
	assert.Equal(t, wizard.RedirectHistory, out.Redirect)
	assert.Equal(t, models.BodyPartHip, out.Entry.BodyPart)
	require.NotNil(t, out.Entry.TreatmentForm)
}

func TestSubmitterForReportsRejection(t *testing.T) {
	s, _ := setupService(t)

	// Unknown user: the service rejects and the wizard keeps its state.
	w := wizard.New(s.SubmitterFor(404))
	require.NoError(t, w.ChooseBodyPart("costas"))
	require.NoError(t, w.SetIntensity(3))
	require.NoError(t, w.Continue())

	_, err := w.Submit(context.Background(), &models.Questionnaire{Symptoms: "x", Duration: "1-semana"})
	var se *wizard.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wizard.NoticeRejected, se.Notice)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, wizard.StepQuestionnaire, w.Step())
}

func TestEnsureOwner(t *testing.T) {
	assert.NoError(t, EnsureOwner(1, 1))
	assert.ErrorIs(t, EnsureOwner(1, 2), ErrForbidden)
}

func TestValidationErrorMessage(t *testing.T) {
	err := invalid("bodyPart", MsgInvalidBodyPart)
	assert.Equal(t, fmt.Sprintf("invalid bodyPart: %s", MsgInvalidBodyPart), err.Error())
}
