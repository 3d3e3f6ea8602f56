// ABOUTME: Tests for the SQLite Repository implementation.
// ABOUTME: Verifies users, transactional entry writes, ordering, and idempotency keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/painlog/internal/models"
)

func TestCreateAndGetUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u := models.NewUser("Maria", "11988887777")
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := db.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "Maria" || got.Phone != "11988887777" {
		t.Errorf("unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, u.CreatedAt)
	}

	byPhone, err := db.GetUserByPhone(ctx, "11988887777")
	if err != nil {
		t.Fatalf("GetUserByPhone failed: %v", err)
	}
	if byPhone.ID != u.ID {
		t.Errorf("ID mismatch: got %d, want %d", byPhone.ID, u.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(999) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByPhone(ctx, "000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByPhone error = %v, want ErrNotFound", err)
	}
}

func TestDuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, models.NewUser("A", "111")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := db.CreateUser(ctx, models.NewUser("B", "111"))
	if !errors.Is(err, ErrPhoneTaken) {
		t.Fatalf("expected ErrPhoneTaken, got %v", err)
	}

	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestCreatePainEntryWithForm(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db)

	form := json.RawMessage(`{"symptoms":"pontada","duration":"1-semana","custom":true}`)
	e := models.NewPainEntry(u.ID, models.BodyPartBack, 7).WithForm(form)
	if err := db.CreatePainEntry(ctx, e); err != nil {
		t.Fatalf("CreatePainEntry failed: %v", err)
	}
	if e.ID == 0 || e.TreatmentForm.ID == 0 {
		t.Fatalf("expected IDs to be assigned: entry=%d form=%d", e.ID, e.TreatmentForm.ID)
	}
	if e.TreatmentForm.PainEntryID != e.ID {
		t.Errorf("form PainEntryID = %d, want %d", e.TreatmentForm.PainEntryID, e.ID)
	}

	entries, err := db.ListPainEntries(ctx, EntryFilter{UserID: u.ID})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.BodyPart != models.BodyPartBack || got.PainLevel != 7 {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.TreatmentForm == nil {
		t.Fatal("expected treatment form")
	}
	if string(got.TreatmentForm.FormData) != string(form) {
		t.Errorf("form data not kept verbatim: got %s", got.TreatmentForm.FormData)
	}
}

func TestCreatePainEntryWithoutForm(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db)

	if err := db.CreatePainEntry(ctx, models.NewPainEntry(u.ID, models.BodyPartHead, 0)); err != nil {
		t.Fatalf("CreatePainEntry failed: %v", err)
	}

	entries, err := db.ListPainEntries(ctx, EntryFilter{UserID: u.ID})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].TreatmentForm != nil {
		t.Errorf("expected nil treatment form, got %+v", entries[0].TreatmentForm)
	}
}

func TestCreatePainEntryRollsBackOnFormFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db)

	e := models.NewPainEntry(u.ID, models.BodyPartLeg, 5).WithForm(json.RawMessage(`{not json`))
	if err := db.CreatePainEntry(ctx, e); err == nil {
		t.Fatal("expected error for invalid form data")
	}

	entries, err := db.ListPainEntries(ctx, EntryFilter{UserID: u.ID})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries after rollback, got %d", len(entries))
	}
}

func TestCreatePainEntryUnknownUser(t *testing.T) {
	db := setupTestDB(t)

	err := db.CreatePainEntry(context.Background(), models.NewPainEntry(42, models.BodyPartHip, 3))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPainEntriesOrderAndFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db)
	other := models.NewUser("Outro", "222")
	if err := db.CreateUser(ctx, other); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	fixtures := []*models.PainEntry{
		models.NewPainEntry(u.ID, models.BodyPartBack, 3).WithCreatedAt(base),
		models.NewPainEntry(u.ID, models.BodyPartNeck, 6).WithCreatedAt(base.Add(48 * time.Hour)),
		models.NewPainEntry(u.ID, models.BodyPartBack, 8).WithCreatedAt(base.Add(24 * time.Hour)),
		models.NewPainEntry(other.ID, models.BodyPartFeet, 2).WithCreatedAt(base.Add(72 * time.Hour)),
	}
	for _, e := range fixtures {
		if err := db.CreatePainEntry(ctx, e); err != nil {
			t.Fatalf("CreatePainEntry failed: %v", err)
		}
	}

	entries, err := db.ListPainEntries(ctx, EntryFilter{UserID: u.ID})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantLevels := []int{6, 8, 3}
	for i, e := range entries {
		if e.PainLevel != wantLevels[i] {
			t.Errorf("entries[%d].PainLevel = %d, want %d", i, e.PainLevel, wantLevels[i])
		}
	}

	backOnly, err := db.ListPainEntries(ctx, EntryFilter{UserID: u.ID, BodyPart: models.BodyPartBack})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(backOnly) != 2 {
		t.Errorf("expected 2 back entries, got %d", len(backOnly))
	}

	limited, err := db.ListPainEntries(ctx, EntryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if len(limited) != 2 || limited[0].UserID != other.ID {
		t.Errorf("expected newest entry across users first, got %+v", limited)
	}
}

func TestListPainEntriesUnknownUserIsEmpty(t *testing.T) {
	db := setupTestDB(t)

	entries, err := db.ListPainEntries(context.Background(), EntryFilter{UserID: 999})
	if err != nil {
		t.Fatalf("ListPainEntries failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", entries)
	}
}

func TestIdempotencyKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db)

	first := models.NewPainEntry(u.ID, models.BodyPartShoulder, 4).WithIdempotencyKey("k-1")
	if err := db.CreatePainEntry(ctx, first); err != nil {
		t.Fatalf("CreatePainEntry failed: %v", err)
	}

	dup := models.NewPainEntry(u.ID, models.BodyPartShoulder, 4).WithIdempotencyKey("k-1")
	if err := db.CreatePainEntry(ctx, dup); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	got, err := db.FindPainEntryByKey(ctx, u.ID, "k-1")
	if err != nil {
		t.Fatalf("FindPainEntryByKey failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("found entry %d, want %d", got.ID, first.ID)
	}

	if _, err := db.FindPainEntryByKey(ctx, u.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Entries without a key never collide.
	for i := 0; i < 2; i++ {
		if err := db.CreatePainEntry(ctx, models.NewPainEntry(u.ID, models.BodyPartShoulder, 4)); err != nil {
			t.Fatalf("CreatePainEntry without key failed: %v", err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "painlog.db")
	ctx := context.Background()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.CreateUser(ctx, models.NewUser("Ana", "333")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	db.Close()

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	if _, err := db.GetUserByPhone(ctx, "333"); err != nil {
		t.Errorf("expected user after reopen: %v", err)
	}
}

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "painlog.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func createTestUser(t *testing.T, r Repository) *models.User {
	t.Helper()

	u := models.NewUser("João Silva", "11999887766")
	if err := r.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}
