// ABOUTME: Repository interface for pain diary storage.
// ABOUTME: Defines the append-only contract for users, pain entries, and treatment forms.
package storage

import (
	"context"
	"errors"

	"github.com/harperreed/painlog/internal/models"
)

// Sentinel errors returned by every backend.
var (
	ErrNotFound     = errors.New("not found")
	ErrPhoneTaken   = errors.New("phone already registered")
	ErrDuplicateKey = errors.New("idempotency key already used")
)

// EntryFilter narrows ListPainEntries. Zero values mean "no filter".
type EntryFilter struct {
	UserID   int64
	BodyPart models.BodyPart
	Limit    int
}

// Repository defines the storage interface for diary data.
// There are no update or delete operations; records are append-only.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Pain entry operations. CreatePainEntry writes the entry and its
	// optional treatment form atomically and assigns both IDs.
	CreatePainEntry(ctx context.Context, e *models.PainEntry) error
	FindPainEntryByKey(ctx context.Context, userID int64, key string) (*models.PainEntry, error)
	ListPainEntries(ctx context.Context, filter EntryFilter) ([]*models.PainEntry, error)

	// Export/Import
	GetAllData(ctx context.Context) (*ExportData, error)
	ImportData(ctx context.Context, data *ExportData) error

	// Lifecycle
	Close() error
}
