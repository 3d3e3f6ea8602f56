// ABOUTME: Pain entry and treatment form operations for SQLite storage.
// ABOUTME: Entry and form are written in one transaction; reads left-join the form.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harperreed/painlog/internal/models"
)

const entrySelect = `
	SELECT e.id, e.user_id, e.body_part, e.pain_level, e.created_at, e.idempotency_key,
	       f.id, f.form_data, f.created_at
	FROM pain_entries e
	LEFT JOIN treatment_forms f ON f.pain_entry_id = e.id
`

// CreatePainEntry stores the entry and its optional treatment form.
// If the form insert fails the entry is rolled back.
func (d *DB) CreatePainEntry(ctx context.Context, e *models.PainEntry) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entryID, formID, err := insertPainEntry(ctx, tx, e)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	assignIDs(e, entryID, formID)
	return nil
}

func assignIDs(e *models.PainEntry, entryID, formID int64) {
	e.ID = entryID
	if e.TreatmentForm != nil {
		e.TreatmentForm.ID = formID
		e.TreatmentForm.PainEntryID = entryID
	}
}

// insertPainEntry writes the entry row and its form row through ex.
func insertPainEntry(ctx context.Context, ex execer, e *models.PainEntry) (entryID, formID int64, err error) {
	result, err := ex.ExecContext(ctx, `
		INSERT INTO pain_entries (id, user_id, body_part, pain_level, created_at, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		nullableID(e.ID),
		e.UserID,
		string(e.BodyPart),
		e.PainLevel,
		formatTime(e.CreatedAt),
		e.IdempotencyKey,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("create pain entry: %w", translateSQLiteError(err))
	}

	entryID = e.ID
	if entryID == 0 {
		if entryID, err = result.LastInsertId(); err != nil {
			return 0, 0, fmt.Errorf("create pain entry: %w", err)
		}
	}

	f := e.TreatmentForm
	if f == nil {
		return entryID, 0, nil
	}
	result, err = ex.ExecContext(ctx, `
		INSERT INTO treatment_forms (id, pain_entry_id, form_data, created_at)
		VALUES (?, ?, ?, ?)
	`,
		nullableID(f.ID),
		entryID,
		string(f.FormData),
		formatTime(f.CreatedAt),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("create treatment form: %w", translateSQLiteError(err))
	}
	formID = f.ID
	if formID == 0 {
		if formID, err = result.LastInsertId(); err != nil {
			return 0, 0, fmt.Errorf("create treatment form: %w", err)
		}
	}
	return entryID, formID, nil
}

// FindPainEntryByKey returns the entry a user stored under an idempotency key.
func (d *DB) FindPainEntryByKey(ctx context.Context, userID int64, key string) (*models.PainEntry, error) {
	rows, err := d.db.QueryContext(ctx, entrySelect+`WHERE e.user_id = ? AND e.idempotency_key = ?`, userID, key)
	if err != nil {
		return nil, fmt.Errorf("find pain entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[0], nil
}

// ListPainEntries retrieves entries newest first, each with its form or nil.
func (d *DB) ListPainEntries(ctx context.Context, filter EntryFilter) ([]*models.PainEntry, error) {
	query := entrySelect + `WHERE 1 = 1`
	var args []interface{}

	if filter.UserID > 0 {
		query += ` AND e.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.BodyPart != "" {
		query += ` AND e.body_part = ?`
		args = append(args, string(filter.BodyPart))
	}

	query += ` ORDER BY e.created_at DESC, e.id DESC`

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pain entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*models.PainEntry, error) {
	entries := []*models.PainEntry{}

	for rows.Next() {
		var e models.PainEntry
		var bodyPart, createdAt string
		var key sql.NullString
		var formID sql.NullInt64
		var formData, formCreatedAt sql.NullString

		err := rows.Scan(&e.ID, &e.UserID, &bodyPart, &e.PainLevel, &createdAt, &key,
			&formID, &formData, &formCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan pain entry: %w", err)
		}

		e.BodyPart = models.BodyPart(bodyPart)
		e.CreatedAt = parseTime(createdAt)
		if key.Valid {
			e.IdempotencyKey = &key.String
		}
		if formID.Valid {
			e.TreatmentForm = &models.TreatmentForm{
				ID:          formID.Int64,
				PainEntryID: e.ID,
				FormData:    json.RawMessage(formData.String),
				CreatedAt:   parseTime(formCreatedAt.String),
			}
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
