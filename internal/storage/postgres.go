// ABOUTME: PostgreSQL implementation of Repository using a pgx connection pool.
// ABOUTME: Form data is stored in a json column so the submitted text is kept verbatim.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/painlog/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	phone TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pain_entries (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	body_part TEXT NOT NULL,
	pain_level INTEGER NOT NULL CHECK (pain_level BETWEEN 0 AND 10),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	idempotency_key TEXT,
	UNIQUE (user_id, idempotency_key)
);

CREATE TABLE IF NOT EXISTS treatment_forms (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	pain_entry_id BIGINT NOT NULL UNIQUE REFERENCES pain_entries(id),
	form_data JSON NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pain_entries_user_created ON pain_entries(user_id, created_at DESC);
`

const pgEntrySelect = `
SELECT e.id, e.user_id, e.body_part, e.pain_level, e.created_at, e.idempotency_key,
       f.id, f.form_data, f.created_at
FROM pain_entries e
LEFT JOIN treatment_forms f ON f.pain_entry_id = e.id
`

// PGStore is the PostgreSQL backend.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPool parses the DSN and opens a pgx pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	return pool, nil
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	if pool == nil {
		return errors.New("postgres pool is nil")
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// translatePGError maps constraint violations to the package sentinels.
func translatePGError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		if pgErr.TableName == "users" {
			return fmt.Errorf("%w: %v", ErrPhoneTaken, err)
		}
		if pgErr.TableName == "pain_entries" {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
	case "23503":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// pgQuerier is satisfied by both the pool and a transaction.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateUser stores a new user and assigns its ID.
func (s *PGStore) CreateUser(ctx context.Context, u *models.User) error {
	return insertPGUser(ctx, s.pool, u)
}

func insertPGUser(ctx context.Context, q pgQuerier, u *models.User) error {
	var err error
	if u.ID == 0 {
		err = q.QueryRow(ctx, `
INSERT INTO users (name, phone, created_at)
VALUES ($1, $2, $3)
RETURNING id
`, u.Name, u.Phone, u.CreatedAt.UTC()).Scan(&u.ID)
	} else {
		_, err = q.Exec(ctx, `
INSERT INTO users (id, name, phone, created_at)
VALUES ($1, $2, $3, $4)
`, u.ID, u.Name, u.Phone, u.CreatedAt.UTC())
	}
	if err != nil {
		return fmt.Errorf("create user: %w", translatePGError(err))
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *PGStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT id, name, phone, created_at FROM users WHERE id = $1`, id))
}

// GetUserByPhone retrieves a user by exact phone number.
func (s *PGStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT id, name, phone, created_at FROM users WHERE phone = $1`, phone))
}

func (s *PGStore) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func (s *PGStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, phone, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, &u)
	}
	return users, rows.Err()
}

// CreatePainEntry stores the entry and its optional form in one transaction.
func (s *PGStore) CreatePainEntry(ctx context.Context, e *models.PainEntry) error {
	var entryID, formID int64
	err := withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		entryID, formID, err = insertPGPainEntry(ctx, tx, e)
		return err
	})
	if err != nil {
		return err
	}
	assignIDs(e, entryID, formID)
	return nil
}

func insertPGPainEntry(ctx context.Context, q pgQuerier, e *models.PainEntry) (entryID, formID int64, err error) {
	entryID = e.ID
	if entryID == 0 {
		err = q.QueryRow(ctx, `
INSERT INTO pain_entries (user_id, body_part, pain_level, created_at, idempotency_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, e.UserID, string(e.BodyPart), e.PainLevel, e.CreatedAt.UTC(), e.IdempotencyKey).Scan(&entryID)
	} else {
		_, err = q.Exec(ctx, `
INSERT INTO pain_entries (id, user_id, body_part, pain_level, created_at, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6)
`, entryID, e.UserID, string(e.BodyPart), e.PainLevel, e.CreatedAt.UTC(), e.IdempotencyKey)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("create pain entry: %w", translatePGError(err))
	}

	f := e.TreatmentForm
	if f == nil {
		return entryID, 0, nil
	}
	formID = f.ID
	if formID == 0 {
		err = q.QueryRow(ctx, `
INSERT INTO treatment_forms (pain_entry_id, form_data, created_at)
VALUES ($1, $2, $3)
RETURNING id
`, entryID, string(f.FormData), f.CreatedAt.UTC()).Scan(&formID)
	} else {
		_, err = q.Exec(ctx, `
INSERT INTO treatment_forms (id, pain_entry_id, form_data, created_at)
VALUES ($1, $2, $3, $4)
`, formID, entryID, string(f.FormData), f.CreatedAt.UTC())
	}
	if err != nil {
		return 0, 0, fmt.Errorf("create treatment form: %w", translatePGError(err))
	}
	return entryID, formID, nil
}

// FindPainEntryByKey returns the entry a user stored under an idempotency key.
func (s *PGStore) FindPainEntryByKey(ctx context.Context, userID int64, key string) (*models.PainEntry, error) {
	rows, err := s.pool.Query(ctx, pgEntrySelect+`WHERE e.user_id = $1 AND e.idempotency_key = $2`, userID, key)
	if err != nil {
		return nil, fmt.Errorf("find pain entry: %w", err)
	}
	entries, err := s.scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[0], nil
}

// ListPainEntries retrieves entries newest first.
func (s *PGStore) ListPainEntries(ctx context.Context, filter EntryFilter) ([]*models.PainEntry, error) {
	query := pgEntrySelect + `WHERE ($1 = 0 OR e.user_id = $1) AND ($2 = '' OR e.body_part = $2)
ORDER BY e.created_at DESC, e.id DESC`
	args := []any{filter.UserID, string(filter.BodyPart)}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pain entries: %w", err)
	}
	return s.scanEntries(rows)
}

func (s *PGStore) scanEntries(rows pgx.Rows) ([]*models.PainEntry, error) {
	defer rows.Close()

	entries := []*models.PainEntry{}
	for rows.Next() {
		var e models.PainEntry
		var bodyPart string
		var formID *int64
		var formData []byte
		var formCreatedAt *time.Time

		err := rows.Scan(&e.ID, &e.UserID, &bodyPart, &e.PainLevel, &e.CreatedAt, &e.IdempotencyKey,
			&formID, &formData, &formCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan pain entry: %w", err)
		}

		e.BodyPart = models.BodyPart(bodyPart)
		e.CreatedAt = e.CreatedAt.UTC()
		if formID != nil {
			form := &models.TreatmentForm{
				ID:          *formID,
				PainEntryID: e.ID,
				FormData:    json.RawMessage(formData),
			}
			if formCreatedAt != nil {
				form.CreatedAt = formCreatedAt.UTC()
			}
			e.TreatmentForm = form
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// GetAllData retrieves all data for export.
func (s *PGStore) GetAllData(ctx context.Context) (*ExportData, error) {
	return collectAll(ctx, s)
}

// ImportData imports data keeping IDs, then moves the identity sequences
// past the imported rows. It all happens in one transaction.
func (s *PGStore) ImportData(ctx context.Context, data *ExportData) error {
	ids := make([][2]int64, len(data.Entries))
	err := withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, u := range data.Users {
			if err := insertPGUser(ctx, tx, u); err != nil {
				return fmt.Errorf("import user %d: %w", u.ID, err)
			}
		}
		for i, e := range data.Entries {
			entryID, formID, err := insertPGPainEntry(ctx, tx, e)
			if err != nil {
				return fmt.Errorf("import pain entry %d: %w", e.ID, err)
			}
			ids[i] = [2]int64{entryID, formID}
		}
		for _, table := range []string{"users", "pain_entries", "treatment_forms"} {
			_, err := tx.Exec(ctx, fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
				table, table))
			if err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, e := range data.Entries {
		assignIDs(e, ids[i][0], ids[i][1])
	}
	return nil
}
