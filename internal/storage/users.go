// ABOUTME: User operations for SQLite storage.
// ABOUTME: Phone numbers are unique; lookups return ErrNotFound on a miss.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/painlog/internal/models"
)

// CreateUser stores a new user and assigns its ID.
// A user that already carries an ID (import) keeps it.
func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	return insertUser(ctx, d.db, u)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, ex execer, u *models.User) error {
	query := `
		INSERT INTO users (id, name, phone, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := ex.ExecContext(ctx, query,
		nullableID(u.ID),
		u.Name,
		u.Phone,
		formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", translateSQLiteError(err))
	}

	if u.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		u.ID = id
	}
	return nil
}

// GetUser retrieves a user by ID.
func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, phone, created_at FROM users WHERE id = ?`
	return scanUser(d.db.QueryRowContext(ctx, query, id))
}

// GetUserByPhone retrieves a user by exact phone number.
func (d *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT id, name, phone, created_at FROM users WHERE phone = ?`
	return scanUser(d.db.QueryRowContext(ctx, query, phone))
}

// ListUsers returns all users ordered by ID.
func (d *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, phone, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = parseTime(createdAt)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var createdAt string

	if err := row.Scan(&u.ID, &u.Name, &u.Phone, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}
