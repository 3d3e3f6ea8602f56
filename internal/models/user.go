// ABOUTME: User model for diary owners.
// ABOUTME: Users are identified by a unique phone number and never modified.
package models

import (
	"strings"
	"time"
)

// User is a diary owner. The phone number is the only login credential.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser creates a User with trimmed fields and the current timestamp.
// The ID is assigned by storage.
func NewUser(name, phone string) *User {
	return &User{
		Name:      strings.TrimSpace(name),
		Phone:     NormalizePhone(phone),
		CreatedAt: time.Now().UTC(),
	}
}

// NormalizePhone strips surrounding whitespace so lookups and the unique
// constraint agree on the same key.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}
