// Package user persists user records and verifies their credentials.
// The auth orchestrator treats this package as an opaque collaborator.
package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound means no record matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrExists means the email is already registered.
	ErrExists = errors.New("user already exists")
)

// DefaultRole is assigned to newly created accounts.
const DefaultRole = "user"

// User is a stored user record. PasswordHash never leaves this package's
// callers in serialized form.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// Store is the user-record collaborator consumed by the auth service.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, name, email, password string) (*User, error)
}

// VerifyPassword reports whether the plaintext matches the record's hash.
func VerifyPassword(u *User, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
