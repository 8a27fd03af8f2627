package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore is a [Store] backed by an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the user database at dsn and
// applies the schema.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open user db: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate user db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findBy(ctx, "email", email)
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findBy(ctx, "id", id)
}

// Create stores a new user with a bcrypt-hashed password and the default
// role. Returns [ErrExists] if the email is taken.
func (s *SQLiteStore) Create(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         DefaultRole,
		PasswordHash: hash,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, password_hash) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (s *SQLiteStore) findBy(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, password_hash FROM users WHERE `+column+` = ?`,
		value,
	)

	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
